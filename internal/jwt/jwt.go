package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAlgorithm is used when no signing algorithm is configured.
	DefaultAlgorithm = "HS256"
	// DefaultExpiration is the access token lifetime when none is configured.
	DefaultExpiration = 120 * time.Minute
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and missing claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when the token's expiration has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("bearer token missing")
	// ErrUnsupportedAlgorithm is returned for signing methods that are not HMAC.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Claims is the payload carried by access tokens.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT issues and verifies access tokens. Its settings are fixed at construction.
type JWT struct {
	secretKey []byte
	algorithm string
	exp       time.Duration
	now       func() time.Time
}

// Option configures a JWT.
type Option func(*JWT)

// WithSecretKey sets the symmetric signing secret.
func WithSecretKey(secret string) Option {
	return func(j *JWT) {
		j.secretKey = []byte(secret)
	}
}

// WithAlgorithm sets the signing algorithm by name, e.g. "HS256".
func WithAlgorithm(name string) Option {
	return func(j *JWT) {
		if name != "" {
			j.algorithm = name
		}
	}
}

// WithExpiration sets the token time-to-live.
func WithExpiration(exp time.Duration) Option {
	return func(j *JWT) {
		j.exp = exp
	}
}

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		if now != nil {
			j.now = now
		}
	}
}

// New creates a new JWT instance
func New(opts ...Option) *JWT {
	j := &JWT{
		algorithm: DefaultAlgorithm,
		exp:       DefaultExpiration,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// CheckAlgorithm reports whether name is a supported symmetric signing method.
func CheckAlgorithm(name string) error {
	if _, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return nil
}

// Generate creates a signed token for userID expiring after the configured TTL.
func (j *JWT) Generate(ctx context.Context, userID int64) (string, error) {
	if err := CheckAlgorithm(j.algorithm); err != nil {
		return "", err
	}
	if len(j.secretKey) == 0 {
		return "", errors.New("signing secret is empty")
	}

	now := j.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.exp)),
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(j.algorithm), claims)
	return token.SignedString(j.secretKey)
}

// GetClaims verifies the token signature and expiration and returns its claims.
// Failures are ErrTokenExpired or ErrInvalidToken.
func (j *JWT) GetClaims(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return j.secretKey, nil
		},
		jwt.WithValidMethods([]string{j.algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id not found in token", ErrInvalidToken)
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: subject does not match user_id", ErrInvalidToken)
	}

	return claims, nil
}

// Validate reports whether the token is authentic and unexpired.
func (j *JWT) Validate(ctx context.Context, tokenString string) error {
	_, err := j.GetClaims(ctx, tokenString)
	return err
}

// GetTokenFromRequest extracts the token string from the Authorization header
func (j *JWT) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrMissingToken)
	}

	return parts[1], nil
}
