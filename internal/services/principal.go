package services

import (
	"context"
	"errors"

	"github.com/sbilibin2017/task-tracker/internal/jwt"
	"github.com/sbilibin2017/task-tracker/internal/models"
)

//go:generate mockgen -source=principal.go -destination=principal_mock.go -package=services

// Authorization failures. Token failures are jwt.ErrInvalidToken and jwt.ErrTokenExpired.
var (
	ErrMissingCredential  = errors.New("bearer token or api key missing")
	ErrUnknownSubject     = errors.New("token subject does not exist")
	ErrInvalidAPIKey      = errors.New("api key does not exist")
	ErrCredentialMismatch = errors.New("api key does not belong to token subject")
)

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// PrincipalReader looks accounts up by id and API key. Both return (nil, nil) when absent.
type PrincipalReader interface {
	GetByID(ctx context.Context, id int64) (*models.AccountDB, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.AccountDB, error)
}

// PrincipalResolver authenticates a request from its bearer token and API key.
// It holds no mutable state and is safe for concurrent use.
type PrincipalResolver struct {
	tokens   TokenVerifier
	accounts PrincipalReader
}

// NewPrincipalResolver creates a new PrincipalResolver.
func NewPrincipalResolver(tokens TokenVerifier, accounts PrincipalReader) *PrincipalResolver {
	return &PrincipalResolver{tokens: tokens, accounts: accounts}
}

// Resolve returns the account both credentials belong to.
//
// The token is verified first, then its subject and the API key are each
// resolved to an account. Both must resolve to the same account; a valid token
// for one account combined with a valid key for another is rejected with
// ErrCredentialMismatch and never admitted as either.
func (r *PrincipalResolver) Resolve(ctx context.Context, token, apiKey string) (*models.AccountDB, error) {
	if token == "" || apiKey == "" {
		return nil, ErrMissingCredential
	}

	claims, err := r.tokens.GetClaims(ctx, token)
	if err != nil {
		return nil, err
	}

	subject, err := r.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, ErrUnknownSubject
	}

	keyOwner, err := r.accounts.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if keyOwner == nil {
		return nil, ErrInvalidAPIKey
	}

	if !models.SameAccount(subject, keyOwner) {
		return nil, ErrCredentialMismatch
	}

	return subject, nil
}

// IsUnauthorized reports whether err is an authorization failure rather than
// an infrastructure error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, jwt.ErrInvalidToken) ||
		errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, ErrUnknownSubject) ||
		errors.Is(err, ErrInvalidAPIKey) ||
		errors.Is(err, ErrCredentialMismatch)
}
