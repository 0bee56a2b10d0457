package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/repositories"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=services

// Error variables
var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrUsernameTaken        = fmt.Errorf("%w: username already registered", ErrAccountAlreadyExists)
	ErrEmailTaken           = fmt.Errorf("%w: email already registered", ErrAccountAlreadyExists)
	ErrInvalidCredentials   = errors.New("incorrect username or password")
)

// AccountReader defines read-only account lookups used by signup and login.
type AccountReader interface {
	GetByUsername(ctx context.Context, username string) (*models.AccountDB, error)
	GetByEmail(ctx context.Context, email string) (*models.AccountDB, error)
}

// AccountWriter defines write operations for accounts.
type AccountWriter interface {
	Save(ctx context.Context, account *models.AccountDB) (*models.AccountDB, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	NeedsRehash(digest string) bool
}

// APIKeyGenerator issues new API keys.
type APIKeyGenerator interface {
	Generate() (string, error)
}

// JWTGenerator defines an interface for generating JWT tokens.
type JWTGenerator interface {
	Generate(ctx context.Context, userID int64) (string, error)
}

// AuthService handles signup and login.
type AuthService struct {
	reader  AccountReader
	writer  AccountWriter
	hasher  PasswordHasher
	apiKeys APIKeyGenerator
	jwt     JWTGenerator
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(
	reader AccountReader,
	writer AccountWriter,
	hasher PasswordHasher,
	apiKeys APIKeyGenerator,
	jwt JWTGenerator,
) *AuthService {
	return &AuthService{
		reader:  reader,
		writer:  writer,
		hasher:  hasher,
		apiKeys: apiKeys,
		jwt:     jwt,
	}
}

// Register creates an account with a hashed password and a freshly issued API key.
// The API key is assigned once here and never rotated.
func (svc *AuthService) Register(ctx context.Context, username, password, email string) (*models.AccountDB, error) {
	existing, err := svc.reader.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to check username", "err", err)
		return nil, err
	}
	if existing != nil {
		logger.Log.Warnw("username already registered", "username", username)
		return nil, ErrUsernameTaken
	}

	existing, err = svc.reader.GetByEmail(ctx, email)
	if err != nil {
		logger.Log.Errorw("failed to check email", "err", err)
		return nil, err
	}
	if existing != nil {
		logger.Log.Warnw("email already registered", "email", email)
		return nil, ErrEmailTaken
	}

	hashedPassword, err := svc.hasher.Hash(password)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "err", err)
		return nil, err
	}

	apiKey, err := svc.apiKeys.Generate()
	if err != nil {
		logger.Log.Errorw("failed to generate api key", "err", err)
		return nil, err
	}

	account, err := svc.writer.Save(ctx, &models.AccountDB{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		APIKey:       apiKey,
	})
	switch {
	case errors.Is(err, repositories.ErrUsernameConflict):
		logger.Log.Warnw("username registered concurrently", "username", username)
		return nil, ErrUsernameTaken
	case errors.Is(err, repositories.ErrEmailConflict):
		logger.Log.Warnw("email registered concurrently", "email", email)
		return nil, ErrEmailTaken
	case err != nil:
		logger.Log.Errorw("failed to save account", "err", err)
		return nil, err
	}

	logger.Log.Infow("account created", "user_id", account.UserID, "username", account.Username)
	return account, nil
}

// Login verifies the password and returns a signed access token with the account.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (svc *AuthService) Login(ctx context.Context, username, password string) (string, *models.AccountDB, error) {
	account, err := svc.reader.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to get account", "err", err)
		return "", nil, err
	}
	if account == nil {
		logger.Log.Warnw("login for unknown username", "username", username)
		return "", nil, ErrInvalidCredentials
	}

	if !svc.hasher.Verify(password, account.PasswordHash) {
		logger.Log.Warnw("bad password", "username", username)
		return "", nil, ErrInvalidCredentials
	}
	if svc.hasher.NeedsRehash(account.PasswordHash) {
		logger.Log.Infow("password digest uses an outdated cost", "user_id", account.UserID)
	}

	token, err := svc.jwt.Generate(ctx, account.UserID)
	if err != nil {
		logger.Log.Errorw("failed to generate JWT", "err", err)
		return "", nil, err
	}

	return token, account, nil
}
