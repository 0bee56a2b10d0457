package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
)

// Unique constraint violations reported by Save.
var (
	ErrUsernameConflict = errors.New("username already exists")
	ErrEmailConflict    = errors.New("email already exists")
	ErrAPIKeyConflict   = errors.New("api key already exists")
)

const uniqueViolationCode = "23505"

const accountColumns = `id, username, email, hashed_password, api_key, created_at, updated_at`

// AccountReadRepository looks accounts up in Postgres.
// Every lookup returns (nil, nil) when no account matches.
type AccountReadRepository struct {
	db *sqlx.DB
}

func NewAccountReadRepository(db *sqlx.DB) *AccountReadRepository {
	return &AccountReadRepository{db: db}
}

func (r *AccountReadRepository) GetByID(ctx context.Context, id int64) (*models.AccountDB, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, []any{id}, id)
}

func (r *AccountReadRepository) GetByUsername(ctx context.Context, username string) (*models.AccountDB, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, []any{username}, username)
}

func (r *AccountReadRepository) GetByEmail(ctx context.Context, email string) (*models.AccountDB, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, []any{email}, email)
}

func (r *AccountReadRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.AccountDB, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE api_key = $1`
	return r.getOne(ctx, query, []any{logger.Mask(apiKey)}, apiKey)
}

// getOne runs a single-row query. logArgs is what gets logged in place of args.
func (r *AccountReadRepository) getOne(ctx context.Context, query string, logArgs []any, args ...any) (*models.AccountDB, error) {
	var account models.AccountDB
	err := r.db.GetContext(ctx, &account, query, args...)

	var result any
	if err == nil {
		result = account.UserID
	}
	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", logArgs,
		"result", result,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AccountWriteRepository inserts accounts into Postgres.
type AccountWriteRepository struct {
	db *sqlx.DB
}

func NewAccountWriteRepository(db *sqlx.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

// Save inserts a new account and returns it with its generated id and timestamps.
// Unique violations are reported as ErrUsernameConflict, ErrEmailConflict or ErrAPIKeyConflict.
func (r *AccountWriteRepository) Save(ctx context.Context, account *models.AccountDB) (*models.AccountDB, error) {
	const query = `
		INSERT INTO users (username, email, hashed_password, api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + accountColumns

	var saved models.AccountDB
	err := r.db.GetContext(ctx, &saved, query,
		account.Username, account.Email, account.PasswordHash, account.APIKey)

	var result any
	if err == nil {
		result = saved.UserID
	}
	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{account.Username, account.Email, "***", logger.Mask(account.APIKey)},
		"result", result,
		"error", err,
	)

	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return &saved, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}

	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrUsernameConflict
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrEmailConflict
	case strings.Contains(pgErr.ConstraintName, "api_key"):
		return ErrAPIKeyConflict
	default:
		return err
	}
}
