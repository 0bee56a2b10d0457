package middlewares

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=middlewares

// APIKeyHeader carries the account's API key on protected routes.
const APIKeyHeader = "X-API-Key"

// Tokener extracts the bearer token from a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// Resolver resolves the bearer token and API key to a single account.
type Resolver interface {
	Resolve(ctx context.Context, token, apiKey string) (*models.AccountDB, error)
}

type principalKey struct{}

// PrincipalFromContext returns the authenticated account. Returns nil if not present.
func PrincipalFromContext(ctx context.Context) *models.AccountDB {
	account, _ := ctx.Value(principalKey{}).(*models.AccountDB)
	return account
}

// WithPrincipal stores the authenticated account in the context.
func WithPrincipal(ctx context.Context, account *models.AccountDB) context.Context {
	return context.WithValue(ctx, principalKey{}, account)
}

// AuthMiddleware admits a request only when its bearer token and X-API-Key
// both resolve to the same account. Every authorization failure gets the same
// 401 body; the precise reason is only logged.
func AuthMiddleware(tokener Tokener, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := tokener.GetTokenFromRequest(ctx, r)
			if err != nil {
				logger.Log.Warnw("authorization failed", "err", err)
				unauthorized(w)
				return
			}

			apiKey := r.Header.Get(APIKeyHeader)

			account, err := resolver.Resolve(ctx, token, apiKey)
			if err != nil {
				if services.IsUnauthorized(err) {
					logger.Log.Warnw("authorization failed", "api_key", logger.Mask(apiKey), "err", err)
					unauthorized(w)
					return
				}
				logger.Log.Errorw("failed to resolve principal", "err", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, account)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "Could not validate credentials")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
