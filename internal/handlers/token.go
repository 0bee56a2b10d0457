package handlers

import (
	"context"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

//go:generate mockgen -source=token.go -destination=token_mock.go -package=handlers

// Loginer defines the interface that the service must implement.
type Loginer interface {
	Login(ctx context.Context, username, password string) (string, *models.AccountDB, error)
}

// TokenRequest holds the form fields of a login.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the form.
func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse carries the access token and the account's API key
// swagger:model TokenResponse
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	// default: bearer
	TokenType string `json:"token_type"`
	APIKey    string `json:"api_key"`
}

// NewTokenHandler returns an HTTP handler that exchanges a username and password for an access token.
// @Summary Log in
// @Description Verifies the password and issues a signed access token. The account's API key is returned alongside it.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} handlers.TokenResponse "Access token"
// @Failure 401 {object} handlers.ErrorResponse "Incorrect username or password"
// @Failure 422 {object} handlers.ValidationErrorResponse "Invalid form"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /token [post]
func NewTokenHandler(svc Loginer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req := TokenRequest{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:  "Invalid request",
				Fields: err,
			})
			return
		}

		token, account, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "Incorrect username or password")
				return
			}
			logger.Log.Errorw("internal server error", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			APIKey:      account.APIKey,
		})
	}
}
