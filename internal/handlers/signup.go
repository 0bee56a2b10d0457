package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/sbilibin2017/task-tracker/internal/hasher"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

//go:generate mockgen -source=signup.go -destination=signup_mock.go -package=handlers

// Registerer defines the interface that the service must implement.
type Registerer interface {
	Register(ctx context.Context, username, password, email string) (*models.AccountDB, error)
}

// SignupRequest represents the JSON body for account creation
// swagger:model SignupRequest
type SignupRequest struct {
	// Username
	// required: true
	// default: john_doe
	Username string `json:"username"`

	// Email
	// required: true
	// default: john@example.com
	Email string `json:"email"`

	// Password
	// required: true
	// default: secret123
	Password string `json:"password"`
}

// Validate validates the payload.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, hasher.MaxPasswordLength)),
	)
}

// SignupResponse represents a created account. APIKey is only ever returned here and by /token.
// swagger:model SignupResponse
type SignupResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	APIKey   string `json:"api_key"`
}

// NewSignupHandler returns an HTTP handler for account creation.
// @Summary Create an account
// @Description Creates an account with a hashed password and a freshly generated API key. Username and email must be unique.
// @Tags auth
// @Accept json
// @Produce json
// @Param signupRequest body handlers.SignupRequest true "Account creation request"
// @Success 201 {object} handlers.SignupResponse "Account created"
// @Failure 400 {object} handlers.ErrorResponse "Username or email already registered"
// @Failure 422 {object} handlers.ValidationErrorResponse "Invalid payload"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /signup [post]
func NewSignupHandler(svc Registerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:  "Invalid request",
				Fields: err,
			})
			return
		}

		account, err := svc.Register(r.Context(), req.Username, req.Password, req.Email)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUsernameTaken):
				writeError(w, http.StatusBadRequest, "Username already registered")
			case errors.Is(err, services.ErrEmailTaken):
				writeError(w, http.StatusBadRequest, "Email already registered")
			case errors.Is(err, hasher.ErrPasswordTooLong):
				writeError(w, http.StatusUnprocessableEntity, "Password is too long")
			default:
				logger.Log.Errorw("internal server error", "err", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, SignupResponse{
			ID:       account.UserID,
			Username: account.Username,
			Email:    account.Email,
			APIKey:   account.APIKey,
		})
	}
}
