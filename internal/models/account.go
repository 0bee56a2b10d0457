package models

import "time"

// AccountDB represents an account record in the database
type AccountDB struct {
	UserID       int64     `json:"id" db:"id"`                 // Primary key
	Username     string    `json:"username" db:"username"`     // Unique username
	Email        string    `json:"email" db:"email"`           // Unique email
	PasswordHash string    `json:"-" db:"hashed_password"`     // bcrypt digest, never serialized
	APIKey       string    `json:"-" db:"api_key"`             // Unique API key, never serialized
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // Creation timestamp
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // Last update timestamp
}

// SameAccount reports whether a and b identify the same account.
func SameAccount(a, b *AccountDB) bool {
	if a == nil || b == nil {
		return false
	}
	return a.UserID == b.UserID
}
