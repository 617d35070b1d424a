package auth

import "time"

// User represents an operator account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}
