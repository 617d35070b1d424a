package auth

import (
	"context"
	"strings"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// UserWriter stores operator accounts.
type UserWriter interface {
	UpsertUser(ctx context.Context, email, passwordHash string) (int64, error)
}

var _ UserWriter = (*PGRepository)(nil)

type provisionInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Provision creates or re-activates an operator account with the given
// password.
func Provision(ctx context.Context, w UserWriter, email, password string) (int64, error) {
	in := provisionInput{Email: strings.TrimSpace(email), Password: password}
	if err := httpx.Validate(in); err != nil {
		return 0, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return w.UpsertUser(ctx, in.Email, hash)
}
