package user

import (
	"context"

	"github.com/vibevault/userservice/pkg/kernel"
)

// Repository is the credential store contract for user records. Lookups
// return ErrUserNotFound when no row exists; soft-deleted rows are still
// returned so callers can apply IsUsable at the policy layer.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	Save(ctx context.Context, u *User) error
}
