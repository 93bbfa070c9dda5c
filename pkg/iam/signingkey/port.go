package signingkey

import (
	"context"

	"github.com/vibevault/userservice/pkg/kernel"
)

// Repository is the signing-key store contract.
//
// FindByID returns keys regardless of deletion state: rotated-out keys must
// stay resolvable for verifying tokens issued before rotation.
type Repository interface {
	FindMostRecentActiveForUser(ctx context.Context, userID kernel.UserID) (*Key, error)
	FindAllActiveForUser(ctx context.Context, userID kernel.UserID) ([]Key, error)
	FindByID(ctx context.Context, id kernel.KeyID) (*Key, error)
	Save(ctx context.Context, k *Key) error
	SaveAll(ctx context.Context, keys []Key) error
}
