package signingkey

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/kernel"
)

// Key is a symmetric signing key owned by one user. The secret is stored
// base64-encoded. Superseded keys are soft-deleted, never purged, so tokens
// signed before rotation stay verifiable by explicit key id.
type Key struct {
	ID        kernel.KeyID  `db:"id" json:"id"`
	UserID    kernel.UserID `db:"user_id" json:"user_id"`
	Secret    string        `db:"secret" json:"-"`
	IsDeleted bool          `db:"is_deleted" json:"-"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// IsUsable is the single soft-delete predicate for signing keys.
func (k *Key) IsUsable() bool {
	return k != nil && !k.ID.IsEmpty() && !k.IsDeleted
}

// Age returns how long ago the key was created.
func (k *Key) Age(now time.Time) time.Duration {
	return now.Sub(k.CreatedAt)
}

// Algorithm is the signing strategy: the HMAC method tokens are signed with
// and the size of generated key material. Injected rather than hardcoded so
// tests can supply the same value explicitly.
type Algorithm struct {
	Method  *jwt.SigningMethodHMAC
	KeySize int
}

// DefaultAlgorithm is HMAC-SHA-512 with a 512-bit key.
func DefaultAlgorithm() Algorithm {
	return Algorithm{Method: jwt.SigningMethodHS512, KeySize: 64}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("KEY")

var (
	CodeSigningKeyNotFound   = ErrRegistry.Register("NOT_FOUND", errx.TypeAuthorization, http.StatusUnauthorized, "Signing key not found")
	CodeMalformedKeyID       = ErrRegistry.Register("MALFORMED_ID", errx.TypeAuthorization, http.StatusUnauthorized, "Malformed key identifier")
	CodeMalformedKeyMaterial = ErrRegistry.Register("MALFORMED_MATERIAL", errx.TypeInternal, http.StatusInternalServerError, "Malformed key material")
)

func ErrSigningKeyNotFound() *errx.Error   { return ErrRegistry.New(CodeSigningKeyNotFound) }
func ErrMalformedKeyID() *errx.Error       { return ErrRegistry.New(CodeMalformedKeyID) }
func ErrMalformedKeyMaterial() *errx.Error { return ErrRegistry.New(CodeMalformedKeyMaterial) }
