package auth

import "context"

// SessionRepository is the session store contract.
//
// FindActiveByToken matches the exact token value with status ACTIVE and
// returns the session hydrated with its user and role snapshot, or
// ErrInvalidToken when no such session exists. Save upserts: it creates new
// sessions and persists status/deletion flips.
type SessionRepository interface {
	Save(ctx context.Context, s *Session) error
	FindActiveByToken(ctx context.Context, token string) (*Session, error)
}

// PasswordHasher is the opaque password hashing capability.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// KeyLocator resolves a token's key identifier (kid or jti) to decoded
// signing-key material, for verification only.
type KeyLocator interface {
	Locate(ctx context.Context, kid string) ([]byte, error)
}

// ClientInfoProvider supplies best-effort client metadata for session
// records. Implementations default to "0.0.0.0" and "Unknown" when the
// request context carries nothing.
type ClientInfoProvider interface {
	ClientIP(ctx context.Context) string
	UserAgent(ctx context.Context) string
}
