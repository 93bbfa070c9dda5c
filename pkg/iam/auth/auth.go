package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive      SessionStatus = "ACTIVE"
	SessionLoggedOut   SessionStatus = "LOGGED_OUT"
	SessionExpired     SessionStatus = "EXPIRED"
	SessionBlacklisted SessionStatus = "BLACKLISTED"
)

// Session is one successful login: the signed token, the owning user, a
// snapshot of the roles held at login time, and client metadata. Created
// ACTIVE; mutated only to flip status and deletion on logout.
type Session struct {
	ID        kernel.SessionID `db:"id" json:"id"`
	UserID    kernel.UserID    `db:"user_id" json:"user_id"`
	Token     string           `db:"token" json:"-"`
	Device    string           `db:"device" json:"device"`
	IPAddress string           `db:"ip_address" json:"ip_address"`
	ExpiresAt time.Time        `db:"expires_at" json:"expires_at"`
	Status    SessionStatus    `db:"status" json:"status"`
	IsDeleted bool             `db:"is_deleted" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`

	// User and Roles are hydrated on load: the owning user record and the
	// role snapshot captured at login.
	User  *user.User  `db:"-" json:"user,omitempty"`
	Roles []role.Role `db:"-" json:"roles,omitempty"`
}

// IsExpired reports whether the session's expiry is in the past.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsUsable is the single soft-delete predicate for sessions.
func (s *Session) IsUsable() bool {
	return s != nil && !s.ID.IsEmpty() && !s.IsDeleted
}

// PrimaryRoleName returns the first snapshotted role name, the one re-checked
// against live membership at validation time.
func (s *Session) PrimaryRoleName() string {
	if len(s.Roles) == 0 {
		return ""
	}
	return s.Roles[0].Name
}

// Claims is the token claim set: the registered claims plus the user's email
// and snapshotted role names.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token     string           `json:"token"`
	SessionID kernel.SessionID `json:"session_id"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid credentials")
	CodeInvalidToken       = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid token")
	CodeTokenExpired       = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Token expired")
	CodeUserHasNoRole      = ErrRegistry.Register("USER_HAS_NO_ROLE", errx.TypeAuthorization, http.StatusUnauthorized, "User has no role")
	CodeDuplicateSession   = ErrRegistry.Register("DUPLICATE_SESSION", errx.TypeConflict, http.StatusConflict, "An active session already exists for this token")
)

func ErrInvalidCredentials() *errx.Error { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrTokenExpired() *errx.Error       { return ErrRegistry.New(CodeTokenExpired) }
func ErrUserHasNoRole() *errx.Error      { return ErrRegistry.New(CodeUserHasNoRole) }
func ErrDuplicateSession() *errx.Error   { return ErrRegistry.New(CodeDuplicateSession) }

// ErrInvalidToken carries the specific structural or claim mismatch reason.
func ErrInvalidToken(reason string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeInvalidToken, reason)
}
