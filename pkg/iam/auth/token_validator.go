package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// TokenValidator re-verifies a presented token through an ordered,
// short-circuiting pipeline: session existence first (cheap reject of dead
// tokens), then signature, then session integrity, then each claim. No claim
// value is trusted before the signature has verified.
type TokenValidator struct {
	sessions    SessionRepository
	assignments role.AssignmentRepository
	keys        KeyLocator
	issuer      string
	audience    string
	alg         signingkey.Algorithm
	now         func() time.Time
}

func NewTokenValidator(
	sessions SessionRepository,
	assignments role.AssignmentRepository,
	keys KeyLocator,
	issuer, audience string,
	alg signingkey.Algorithm,
) *TokenValidator {
	return &TokenValidator{
		sessions:    sessions,
		assignments: assignments,
		keys:        keys,
		issuer:      issuer,
		audience:    audience,
		alg:         alg,
		now:         time.Now,
	}
}

// SetClock overrides the time source.
func (v *TokenValidator) SetClock(now func() time.Time) { v.now = now }

// Validate runs the full pipeline and returns the user's live role
// assignments on success.
func (v *TokenValidator) Validate(ctx context.Context, token string) ([]role.Assignment, error) {
	// 1. Session lookup: exact token, ACTIVE, not deleted, not yet expired.
	session, err := v.loadActiveSession(ctx, token)
	if err != nil {
		return nil, err
	}

	// 2. Signature verification, resolving the key by the kid header.
	claims, err := v.parseAndVerify(ctx, token)
	if err != nil {
		return nil, err
	}

	// 3. Integrity of the session object itself.
	owner := session.User
	if !owner.IsUsable() {
		return nil, user.ErrUserNotFound()
	}
	if len(session.Roles) == 0 {
		return nil, role.ErrRoleNotFound()
	}
	for i := range session.Roles {
		if !session.Roles[i].IsUsable() {
			return nil, role.ErrRoleNotFound()
		}
	}

	// 4. Live membership re-check against the credential store.
	live, err := v.liveAssignments(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if !containsRole(live, session.PrimaryRoleName()) {
		return nil, ErrInvalidToken("token role does not match user role")
	}

	// 5. The stored token must be the presented token.
	if session.Token != token {
		return nil, ErrInvalidToken("token does not match session")
	}

	// 6. Claim verification, each check in order.
	if err := v.verifyClaims(ctx, claims, session); err != nil {
		return nil, err
	}

	return live, nil
}

func (v *TokenValidator) loadActiveSession(ctx context.Context, token string) (*Session, error) {
	session, err := v.sessions.FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !session.IsUsable() || session.IsExpired(v.now()) {
		return nil, ErrInvalidToken("invalid or expired session")
	}
	return session, nil
}

// parseAndVerify checks the signature only; claim validation is done
// explicitly afterwards so each failure surfaces with its own error.
func (v *TokenValidator) parseAndVerify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != v.alg.Method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		material, err := v.keys.Locate(ctx, kid)
		if err != nil {
			return nil, err
		}
		return material, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken("invalid token signature").WithCause(err)
	}
	return claims, nil
}

// liveAssignments reloads the user's current usable role assignments.
func (v *TokenValidator) liveAssignments(ctx context.Context, userID kernel.UserID) ([]role.Assignment, error) {
	assignments, err := v.assignments.FindAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Filter into a fresh slice; the repository's backing array must not be
	// rearranged by a read path.
	usable := make([]role.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.User.IsUsable() && a.Role.IsUsable() {
			usable = append(usable, a)
		}
	}
	if len(usable) == 0 {
		return nil, user.ErrUserNotFound()
	}
	return usable, nil
}

func (v *TokenValidator) verifyClaims(ctx context.Context, claims *Claims, session *Session) error {
	now := v.now()

	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(now) || session.ExpiresAt.Before(now) {
		return ErrTokenExpired()
	}
	if claims.Email != session.User.Email {
		return ErrInvalidToken("invalid email")
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != v.audience {
		return ErrInvalidToken("invalid audience")
	}
	if claims.Issuer != v.issuer {
		return ErrInvalidToken("invalid issuer")
	}
	if claims.Subject != session.User.ID.String() {
		return ErrInvalidToken("invalid subject")
	}
	if _, err := kernel.ParseKeyID(claims.ID); err != nil {
		return ErrInvalidToken("invalid jti")
	}
	if _, err := v.keys.Locate(ctx, claims.ID); err != nil {
		return ErrInvalidToken("unknown jti").WithCause(err)
	}
	return nil
}

func containsRole(assignments []role.Assignment, name string) bool {
	for _, a := range assignments {
		if a.Role.Name == name {
			return true
		}
	}
	return false
}
