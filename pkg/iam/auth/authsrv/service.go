package authsrv

import (
	"context"
	"strings"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/signingkey/keysrv"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
	"github.com/vibevault/userservice/pkg/logx"
)

// Policy is the credential policy enforced at signup.
type Policy struct {
	MinPasswordLength int
}

// AuthService orchestrates login, signup, token validation and logout,
// enforcing the identity-consistency invariants across users, roles,
// sessions and signing keys.
type AuthService struct {
	users       user.Repository
	roles       role.Repository
	assignments role.AssignmentRepository
	sessions    auth.SessionRepository
	keys        *keysrv.Service
	hasher      auth.PasswordHasher
	clients     auth.ClientInfoProvider
	issuer      *auth.TokenIssuer
	validator   *auth.TokenValidator
	policy      Policy
	now         func() time.Time
}

func NewAuthService(
	users user.Repository,
	roles role.Repository,
	assignments role.AssignmentRepository,
	sessions auth.SessionRepository,
	keys *keysrv.Service,
	hasher auth.PasswordHasher,
	clients auth.ClientInfoProvider,
	issuer *auth.TokenIssuer,
	validator *auth.TokenValidator,
	policy Policy,
) *AuthService {
	return &AuthService{
		users:       users,
		roles:       roles,
		assignments: assignments,
		sessions:    sessions,
		keys:        keys,
		hasher:      hasher,
		clients:     clients,
		issuer:      issuer,
		validator:   validator,
		policy:      policy,
		now:         time.Now,
	}
}

// SetClock overrides the time source.
func (s *AuthService) SetClock(now func() time.Time) { s.now = now }

// Login verifies credentials and opens a new ACTIVE session. A missing user
// and a wrong password both surface as InvalidCredentials so callers cannot
// probe which one it was.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			return nil, auth.ErrInvalidCredentials()
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.Password) {
		return nil, auth.ErrInvalidCredentials()
	}

	assignments, err := s.assignments.FindAssignmentsForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, auth.ErrUserHasNoRole()
	}

	if !u.IsUsable() {
		return nil, user.ErrUserNotFound()
	}
	snapshot := make([]role.Role, 0, len(assignments))
	for _, a := range assignments {
		if a.Role.IsUsable() {
			snapshot = append(snapshot, a.Role)
		}
	}
	if len(snapshot) == 0 {
		return nil, role.ErrRoleNotFound()
	}

	material, kid, err := s.keys.GetOrRotate(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	roleNames := make([]string, len(snapshot))
	for i, r := range snapshot {
		roleNames[i] = r.Name
	}
	token, err := s.issuer.Issue(u, roleNames, material, kid)
	if err != nil {
		return nil, err
	}

	session := &auth.Session{
		ID:        kernel.NewSessionID(),
		UserID:    u.ID,
		Token:     token,
		Device:    s.clients.UserAgent(ctx),
		IPAddress: s.clients.ClientIP(ctx),
		ExpiresAt: s.now().Add(s.issuer.TTL()),
		Status:    auth.SessionActive,
		User:      u,
		Roles:     snapshot,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"user_id":    u.ID.String(),
		"session_id": session.ID.String(),
	}).Info("login succeeded")

	return &auth.LoginResult{Token: token, SessionID: session.ID}, nil
}

// Signup registers a user and assigns the requested role, returning the new
// assignment.
func (s *AuthService) Signup(ctx context.Context, email, password, name, phone, roleName string) (*role.Assignment, error) {
	if email == "" {
		return nil, user.ErrEmptyEmail()
	}
	if password == "" {
		return nil, user.ErrEmptyPassword()
	}
	if phone == "" {
		return nil, user.ErrEmptyPhone()
	}
	if role.NormalizeName(roleName) == "" {
		return nil, role.ErrEmptyRole()
	}
	if len(password) < s.policy.MinPasswordLength {
		return nil, user.ErrWeakPassword().WithDetail("min_length", s.policy.MinPasswordLength)
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, user.ErrEmailAlreadyExists()
	} else if err != nil && !errx.IsCode(err, user.CodeUserNotFound) {
		return nil, err
	}
	if existing, err := s.users.FindByPhone(ctx, phone); err == nil && existing != nil {
		return nil, user.ErrPhoneAlreadyExists()
	} else if err != nil && !errx.IsCode(err, user.CodeUserNotFound) {
		return nil, err
	}

	r, err := s.roles.FindByName(ctx, role.NormalizeName(roleName))
	if err != nil {
		return nil, err
	}
	if !r.IsUsable() {
		return nil, role.ErrRoleNotFound()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}

	first, last := splitName(name)
	u := &user.User{
		ID:          kernel.NewUserID(),
		FirstName:   first,
		LastName:    last,
		Email:       email,
		Password:    hash,
		PhoneNumber: phone,
	}
	// Self-registration: the user is its own creator.
	u.CreatedBy = u.ID
	u.ModifiedBy = u.ID
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}

	assignedAt := s.now().UTC()
	ur := &role.UserRole{
		UserID:     u.ID,
		RoleID:     r.ID,
		AssignedAt: assignedAt,
		AssignedBy: u.ID,
	}
	if err := s.assignments.Save(ctx, ur); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"user_id": u.ID.String(),
		"role":    r.Name,
	}).Info("signup succeeded")

	return &role.Assignment{
		User:       *u,
		Role:       *r,
		AssignedAt: assignedAt,
		AssignedBy: u.ID,
	}, nil
}

// ValidateToken runs the full verification pipeline and returns the user's
// live role assignments.
func (s *AuthService) ValidateToken(ctx context.Context, token string) ([]role.Assignment, error) {
	return s.validator.Validate(ctx, token)
}

// Logout revokes the session behind the token. The token is re-validated
// through the same pipeline as ValidateToken so the two flows cannot
// diverge, and the session may only be closed by its owner.
func (s *AuthService) Logout(ctx context.Context, email, token string) error {
	session, err := s.sessions.FindActiveByToken(ctx, token)
	if err != nil {
		return err
	}
	if session.IsExpired(s.now()) {
		return auth.ErrRegistry.NewWithMessage(auth.CodeTokenExpired, "Token already expired, cannot logout")
	}

	owner := session.User
	if owner == nil {
		return user.ErrUserNotFound()
	}
	if owner.Email != email {
		return auth.ErrInvalidCredentials().WithDetail("reason", "token does not belong to the user")
	}

	live, err := s.validator.Validate(ctx, token)
	if err != nil {
		return err
	}
	resolved := live[0].User
	if resolved.ID != owner.ID || resolved.Email != owner.Email {
		return auth.ErrInvalidCredentials().WithDetail("reason", "token does not belong to the user")
	}

	session.IsDeleted = true
	session.Status = auth.SessionLoggedOut
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"user_id":    owner.ID.String(),
		"session_id": session.ID.String(),
	}).Info("logout succeeded")

	return nil
}

func splitName(name string) (first, last string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
