package authsrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/auth/authsrv"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/iam/signingkey/keysrv"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// --- in-memory fakes ---

type fakeUserRepo struct {
	users map[kernel.UserID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[kernel.UserID]*user.User)}
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*user.User, error) {
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	return u, nil
}

func (r *fakeUserRepo) Save(_ context.Context, u *user.User) error {
	r.users[u.ID] = u
	return nil
}

type fakeRoleRepo struct {
	roles map[kernel.RoleID]*role.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[kernel.RoleID]*role.Role)}
}

func (r *fakeRoleRepo) FindByName(_ context.Context, name string) (*role.Role, error) {
	for _, rl := range r.roles {
		if rl.Name == name {
			return rl, nil
		}
	}
	return nil, role.ErrRoleNotFound()
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id kernel.RoleID) (*role.Role, error) {
	rl, ok := r.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound()
	}
	return rl, nil
}

func (r *fakeRoleRepo) FindAll(_ context.Context) ([]role.Role, error) {
	var out []role.Role
	for _, rl := range r.roles {
		out = append(out, *rl)
	}
	return out, nil
}

func (r *fakeRoleRepo) Save(_ context.Context, rl *role.Role) error {
	r.roles[rl.ID] = rl
	return nil
}

type fakeAssignmentRepo struct {
	users map[kernel.UserID]*user.User
	roles map[kernel.RoleID]*role.Role
	rows  []role.UserRole
}

func (r *fakeAssignmentRepo) FindAssignmentsForUser(_ context.Context, userID kernel.UserID) ([]role.Assignment, error) {
	var out []role.Assignment
	for _, row := range r.rows {
		if row.UserID != userID || row.IsDeleted {
			continue
		}
		out = append(out, role.Assignment{
			User:       *r.users[row.UserID],
			Role:       *r.roles[row.RoleID],
			AssignedAt: row.AssignedAt,
			AssignedBy: row.AssignedBy,
		})
	}
	return out, nil
}

func (r *fakeAssignmentRepo) Save(_ context.Context, ur *role.UserRole) error {
	r.rows = append(r.rows, *ur)
	return nil
}

func (r *fakeAssignmentRepo) CountForRole(_ context.Context, roleID kernel.RoleID) (int, error) {
	n := 0
	for _, row := range r.rows {
		if row.RoleID == roleID && !row.IsDeleted {
			n++
		}
	}
	return n, nil
}

type fakeSessionRepo struct {
	sessions map[string]*auth.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (r *fakeSessionRepo) Save(_ context.Context, s *auth.Session) error {
	r.sessions[s.Token] = s
	return nil
}

func (r *fakeSessionRepo) FindActiveByToken(_ context.Context, token string) (*auth.Session, error) {
	s, ok := r.sessions[token]
	if !ok || s.Status != auth.SessionActive {
		return nil, auth.ErrInvalidToken("invalid or expired session")
	}
	return s, nil
}

type fakeKeyRepo struct {
	keys map[kernel.KeyID]*signingkey.Key
}

func (r *fakeKeyRepo) FindMostRecentActiveForUser(_ context.Context, userID kernel.UserID) (*signingkey.Key, error) {
	var newest *signingkey.Key
	for _, k := range r.keys {
		if k.UserID != userID || k.IsDeleted {
			continue
		}
		if newest == nil || k.CreatedAt.After(newest.CreatedAt) {
			newest = k
		}
	}
	if newest == nil {
		return nil, signingkey.ErrSigningKeyNotFound()
	}
	return newest, nil
}

func (r *fakeKeyRepo) FindAllActiveForUser(_ context.Context, userID kernel.UserID) ([]signingkey.Key, error) {
	var out []signingkey.Key
	for _, k := range r.keys {
		if k.UserID == userID && !k.IsDeleted {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) FindByID(_ context.Context, id kernel.KeyID) (*signingkey.Key, error) {
	k, ok := r.keys[id]
	if !ok {
		return nil, signingkey.ErrSigningKeyNotFound()
	}
	return k, nil
}

func (r *fakeKeyRepo) Save(_ context.Context, k *signingkey.Key) error {
	copied := *k
	r.keys[k.ID] = &copied
	return nil
}

func (r *fakeKeyRepo) SaveAll(_ context.Context, keys []signingkey.Key) error {
	for i := range keys {
		copied := keys[i]
		r.keys[copied.ID] = &copied
	}
	return nil
}

// plainHasher avoids bcrypt cost in tests; the contract under test is the
// service logic, not the hash function.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool    { return "hashed:"+plain == hash }

type staticClientInfo struct{}

func (staticClientInfo) ClientIP(context.Context) string  { return "203.0.113.7" }
func (staticClientInfo) UserAgent(context.Context) string { return "test-agent" }

// --- fixture ---

type fixture struct {
	svc         *authsrv.AuthService
	users       *fakeUserRepo
	roles       *fakeRoleRepo
	assignments *fakeAssignmentRepo
	sessions    *fakeSessionRepo

	admin     *user.User
	adminRole *role.Role
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alg := signingkey.DefaultAlgorithm()

	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	assignments := &fakeAssignmentRepo{users: users.users, roles: roles.roles}
	sessions := newFakeSessionRepo()
	keys := keysrv.NewService(&fakeKeyRepo{keys: make(map[kernel.KeyID]*signingkey.Key)}, alg, 7*24*time.Hour)

	issuer := auth.NewTokenIssuer("vibevault", "vibevault-userservice: auth", 24*time.Hour, alg)
	validator := auth.NewTokenValidator(sessions, assignments, keys, "vibevault", "vibevault-userservice: auth", alg)

	svc := authsrv.NewAuthService(
		users, roles, assignments, sessions, keys,
		plainHasher{}, staticClientInfo{}, issuer, validator,
		authsrv.Policy{MinPasswordLength: 10},
	)

	f := &fixture{
		svc:         svc,
		users:       users,
		roles:       roles,
		assignments: assignments,
		sessions:    sessions,
	}

	f.adminRole = &role.Role{ID: kernel.NewRoleID(), Name: "ADMIN"}
	roles.roles[f.adminRole.ID] = f.adminRole
	userRole := &role.Role{ID: kernel.NewRoleID(), Name: "USER"}
	roles.roles[userRole.ID] = userRole

	f.admin = &user.User{
		ID:          kernel.NewUserID(),
		FirstName:   "John",
		Email:       "john@x.com",
		Password:    "hashed:pw12345678",
		PhoneNumber: "555-0100",
	}
	users.users[f.admin.ID] = f.admin
	assignments.rows = append(assignments.rows, role.UserRole{
		UserID:     f.admin.ID,
		RoleID:     f.adminRole.ID,
		AssignedAt: time.Now(),
		AssignedBy: f.admin.ID,
	})

	return f
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if result.Token == "" || result.SessionID.IsEmpty() {
		t.Fatalf("incomplete login result: %+v", result)
	}

	session := f.sessions.sessions[result.Token]
	if session == nil {
		t.Fatal("expected a persisted session")
	}
	if session.Status != auth.SessionActive {
		t.Fatalf("expected ACTIVE session, got %s", session.Status)
	}
	if session.IPAddress != "203.0.113.7" || session.Device != "test-agent" {
		t.Fatalf("client info not recorded: %+v", session)
	}
	if len(session.Roles) != 1 || session.Roles[0].Name != "ADMIN" {
		t.Fatalf("expected ADMIN snapshot, got %+v", session.Roles)
	}
}

func TestLogin_ThenValidateRoundTrip(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	live, err := f.svc.ValidateToken(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("expected issued token to validate, got %v", err)
	}
	if len(live) != 1 || live[0].Role.Name != "ADMIN" {
		t.Fatalf("expected live ADMIN assignment, got %+v", live)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "john@x.com", "wrong-password")
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUserSameError(t *testing.T) {
	f := newFixture(t)

	// Absent user and wrong password must be indistinguishable.
	_, err := f.svc.Login(context.Background(), "nobody@x.com", "pw12345678")
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
}

func TestLogin_UserWithoutRole(t *testing.T) {
	f := newFixture(t)

	lonely := &user.User{
		ID:          kernel.NewUserID(),
		Email:       "lonely@x.com",
		Password:    "hashed:pw12345678",
		PhoneNumber: "555-0101",
	}
	f.users.users[lonely.ID] = lonely

	_, err := f.svc.Login(context.Background(), "lonely@x.com", "pw12345678")
	if !errx.IsCode(err, auth.CodeUserHasNoRole) {
		t.Fatalf("expected UserHasNoRole, got %v", err)
	}
}

func TestLogin_DeletedUser(t *testing.T) {
	f := newFixture(t)
	f.admin.IsDeleted = true

	_, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if !errx.IsCode(err, user.CodeUserNotFound) {
		t.Fatalf("expected UserNotFound, got %v", err)
	}
}

func TestLogin_ReusesSigningKeyAcrossSessions(t *testing.T) {
	f := newFixture(t)

	r1, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	r2, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	// Both tokens were signed inside the key window, so both must validate.
	if _, err := f.svc.ValidateToken(context.Background(), r1.Token); err != nil {
		t.Fatalf("first token failed to validate: %v", err)
	}
	if _, err := f.svc.ValidateToken(context.Background(), r2.Token); err != nil {
		t.Fatalf("second token failed to validate: %v", err)
	}
}

// --- Signup ---

func TestSignup_Success(t *testing.T) {
	f := newFixture(t)

	assignment, err := f.svc.Signup(context.Background(), "jane@x.com", "longenough1", "Jane Doe", "555-0200", "user")
	if err != nil {
		t.Fatalf("expected signup to succeed, got %v", err)
	}
	if assignment.Role.Name != "USER" {
		t.Fatalf("expected normalized USER role, got %s", assignment.Role.Name)
	}
	if assignment.User.FirstName != "Jane" || assignment.User.LastName != "Doe" {
		t.Fatalf("name not split: %+v", assignment.User)
	}
	if assignment.User.Password == "longenough1" {
		t.Fatal("password stored in plain text")
	}
	if assignment.AssignedBy != assignment.User.ID {
		t.Fatal("expected self-assigned signup")
	}

	// The new user can log in immediately.
	if _, err := f.svc.Login(context.Background(), "jane@x.com", "longenough1"); err != nil {
		t.Fatalf("new user failed to log in: %v", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		phone    string
		role     string
		want     *errx.ErrorCode
	}{
		{"empty email", "", "longenough1", "555-1", "USER", user.CodeEmptyEmail},
		{"empty password", "a@x.com", "", "555-1", "USER", user.CodeEmptyPassword},
		{"empty phone", "a@x.com", "longenough1", "", "USER", user.CodeEmptyPhone},
		{"empty role", "a@x.com", "longenough1", "555-1", "  ", role.CodeEmptyRole},
		{"weak password", "a@x.com", "short", "555-1", "USER", user.CodeWeakPassword},
		{"duplicate email", "john@x.com", "longenough1", "555-9", "USER", user.CodeEmailAlreadyExists},
		{"duplicate phone", "a@x.com", "longenough1", "555-0100", "USER", user.CodePhoneAlreadyExists},
		{"unknown role", "a@x.com", "longenough1", "555-1", "WIZARD", role.CodeRoleNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Signup(ctx, tc.email, tc.password, "A B", tc.phone, tc.role)
			if !errx.IsCode(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want.Code, err)
			}
		})
	}
}

// --- Logout ---

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.svc.Logout(context.Background(), "john@x.com", result.Token); err != nil {
		t.Fatalf("expected logout to succeed, got %v", err)
	}

	session := f.sessions.sessions[result.Token]
	if session.Status != auth.SessionLoggedOut || !session.IsDeleted {
		t.Fatalf("session not revoked: status=%s deleted=%v", session.Status, session.IsDeleted)
	}

	if _, err := f.svc.ValidateToken(context.Background(), result.Token); err == nil {
		t.Fatal("expected revoked token to fail validation")
	}
}

func TestLogout_WrongOwner(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err = f.svc.Logout(context.Background(), "intruder@x.com", result.Token)
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}

	// The session must remain open.
	if _, err := f.svc.ValidateToken(context.Background(), result.Token); err != nil {
		t.Fatalf("session should still be valid, got %v", err)
	}
}

func TestLogout_ExpiredSession(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), "john@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	f.svc.SetClock(func() time.Time { return time.Now().Add(25 * time.Hour) })

	err = f.svc.Logout(context.Background(), "john@x.com", result.Token)
	if !errx.IsCode(err, auth.CodeTokenExpired) {
		t.Fatalf("expected TokenExpired, got %v", err)
	}
}

func TestLogout_UnknownToken(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Logout(context.Background(), "john@x.com", "no-such-token")
	if !errx.IsCode(err, auth.CodeInvalidToken) {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}
