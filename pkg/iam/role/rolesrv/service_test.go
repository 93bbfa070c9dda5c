package rolesrv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/role/rolesrv"
	"github.com/vibevault/userservice/pkg/kernel"
)

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
		if !rl.IsDeleted {
			out = append(out, *rl)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) Save(_ context.Context, rl *role.Role) error {
	r.roles[rl.ID] = rl
	return nil
}

// unavailableRoleRepo simulates a store whose lookups fail outright.
type unavailableRoleRepo struct {
	*fakeRoleRepo
	findErr error
}

func (r *unavailableRoleRepo) FindByName(_ context.Context, _ string) (*role.Role, error) {
	return nil, r.findErr
}

func TestCreate_NormalizesName(t *testing.T) {
	svc := rolesrv.NewRoleService(newFakeRoleRepo())

	r, err := svc.Create(context.Background(), "  moderator ", "forum moderation")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if r.Name != "MODERATOR" {
		t.Fatalf("expected canonical name MODERATOR, got %q", r.Name)
	}
	if r.ID.IsEmpty() {
		t.Fatal("expected an id")
	}
}

func TestCreate_EmptyName(t *testing.T) {
	svc := rolesrv.NewRoleService(newFakeRoleRepo())

	_, err := svc.Create(context.Background(), "   ", "")
	if !errx.IsCode(err, role.CodeEmptyRole) {
		t.Fatalf("expected EmptyRole, got %v", err)
	}
}

func TestCreate_DuplicateAcrossCase(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := rolesrv.NewRoleService(repo)

	if _, err := svc.Create(context.Background(), "ADMIN", ""); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), "admin", "")
	if !errx.IsCode(err, role.CodeRoleAlreadyExists) {
		t.Fatalf("expected RoleAlreadyExists, got %v", err)
	}
}

func TestCreate_LookupFailureIsNotADuplicate(t *testing.T) {
	repo := &unavailableRoleRepo{
		fakeRoleRepo: newFakeRoleRepo(),
		findErr:      errx.Wrap(errors.New("connection refused"), "failed to find role", errx.TypeInternal),
	}
	svc := rolesrv.NewRoleService(repo)

	_, err := svc.Create(context.Background(), "AUDITOR", "")
	if err == nil {
		t.Fatal("expected the store failure to surface")
	}
	if errx.IsCode(err, role.CodeRoleAlreadyExists) {
		t.Fatalf("store failure misread as a duplicate: %v", err)
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Type != errx.TypeInternal {
		t.Fatalf("expected the internal error to pass through, got %v", err)
	}
	if len(repo.roles) != 0 {
		t.Fatal("nothing should be saved when the uniqueness check fails")
	}
}

func TestUpdate_KeepsUnsetFields(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := rolesrv.NewRoleService(repo)

	created, err := svc.Create(context.Background(), "SUPPORT", "support staff")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, "", "tier-1 support staff")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "SUPPORT" {
		t.Fatalf("empty name should keep current, got %q", updated.Name)
	}
	if updated.Description != "tier-1 support staff" {
		t.Fatalf("description not updated: %q", updated.Description)
	}
}

func TestUpdate_UnknownRole(t *testing.T) {
	svc := rolesrv.NewRoleService(newFakeRoleRepo())

	_, err := svc.Update(context.Background(), kernel.NewRoleID(), "X", "")
	if !errx.IsCode(err, role.CodeRoleNotFound) {
		t.Fatalf("expected RoleNotFound, got %v", err)
	}
}

func TestList_EmptyCatalog(t *testing.T) {
	svc := rolesrv.NewRoleService(newFakeRoleRepo())

	_, err := svc.List(context.Background())
	if !errx.IsCode(err, role.CodeRoleNotFound) {
		t.Fatalf("expected RoleNotFound for empty catalog, got %v", err)
	}
}

func TestList_ReturnsRoles(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := rolesrv.NewRoleService(repo)

	for _, name := range []string{"ADMIN", "USER"} {
		if _, err := svc.Create(context.Background(), name, ""); err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
	}

	roles, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
}
