package rolesrv

import (
	"context"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/kernel"
	"github.com/vibevault/userservice/pkg/logx"
)

// RoleService administers the role catalog.
type RoleService struct {
	repo role.Repository
}

func NewRoleService(repo role.Repository) *RoleService {
	return &RoleService{repo: repo}
}

// Create adds a role under its canonical name.
func (s *RoleService) Create(ctx context.Context, name, description string) (*role.Role, error) {
	normalized := role.NormalizeName(name)
	if normalized == "" {
		return nil, role.ErrEmptyRole()
	}

	existing, err := s.repo.FindByName(ctx, normalized)
	if err != nil && !errx.IsCode(err, role.CodeRoleNotFound) {
		return nil, err
	}
	if err == nil && existing != nil {
		return nil, role.ErrRoleAlreadyExists().WithDetail("name", normalized)
	}

	r := &role.Role{
		ID:          kernel.NewRoleID(),
		Name:        normalized,
		Description: description,
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}

	logx.WithField("role", r.Name).Info("role created")
	return r, nil
}

// Update changes a role's name and/or description. Empty arguments leave the
// current value in place.
func (s *RoleService) Update(ctx context.Context, id kernel.RoleID, name, description string) (*role.Role, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if normalized := role.NormalizeName(name); normalized != "" && normalized != r.Name {
		r.Name = normalized
	}
	if description != "" && description != r.Description {
		r.Description = description
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetByID returns a single role.
func (s *RoleService) GetByID(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all roles, failing when the catalog is empty.
func (s *RoleService) List(ctx context.Context) ([]role.Role, error) {
	roles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, role.ErrRoleNotFound().WithDetail("reason", "no roles defined")
	}
	return roles, nil
}
