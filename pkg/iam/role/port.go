package role

import (
	"context"

	"github.com/vibevault/userservice/pkg/kernel"
)

// Repository is the role store contract. Name lookups expect the canonical
// (normalized) form.
type Repository interface {
	FindByName(ctx context.Context, name string) (*Role, error)
	FindByID(ctx context.Context, id kernel.RoleID) (*Role, error)
	FindAll(ctx context.Context) ([]Role, error)
	Save(ctx context.Context, r *Role) error
}

// AssignmentRepository is the user-role join contract.
//
// FindAssignmentsForUser returns the user's non-deleted assignment rows with
// role records hydrated as stored, soft-deleted roles included, so policy
// layers can distinguish "no assignment" from "all roles removed".
type AssignmentRepository interface {
	FindAssignmentsForUser(ctx context.Context, userID kernel.UserID) ([]Assignment, error)
	Save(ctx context.Context, ur *UserRole) error
	CountForRole(ctx context.Context, roleID kernel.RoleID) (int, error)
}
