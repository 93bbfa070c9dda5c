package role

import (
	"net/http"
	"strings"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// Role is a named permission group. Names are unique and stored in canonical
// upper-case form; NormalizeName is the only place that normalization happens.
type Role struct {
	ID          kernel.RoleID `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	IsDeleted   bool          `db:"is_deleted" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// IsUsable is the single soft-delete predicate for roles.
func (r *Role) IsUsable() bool {
	return r != nil && !r.ID.IsEmpty() && !r.IsDeleted
}

// NormalizeName returns the canonical form of a role name. Only normalized
// names may enter signed token claims.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// UserRole is the many-to-many join between users and roles.
type UserRole struct {
	ID         string        `db:"id" json:"id"`
	UserID     kernel.UserID `db:"user_id" json:"user_id"`
	RoleID     kernel.RoleID `db:"role_id" json:"role_id"`
	AssignedAt time.Time     `db:"assigned_at" json:"assigned_at"`
	AssignedBy kernel.UserID `db:"assigned_by" json:"assigned_by"`
	IsDeleted  bool          `db:"is_deleted" json:"-"`
}

// Assignment is a hydrated user-role pair, the unit authorization decisions
// are made against.
type Assignment struct {
	User       user.User     `json:"user"`
	Role       Role          `json:"role"`
	AssignedAt time.Time     `json:"assigned_at"`
	AssignedBy kernel.UserID `json:"assigned_by"`
}

// RoleNames projects the role names out of a list of assignments.
func RoleNames(assignments []Assignment) []string {
	names := make([]string, 0, len(assignments))
	for _, a := range assignments {
		names = append(names, a.Role.Name)
	}
	return names
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ROLE")

var (
	CodeRoleNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role not found")
	CodeRoleAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Role already exists")
	CodeEmptyRole         = ErrRegistry.Register("EMPTY_ROLE", errx.TypeValidation, http.StatusBadRequest, "Role cannot be empty")
)

func ErrRoleNotFound() *errx.Error      { return ErrRegistry.New(CodeRoleNotFound) }
func ErrRoleAlreadyExists() *errx.Error { return ErrRegistry.New(CodeRoleAlreadyExists) }
func ErrEmptyRole() *errx.Error         { return ErrRegistry.New(CodeEmptyRole) }
