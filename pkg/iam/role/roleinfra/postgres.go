package roleinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// PostgresRoleRepository is the postgres implementation of role.Repository.
type PostgresRoleRepository struct {
	db *sqlx.DB
}

func NewPostgresRoleRepository(db *sqlx.DB) role.Repository {
	return &PostgresRoleRepository{db: db}
}

func (r *PostgresRoleRepository) FindByName(ctx context.Context, name string) (*role.Role, error) {
	var rec role.Role
	query := `SELECT * FROM roles WHERE name = $1`
	if err := r.db.GetContext(ctx, &rec, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrRoleNotFound().WithDetail("name", name)
		}
		return nil, errx.Wrap(err, "failed to find role by name", errx.TypeInternal)
	}
	return &rec, nil
}

func (r *PostgresRoleRepository) FindByID(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	var rec role.Role
	query := `SELECT * FROM roles WHERE id = $1`
	if err := r.db.GetContext(ctx, &rec, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrRoleNotFound().WithDetail("role_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find role by id", errx.TypeInternal)
	}
	return &rec, nil
}

func (r *PostgresRoleRepository) FindAll(ctx context.Context) ([]role.Role, error) {
	var roles []role.Role
	query := `SELECT * FROM roles WHERE is_deleted = false ORDER BY name`
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, errx.Wrap(err, "failed to list roles", errx.TypeInternal)
	}
	return roles, nil
}

func (r *PostgresRoleRepository) Save(ctx context.Context, rec *role.Role) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, rec.ID.String()); err != nil {
		return errx.Wrap(err, "failed to check role existence", errx.TypeInternal)
	}

	now := time.Now().UTC()
	rec.UpdatedAt = now

	if !exists {
		rec.CreatedAt = now
		query := `
			INSERT INTO roles (id, name, description, is_deleted, created_at, updated_at)
			VALUES (:id, :name, :description, :is_deleted, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
				return role.ErrRoleAlreadyExists().WithDetail("name", rec.Name)
			}
			return errx.Wrap(err, "failed to create role", errx.TypeInternal)
		}
		return nil
	}

	query := `
		UPDATE roles SET
			name = :name,
			description = :description,
			is_deleted = :is_deleted,
			updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return role.ErrRoleAlreadyExists().WithDetail("name", rec.Name)
		}
		return errx.Wrap(err, "failed to update role", errx.TypeInternal)
	}
	return nil
}

// PostgresAssignmentRepository is the postgres implementation of
// role.AssignmentRepository.
type PostgresAssignmentRepository struct {
	db *sqlx.DB
}

func NewPostgresAssignmentRepository(db *sqlx.DB) role.AssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

// assignmentRow flattens the user_roles × users × roles join.
type assignmentRow struct {
	AssignedAt time.Time     `db:"assigned_at"`
	AssignedBy kernel.UserID `db:"assigned_by"`
	User       user.User     `db:"u"`
	Role       role.Role     `db:"r"`
}

func (r *PostgresAssignmentRepository) FindAssignmentsForUser(ctx context.Context, userID kernel.UserID) ([]role.Assignment, error) {
	var rows []assignmentRow
	query := `
		SELECT
			ur.assigned_at, ur.assigned_by,
			u.id "u.id", u.first_name "u.first_name", u.last_name "u.last_name",
			u.email "u.email", u.password "u.password", u.phone_number "u.phone_number",
			u.is_deleted "u.is_deleted", u.created_at "u.created_at", u.updated_at "u.updated_at",
			u.created_by "u.created_by", u.modified_by "u.modified_by",
			r.id "r.id", r.name "r.name", r.description "r.description",
			r.is_deleted "r.is_deleted", r.created_at "r.created_at", r.updated_at "r.updated_at"
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.is_deleted = false
		ORDER BY ur.assigned_at`
	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to load role assignments", errx.TypeInternal)
	}

	assignments := make([]role.Assignment, len(rows))
	for i, row := range rows {
		assignments[i] = role.Assignment{
			User:       row.User,
			Role:       row.Role,
			AssignedAt: row.AssignedAt,
			AssignedBy: row.AssignedBy,
		}
	}
	return assignments, nil
}

func (r *PostgresAssignmentRepository) Save(ctx context.Context, ur *role.UserRole) error {
	if ur.ID == "" {
		ur.ID = uuid.NewString()
	}
	query := `
		INSERT INTO user_roles (id, user_id, role_id, assigned_at, assigned_by, is_deleted)
		VALUES (:id, :user_id, :role_id, :assigned_at, :assigned_by, :is_deleted)
		ON CONFLICT (user_id, role_id) DO UPDATE SET
			assigned_at = EXCLUDED.assigned_at,
			assigned_by = EXCLUDED.assigned_by,
			is_deleted = EXCLUDED.is_deleted`
	if _, err := r.db.NamedExecContext(ctx, query, ur); err != nil {
		return errx.Wrap(err, "failed to save role assignment", errx.TypeInternal).
			WithDetail("user_id", ur.UserID.String()).
			WithDetail("role_id", ur.RoleID.String())
	}
	return nil
}

func (r *PostgresAssignmentRepository) CountForRole(ctx context.Context, roleID kernel.RoleID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_roles WHERE role_id = $1 AND is_deleted = false`
	if err := r.db.GetContext(ctx, &count, query, roleID.String()); err != nil {
		return 0, errx.Wrap(err, "failed to count role assignments", errx.TypeInternal)
	}
	return count, nil
}
