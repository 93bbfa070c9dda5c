package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// PostgresUserRepository is the postgres implementation of user.Repository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE phone_number = $1`
	if err := r.db.GetContext(ctx, &u, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by phone", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	return &u, nil
}

// Save inserts the user, or updates it when the id already exists.
func (r *PostgresUserRepository) Save(ctx context.Context, u *user.User) error {
	exists, err := r.userExists(ctx, u.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	u.UpdatedAt = now
	if !exists {
		u.CreatedAt = now
		return r.create(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *PostgresUserRepository) create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, first_name, last_name, email, password, phone_number,
			is_deleted, created_at, updated_at, created_by, modified_by
		) VALUES (
			:id, :first_name, :last_name, :email, :password, :phone_number,
			:is_deleted, :created_at, :updated_at, :created_by, :modified_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			if pqErr.Constraint == "users_phone_number_key" {
				return user.ErrPhoneAlreadyExists()
			}
			return user.ErrEmailAlreadyExists()
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}
	return nil
}

func (r *PostgresUserRepository) update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			first_name = :first_name,
			last_name = :last_name,
			email = :email,
			password = :password,
			phone_number = :phone_number,
			is_deleted = :is_deleted,
			updated_at = :updated_at,
			modified_by = :modified_by
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return errx.Wrap(err, "failed to update user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if affected == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) userExists(ctx context.Context, id kernel.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id.String()); err != nil {
		return false, errx.Wrap(err, "failed to check user existence", errx.TypeInternal)
	}
	return exists, nil
}
