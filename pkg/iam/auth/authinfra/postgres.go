package authinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/iam/user"
)

// PostgresSessionRepository is the postgres implementation of
// auth.SessionRepository. The role snapshot lives in session_roles and is
// written once at session creation.
type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) auth.SessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Save(ctx context.Context, s *auth.Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO sessions (
			id, user_id, token, device, ip_address, expires_at,
			status, is_deleted, created_at, updated_at
		) VALUES (
			:id, :user_id, :token, :device, :ip_address, :expires_at,
			:status, :is_deleted, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			// Another ACTIVE session already holds this exact token value.
			return auth.ErrDuplicateSession().WithDetail("session_id", s.ID.String())
		}
		return errx.Wrap(err, "failed to save session", errx.TypeInternal).
			WithDetail("session_id", s.ID.String())
	}

	for i, snap := range s.Roles {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO session_roles (session_id, role_id, position) VALUES ($1, $2, $3)
			 ON CONFLICT (session_id, role_id) DO NOTHING`,
			s.ID.String(), snap.ID.String(), i)
		if err != nil {
			return errx.Wrap(err, "failed to save session role snapshot", errx.TypeInternal).
				WithDetail("session_id", s.ID.String())
		}
	}
	return nil
}

// FindActiveByToken loads the ACTIVE session with this exact token value,
// hydrated with its owning user and role snapshot.
func (r *PostgresSessionRepository) FindActiveByToken(ctx context.Context, token string) (*auth.Session, error) {
	var s auth.Session
	query := `SELECT * FROM sessions WHERE token = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &s, query, token, auth.SessionActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrInvalidToken("invalid or expired session")
		}
		return nil, errx.Wrap(err, "failed to find session by token", errx.TypeInternal)
	}

	var owner user.User
	if err := r.db.GetContext(ctx, &owner,
		`SELECT * FROM users WHERE id = $1`, s.UserID.String()); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errx.Wrap(err, "failed to load session user", errx.TypeInternal)
		}
		// Missing owner row: leave User nil for the validator to reject.
	} else {
		s.User = &owner
	}

	// Snapshot order matters: position 0 is the primary role the validator
	// re-checks against live membership.
	var snapshot []role.Role
	if err := r.db.SelectContext(ctx, &snapshot, `
		SELECT r.* FROM roles r
		JOIN session_roles sr ON sr.role_id = r.id
		WHERE sr.session_id = $1
		ORDER BY sr.position`, s.ID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to load session role snapshot", errx.TypeInternal)
	}
	s.Roles = snapshot

	return &s, nil
}
