package keyinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/kernel"
)

// PostgresKeyRepository is the postgres implementation of
// signingkey.Repository.
type PostgresKeyRepository struct {
	db *sqlx.DB
}

func NewPostgresKeyRepository(db *sqlx.DB) signingkey.Repository {
	return &PostgresKeyRepository{db: db}
}

func (r *PostgresKeyRepository) FindMostRecentActiveForUser(ctx context.Context, userID kernel.UserID) (*signingkey.Key, error) {
	var key signingkey.Key
	query := `
		SELECT * FROM signing_keys
		WHERE user_id = $1 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &key, query, userID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, signingkey.ErrSigningKeyNotFound().WithDetail("user_id", userID.String())
		}
		return nil, errx.Wrap(err, "failed to find active signing key", errx.TypeInternal)
	}
	return &key, nil
}

func (r *PostgresKeyRepository) FindAllActiveForUser(ctx context.Context, userID kernel.UserID) ([]signingkey.Key, error) {
	var keys []signingkey.Key
	query := `SELECT * FROM signing_keys WHERE user_id = $1 AND is_deleted = false`
	if err := r.db.SelectContext(ctx, &keys, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list active signing keys", errx.TypeInternal)
	}
	return keys, nil
}

func (r *PostgresKeyRepository) FindByID(ctx context.Context, id kernel.KeyID) (*signingkey.Key, error) {
	var key signingkey.Key
	query := `SELECT * FROM signing_keys WHERE id = $1`
	if err := r.db.GetContext(ctx, &key, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, signingkey.ErrSigningKeyNotFound().WithDetail("kid", id.String())
		}
		return nil, errx.Wrap(err, "failed to find signing key by id", errx.TypeInternal)
	}
	return &key, nil
}

func (r *PostgresKeyRepository) Save(ctx context.Context, k *signingkey.Key) error {
	now := time.Now().UTC()
	if k.CreatedAt.IsZero() {
		k.CreatedAt = now
	}
	k.UpdatedAt = now

	query := `
		INSERT INTO signing_keys (id, user_id, secret, is_deleted, created_at, updated_at)
		VALUES (:id, :user_id, :secret, :is_deleted, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, k); err != nil {
		return errx.Wrap(err, "failed to save signing key", errx.TypeInternal).
			WithDetail("kid", k.ID.String())
	}
	return nil
}

// SaveAll persists a batch of keys, used by rotation to retire old keys in
// one statement.
func (r *PostgresKeyRepository) SaveAll(ctx context.Context, keys []signingkey.Key) error {
	if len(keys) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range keys {
		keys[i].UpdatedAt = now
	}

	query := `
		INSERT INTO signing_keys (id, user_id, secret, is_deleted, created_at, updated_at)
		VALUES (:id, :user_id, :secret, :is_deleted, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, keys); err != nil {
		return errx.Wrap(err, "failed to save signing keys", errx.TypeInternal)
	}
	return nil
}
