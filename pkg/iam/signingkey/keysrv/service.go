package keysrv

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/kernel"
	"github.com/vibevault/userservice/pkg/logx"
)

// Service owns creation, rotation and lookup of per-user signing keys.
//
// Rotation is two ordered writes (soft-delete old keys, then insert the new
// one), not a transaction. Two concurrent rotations may briefly leave two
// active keys; verification is unaffected because it resolves keys by
// explicit id, never by "the active key".
type Service struct {
	repo   signingkey.Repository
	alg    signingkey.Algorithm
	window time.Duration
	now    func() time.Time
}

// NewService creates a key service. window is how long a key is reused for
// issuance before rotation.
func NewService(repo signingkey.Repository, alg signingkey.Algorithm, window time.Duration) *Service {
	return &Service{
		repo:   repo,
		alg:    alg,
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Algorithm returns the signing strategy the service issues keys for.
func (s *Service) Algorithm() signingkey.Algorithm { return s.alg }

// GetOrRotate returns the user's current signing key material and id,
// rotating first when no usable key exists, the key has outlived its window,
// or its stored material no longer decodes.
func (s *Service) GetOrRotate(ctx context.Context, userID kernel.UserID) ([]byte, kernel.KeyID, error) {
	current, err := s.repo.FindMostRecentActiveForUser(ctx, userID)
	if err != nil && !errx.IsCode(err, signingkey.CodeSigningKeyNotFound) {
		return nil, "", err
	}

	if current.IsUsable() && current.Age(s.now()) < s.window {
		material, decErr := base64.StdEncoding.DecodeString(current.Secret)
		if decErr == nil {
			return material, current.ID, nil
		}
		// Undecodable stored material is not fatal for login: rotate instead.
		logx.WithError(decErr).
			WithField("key_id", current.ID.String()).
			Warn("stored key material failed to decode, rotating")
	}

	return s.rotate(ctx, userID)
}

// rotate soft-deletes every active key for the user and then persists a
// freshly generated one. The delete write lands first so two active keys are
// never observable for long.
func (s *Service) rotate(ctx context.Context, userID kernel.UserID) ([]byte, kernel.KeyID, error) {
	active, err := s.repo.FindAllActiveForUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(active) > 0 {
		for i := range active {
			active[i].IsDeleted = true
		}
		if err := s.repo.SaveAll(ctx, active); err != nil {
			return nil, "", err
		}
	}

	material := make([]byte, s.alg.KeySize)
	if _, err := rand.Read(material); err != nil {
		return nil, "", errx.Wrap(err, "failed to generate key material", errx.TypeInternal)
	}

	key := &signingkey.Key{
		ID:        kernel.NewKeyID(),
		UserID:    userID,
		Secret:    base64.StdEncoding.EncodeToString(material),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, key); err != nil {
		return nil, "", err
	}

	logx.WithFields(logx.Fields{
		"user_id": userID.String(),
		"key_id":  key.ID.String(),
	}).Debug("signing key rotated")

	return material, key.ID, nil
}

// Locate resolves raw key-id (a token's kid or jti) to decoded key material.
// Used only for verification, so deletion state is ignored.
func (s *Service) Locate(ctx context.Context, raw string) ([]byte, error) {
	kid, err := kernel.ParseKeyID(raw)
	if err != nil {
		return nil, signingkey.ErrMalformedKeyID().WithDetail("kid", raw)
	}

	key, err := s.repo.FindByID(ctx, kid)
	if err != nil {
		return nil, err
	}

	material, err := base64.StdEncoding.DecodeString(key.Secret)
	if err != nil {
		return nil, signingkey.ErrMalformedKeyMaterial().
			WithDetail("kid", raw).
			WithCause(err)
	}
	return material, nil
}
