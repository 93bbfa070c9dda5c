package authinfra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/logx"
)

// CachedSessionRepository is a read-through redis cache in front of a
// SessionRepository. Token validation hits FindActiveByToken on every
// request, so active sessions are cached under a digest of their token until
// they expire. The cache is best-effort: redis failures fall back to the
// underlying store and never fail the request.
type CachedSessionRepository struct {
	next auth.SessionRepository
	rdb  *redis.Client
}

func NewCachedSessionRepository(next auth.SessionRepository, rdb *redis.Client) auth.SessionRepository {
	return &CachedSessionRepository{next: next, rdb: rdb}
}

// sessionEnvelope restores the fields the domain types hide from JSON: the
// raw token and the soft-delete flags of the session, its owner, and each
// snapshotted role. Without them a cache hit would present every entity as
// live and skip the deletion checks downstream.
type sessionEnvelope struct {
	auth.Session
	Token        string `json:"token"`
	IsDeleted    bool   `json:"is_deleted"`
	UserDeleted  bool   `json:"user_is_deleted,omitempty"`
	RolesDeleted []bool `json:"roles_is_deleted,omitempty"`
}

func newSessionEnvelope(s *auth.Session) sessionEnvelope {
	env := sessionEnvelope{Session: *s, Token: s.Token, IsDeleted: s.IsDeleted}
	if s.User != nil {
		env.UserDeleted = s.User.IsDeleted
	}
	if len(s.Roles) > 0 {
		env.RolesDeleted = make([]bool, len(s.Roles))
		for i := range s.Roles {
			env.RolesDeleted[i] = s.Roles[i].IsDeleted
		}
	}
	return env
}

func (env *sessionEnvelope) restore() *auth.Session {
	s := env.Session
	s.Token = env.Token
	s.IsDeleted = env.IsDeleted
	if s.User != nil {
		owner := *s.User
		owner.IsDeleted = env.UserDeleted
		s.User = &owner
	}
	for i := range s.Roles {
		if i < len(env.RolesDeleted) {
			s.Roles[i].IsDeleted = env.RolesDeleted[i]
		}
	}
	return &s
}

func (c *CachedSessionRepository) Save(ctx context.Context, s *auth.Session) error {
	if err := c.next.Save(ctx, s); err != nil {
		return err
	}
	// Drop any cached copy so a status flip (logout) is visible immediately.
	if err := c.rdb.Del(ctx, c.key(s.Token)).Err(); err != nil && err != redis.Nil {
		logx.WithError(err).Warn("session cache invalidation failed")
	}
	return nil
}

func (c *CachedSessionRepository) FindActiveByToken(ctx context.Context, token string) (*auth.Session, error) {
	key := c.key(token)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var env sessionEnvelope
		if jerr := json.Unmarshal(data, &env); jerr == nil {
			return env.restore(), nil
		}
	} else if err != redis.Nil {
		logx.WithError(err).Warn("session cache read failed")
	}

	session, err := c.next.FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if ttl := time.Until(session.ExpiresAt); ttl > 0 {
		env := newSessionEnvelope(session)
		if data, jerr := json.Marshal(env); jerr == nil {
			if serr := c.rdb.Set(ctx, key, data, ttl).Err(); serr != nil {
				logx.WithError(serr).Warn("session cache write failed")
			}
		}
	}
	return session, nil
}

func (c *CachedSessionRepository) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "userservice:session:" + hex.EncodeToString(sum[:])
}
