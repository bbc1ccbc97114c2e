// internal/pkg/session/manager.go
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	identityIndexKey = "identity_sessions:"
)

// Session is one live login, addressed by its token jti.
type Session struct {
	ID         string    `json:"id"`
	IdentityID int64     `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Manager keeps the set of live sessions in Redis so logout can revoke
// tokens before they expire.
type Manager struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &Manager{rdb: rdb, ttl: ttl}
}

// Create registers a new session and returns its id for use as the token jti.
func (m *Manager) Create(ctx context.Context, identityID int64) (*Session, error) {
	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	sess := &Session{
		ID:         id,
		IdentityID: identityID,
		CreatedAt:  time.Now(),
	}

	pipe := m.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKeyPrefix+id,
		"identity_id", identityID,
		"created_at", sess.CreatedAt.Unix(),
	)
	pipe.Expire(ctx, sessionKeyPrefix+id, m.ttl)
	pipe.SAdd(ctx, identityIndexKey+fmt.Sprint(identityID), id)
	pipe.Expire(ctx, identityIndexKey+fmt.Sprint(identityID), m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return sess, nil
}

// Validate checks that the session behind a jti is still live.
func (m *Manager) Validate(ctx context.Context, jti string) (*Session, error) {
	vals, err := m.rdb.HGetAll(ctx, sessionKeyPrefix+jti).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(vals) == 0 {
		return nil, xerrors.ErrSessionExpired
	}

	var sess Session
	sess.ID = jti
	if _, err := fmt.Sscan(vals["identity_id"], &sess.IdentityID); err != nil {
		return nil, xerrors.ErrSessionExpired
	}
	return &sess, nil
}

// Revoke removes one session.
func (m *Manager) Revoke(ctx context.Context, jti string, identityID int64) error {
	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+jti)
	pipe.SRem(ctx, identityIndexKey+fmt.Sprint(identityID), jti)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll removes every live session for an identity.
func (m *Manager) RevokeAll(ctx context.Context, identityID int64) error {
	indexKey := identityIndexKey + fmt.Sprint(identityID)
	ids, err := m.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	pipe := m.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKeyPrefix+id)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}
