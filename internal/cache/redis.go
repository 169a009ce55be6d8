// Package cache keeps refresh sessions in Redis. Expiry is left to key TTLs.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"affconsole/internal/config"
	"affconsole/internal/models"
	"affconsole/internal/repository"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// SessionStore implements repository.SessionStore on Redis. Each session is a
// JSON value under session:<id> plus an index key from the refresh token
// hash to the id; both expire with the session.
type SessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ repository.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return "session:" + id
}

func refreshKey(hash []byte) string {
	return "session:refresh:" + hex.EncodeToString(hash)
}

func (s *SessionStore) Create(ctx context.Context, session models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now().UTC()
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
		pipe.Set(ctx, refreshKey(session.RefreshTokenHash), session.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, repository.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) FindByRefreshHash(ctx context.Context, hash []byte) (models.Session, error) {
	id, err := s.client.Get(ctx, refreshKey(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, repository.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("find session: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SessionStore) DeleteByID(ctx context.Context, id string) error {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, sessionKey(id), refreshKey(session.RefreshTokenHash)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis drops sessions when their TTL runs out.
func (s *SessionStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
