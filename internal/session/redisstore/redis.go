// Package redisstore keeps session records in Redis so several app
// instances can share logins.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/redis/go-redis/v9"
)

// Store implements session.Store on top of a go-redis client.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps rdb. A zero ttl stores keys without expiry.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// NewClient builds a client from address settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func key(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// FindSession returns storage.ErrNotFound for missing or expired keys.
func (s *Store) FindSession(ctx context.Context, id string) (*types.Session, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("redisstore: get: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("redisstore: decode: %w", err)
	}
	sess.ID = id

	return &sess, nil
}

// SaveSession overwrites the key and refreshes its TTL.
func (s *Store) SaveSession(ctx context.Context, sess *types.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

// DeleteSession removes the key. Deleting an absent key is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redisstore: del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
