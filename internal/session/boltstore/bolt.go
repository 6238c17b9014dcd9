// Package boltstore keeps session records in an embedded bbolt file, for
// single-instance deployments that want sessions apart from the SQLite
// database.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"go.etcd.io/bbolt"
)

var bucket = []byte("Sessions")

// record is the stored value; the key is the session id.
type record struct {
	UserID    int64     `json:"user_id,omitempty"`
	Flashes   []string  `json:"flashes,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store implements session.Store on top of a bbolt database.
type Store struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open creates (or opens) the file at path and its bucket. A zero ttl
// keeps sessions until they are deleted.
func Open(path string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("boltstore: create dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create bucket: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// FindSession returns storage.ErrNotFound for missing or expired records.
// An expired record is removed on the way out.
func (s *Store) FindSession(_ context.Context, id string) (*types.Session, error) {
	var (
		rec   record
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: get: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}

	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		if err := s.DeleteSession(context.Background(), id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}

	return &types.Session{ID: id, UserID: rec.UserID, Flashes: rec.Flashes}, nil
}

// SaveSession overwrites the record and pushes its expiry forward.
func (s *Store) SaveSession(_ context.Context, sess *types.Session) error {
	rec := record{UserID: sess.UserID, Flashes: sess.Flashes}
	if s.ttl > 0 {
		rec.ExpiresAt = s.now().Add(s.ttl)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(sess.ID), data)
	})
	if err != nil {
		return fmt.Errorf("boltstore: put: %w", err)
	}
	return nil
}

// DeleteSession removes the record. Deleting an absent id is not an error.
func (s *Store) DeleteSession(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("boltstore: delete: %w", err)
	}
	return nil
}

// Ping reports whether the file is still open and readable.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucket) == nil {
			return fmt.Errorf("boltstore: bucket %s missing", bucket)
		}
		return nil
	})
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
