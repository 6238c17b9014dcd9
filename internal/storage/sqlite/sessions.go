package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
)

// FindSession loads the session row with the given id. Missing and
// expired rows both return storage.ErrNotFound; an expired row is removed
// on the way out.
func (s *SQLite) FindSession(ctx context.Context, id string) (*types.Session, error) {
	var (
		sess      = types.Session{ID: id}
		flashes   string
		expiresAt int64
	)
	err := s.Db.QueryRowContext(ctx,
		"SELECT user_id, flashes, expires_at FROM sessions WHERE id = ? LIMIT 1", id,
	).Scan(&sess.UserID, &flashes, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("FindSession: scan: %w", err)
	}

	if expiresAt != 0 && time.Now().Unix() >= expiresAt {
		if err := s.DeleteSession(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("session %s expired: %w", id, storage.ErrNotFound)
	}

	if err := json.Unmarshal([]byte(flashes), &sess.Flashes); err != nil {
		return nil, fmt.Errorf("FindSession: decode flashes: %w", err)
	}

	return &sess, nil
}

// SaveSession upserts the session and refreshes its expiry.
func (s *SQLite) SaveSession(ctx context.Context, sess *types.Session) error {
	flashes := sess.Flashes
	if flashes == nil {
		flashes = []string{}
	}
	encoded, err := json.Marshal(flashes)
	if err != nil {
		return fmt.Errorf("SaveSession: encode flashes: %w", err)
	}

	var expiresAt int64
	if s.sessionTTL > 0 {
		expiresAt = time.Now().Add(s.sessionTTL).Unix()
	}

	_, err = s.Db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, flashes, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id    = excluded.user_id,
			flashes    = excluded.flashes,
			expires_at = excluded.expires_at
	`, sess.ID, sess.UserID, string(encoded), expiresAt)
	if err != nil {
		return fmt.Errorf("SaveSession: exec: %w", err)
	}

	return nil
}

// DeleteSession removes the session row. Deleting an absent id is not an
// error.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.Db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("DeleteSession: exec: %w", err)
	}
	return nil
}
