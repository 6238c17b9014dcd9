// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface (and of session.Store) using Go's standard
// database/sql package.
//
// SQLite stores everything in a single file on disk: no network, no
// separate server process, nothing to install beyond the driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VanDeGall/EduTestor/internal/config"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"

	// Registers the "sqlite3" driver with database/sql; the package is
	// also used directly to inspect constraint errors.
	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB

	sessionTTL time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT    NOT NULL,
	email    TEXT    NOT NULL UNIQUE,
	password TEXT    NOT NULL,
	role     TEXT    NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS questions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT    NOT NULL,
	option_a TEXT    NOT NULL,
	option_b TEXT    NOT NULL,
	option_c TEXT    NOT NULL,
	correct  TEXT    NOT NULL CHECK (correct IN ('A', 'B', 'C'))
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT    PRIMARY KEY,
	user_id    INTEGER NOT NULL DEFAULT 0,
	flashes    TEXT    NOT NULL DEFAULT '[]',
	expires_at INTEGER NOT NULL DEFAULT 0
);
`

// New opens the SQLite database at cfg.StoragePath, creating the parent
// directory and the tables if they do not already exist.
func New(cfg *config.Config) (*SQLite, error) {
	if dir := filepath.Dir(cfg.StoragePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	// sql.Open does NOT open a real connection yet; it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent, so it is safe on every startup.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db, sessionTTL: cfg.Session.TTL}, nil
}

// Ping checks the connection pool can reach the database file.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateUser inserts a new row into the users table.
//
// The email is checked before the insert so the common duplicate case
// returns storage.ErrDuplicateEmail without touching the table. The
// UNIQUE constraint still backs this up when two registrations race; the
// constraint error is translated to the same sentinel.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateUser(ctx context.Context, name, email, passwordHash string, role types.Role) (int64, error) {
	_, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return 0, storage.ErrDuplicateEmail
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("CreateUser: lookup: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return 0, fmt.Errorf("CreateUser: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, name, email, passwordHash, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("CreateUser: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateUser: last insert id: %w", err)
	}

	return lastID, nil
}

// GetUserByEmail fetches the user registered with email.
func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password, role FROM users WHERE email = ? LIMIT 1", email)
}

// GetUserByID fetches the user with the given primary key.
func (s *SQLite) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password, role FROM users WHERE id = ? LIMIT 1", id)
}

func (s *SQLite) getUser(ctx context.Context, query string, arg any) (types.User, error) {
	stmt, err := s.Db.PrepareContext(ctx, query)
	if err != nil {
		return types.User{}, fmt.Errorf("getUser: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		user types.User
		role string
	)
	err = stmt.QueryRowContext(ctx, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, fmt.Errorf("no user found for %v: %w", arg, storage.ErrNotFound)
		}
		return types.User{}, fmt.Errorf("getUser: scan: %w", err)
	}
	user.Role = types.Role(role)

	return user, nil
}

// DeleteUser removes a user row by primary key. No existence check is
// made; callers have already loaded the user.
func (s *SQLite) DeleteUser(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM users WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteUser: prepare: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("DeleteUser: exec: %w", err)
	}

	return nil
}

// CountUsers returns the number of registered users.
func (s *SQLite) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("CountUsers: %w", err)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateQuestion inserts a new row into the questions table.
// The label is re-validated here so no caller can store an answer key the
// scoring code could never match.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateQuestion(ctx context.Context, prompt, optionA, optionB, optionC string, correct types.Label) (int64, error) {
	if _, err := types.ParseLabel(string(correct)); err != nil {
		return 0, fmt.Errorf("CreateQuestion: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO questions (question, option_a, option_b, option_c, correct) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, fmt.Errorf("CreateQuestion: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, prompt, optionA, optionB, optionC, string(correct))
	if err != nil {
		return 0, fmt.Errorf("CreateQuestion: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateQuestion: last insert id: %w", err)
	}

	return lastID, nil
}

// GetQuestionByID fetches exactly one question matched by primary key.
func (s *SQLite) GetQuestionByID(ctx context.Context, id int64) (types.Question, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, question, option_a, option_b, option_c, correct FROM questions WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Question{}, fmt.Errorf("GetQuestionByID: prepare: %w", err)
	}
	defer stmt.Close()

	q, err := scanQuestion(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Question{}, fmt.Errorf("no question found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Question{}, fmt.Errorf("GetQuestionByID: scan: %w", err)
	}

	return q, nil
}

// ListQuestions returns all question rows ordered by id.
func (s *SQLite) ListQuestions(ctx context.Context) ([]types.Question, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, question, option_a, option_b, option_c, correct FROM questions ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("ListQuestions: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListQuestions: query: %w", err)
	}
	defer rows.Close()

	questions := make([]types.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("ListQuestions: scan row: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListQuestions: rows iteration: %w", err)
	}

	return questions, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (types.Question, error) {
	var (
		q       types.Question
		correct string
	)
	if err := row.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &correct); err != nil {
		return types.Question{}, err
	}
	q.Correct = types.Label(correct)
	return q, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
