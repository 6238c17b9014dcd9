// Package storage defines the contracts that any database backend must
// satisfy to work with this application.
//
// Handlers depend only on these interfaces, so tests can swap in a fake
// and a different database only needs a new implementation.
package storage

import (
	"context"
	"errors"

	"github.com/VanDeGall/EduTestor/internal/types"
)

var (
	// ErrNotFound is returned when a lookup by id or email matches nothing.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned by CreateUser when the email is taken.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserStore is the credential store.
type UserStore interface {
	// CreateUser inserts a new user and returns its id.
	// Returns ErrDuplicateEmail if the email is already registered.
	CreateUser(ctx context.Context, name, email, passwordHash string, role types.Role) (int64, error)

	// GetUserByEmail returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (types.User, error)

	// GetUserByID returns ErrNotFound if no user has that id.
	GetUserByID(ctx context.Context, id int64) (types.User, error)

	// DeleteUser removes the user. Deleting an absent id is not an error.
	DeleteUser(ctx context.Context, id int64) error

	CountUsers(ctx context.Context) (int64, error)
}

// QuestionStore persists test questions.
type QuestionStore interface {
	// CreateQuestion inserts a question and returns its id. A correct
	// label outside A/B/C fails with types.ErrInvalidInput.
	CreateQuestion(ctx context.Context, prompt, optionA, optionB, optionC string, correct types.Label) (int64, error)

	// GetQuestionByID returns ErrNotFound if no question has that id.
	GetQuestionByID(ctx context.Context, id int64) (types.Question, error)

	// ListQuestions returns every question ordered by id.
	// Returns an empty slice (not nil) if there are none.
	ListQuestions(ctx context.Context) ([]types.Question, error)
}

// Storage is everything the HTTP layer needs from the database.
type Storage interface {
	UserStore
	QuestionStore

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
