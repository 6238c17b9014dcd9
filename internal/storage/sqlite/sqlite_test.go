package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/VanDeGall/EduTestor/internal/config"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, ttl time.Duration) *SQLite {
	t.Helper()
	cfg := &config.Config{
		StoragePath: filepath.Join(t.TempDir(), "data", "test.db"),
		Session:     config.SessionConfig{TTL: ttl},
	}
	db, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsers_CreateAndFind(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	id, err := db.CreateUser(ctx, "Ann", "ann@x.com", "$2a$hash", types.RoleStudent)
	require.NoError(t, err)
	require.NotZero(t, id)

	byEmail, err := db.GetUserByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, types.User{ID: id, Name: "Ann", Email: "ann@x.com", PasswordHash: "$2a$hash", Role: types.RoleStudent}, byEmail)

	byID, err := db.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, byEmail, byID)

	_, err = db.GetUserByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.GetUserByID(ctx, id+100)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "Ann", "ann@x.com", "h1", types.RoleStudent)
	require.NoError(t, err)

	_, err = db.CreateUser(ctx, "Other Ann", "ann@x.com", "h2", types.RoleTeacher)
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestUsers_DuplicateEmailConcurrent(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = db.CreateUser(ctx, "Ann", "race@x.com", "h", types.RoleStudent)
		}()
	}
	wg.Wait()

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestUsers_Delete(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	id, err := db.CreateUser(ctx, "Bob", "bob@x.com", "h", types.RoleTeacher)
	require.NoError(t, err)

	require.NoError(t, db.DeleteUser(ctx, id))
	_, err = db.GetUserByID(ctx, id)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// absent id is not an error
	require.NoError(t, db.DeleteUser(ctx, id))
}

func TestQuestions_CreateGetList(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	list, err := db.ListQuestions(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	id1, err := db.CreateQuestion(ctx, "2+2?", "3", "4", "5", types.LabelB)
	require.NoError(t, err)
	id2, err := db.CreateQuestion(ctx, "Capital of France?", "Paris", "Rome", "Oslo", types.LabelA)
	require.NoError(t, err)

	q, err := db.GetQuestionByID(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, types.Question{ID: id1, Prompt: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", Correct: types.LabelB}, q)

	list, err = db.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, id1, list[0].ID)
	require.Equal(t, id2, list[1].ID)

	_, err = db.GetQuestionByID(ctx, id2+1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQuestions_InvalidLabel(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	_, err := db.CreateQuestion(ctx, "?", "a", "b", "c", types.Label("D"))
	require.ErrorIs(t, err, types.ErrInvalidInput)

	list, err := db.ListQuestions(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSessions_RoundTrip(t *testing.T) {
	db := newTestDB(t, 0)
	ctx := context.Background()

	_, err := db.FindSession(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	sess := &types.Session{ID: "s1", UserID: 3, Flashes: []string{"hi"}}
	require.NoError(t, db.SaveSession(ctx, sess))

	got, err := db.FindSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, sess, got)

	sess.Flashes = nil
	sess.UserID = 0
	require.NoError(t, db.SaveSession(ctx, sess))
	got, err = db.FindSession(ctx, "s1")
	require.NoError(t, err)
	require.Zero(t, got.UserID)
	require.Empty(t, got.Flashes)

	require.NoError(t, db.DeleteSession(ctx, "s1"))
	_, err = db.FindSession(ctx, "s1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessions_Expired(t *testing.T) {
	db := newTestDB(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, db.SaveSession(ctx, &types.Session{ID: "old", UserID: 1}))
	_, err := db.Db.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE id = ?", time.Now().Add(-time.Minute).Unix(), "old")
	require.NoError(t, err)

	_, err = db.FindSession(ctx, "old")
	require.ErrorIs(t, err, storage.ErrNotFound)

	var n int
	require.NoError(t, db.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n))
	require.Zero(t, n)
}
