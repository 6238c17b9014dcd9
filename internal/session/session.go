// Package session binds browsers to server-side session records.
//
// A browser carries only an opaque, random session id in an HttpOnly
// cookie. The record behind it (bound user id plus pending flash notices)
// lives in a Store. Manager.Load resolves the record once per request and
// places it in the request context; handlers then use Login, Logout,
// CurrentUserID and the flash helpers with nothing but that context.
//
// State machine per browser:
//
//	Anonymous ──Login──▶ Authenticated
//	    ▲                     │
//	    └───────Logout────────┘
//
// Login while already Authenticated rebinds to the new user. Both
// transitions issue a fresh session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a bound user
	// and the session is anonymous.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAccessDenied is returned when the bound user lacks the role an
	// operation requires.
	ErrAccessDenied = errors.New("access denied")
)

// Store persists session records. Implementations return an error
// wrapping storage.ErrNotFound for unknown or expired ids.
type Store interface {
	FindSession(ctx context.Context, id string) (*types.Session, error)
	SaveSession(ctx context.Context, sess *types.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// Options configures the session cookie.
type Options struct {
	CookieName string
	// TTL sets the cookie Max-Age. Zero issues a browser-session cookie.
	TTL    time.Duration
	Secure bool
}

// Manager loads and commits sessions around each request.
type Manager struct {
	store  Store
	opts   Options
	logger *slog.Logger
}

// NewManager returns a Manager backed by store.
func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "edutestor_session"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, opts: opts, logger: logger}
}

// state is the per-request view of a session.
type state struct {
	sess *types.Session
	// staleID is a previous id that must be removed from the store on
	// commit (after Login/Logout rotated it).
	staleID   string
	hadCookie bool
	dirty     bool
	committed bool
}

type ctxKey struct{}

func fromContext(ctx context.Context) *state {
	st, _ := ctx.Value(ctxKey{}).(*state)
	return st
}

// ─────────────────────────────────────────────────────────────────────────────
// Load is middleware that resolves the browser's session before next runs
// and writes any change back before the first byte of the response.
//
// A missing, unknown or expired cookie yields a fresh anonymous session
// that is only persisted if something is stored in it.
// ─────────────────────────────────────────────────────────────────────────────
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &state{sess: &types.Session{}}

		if cookie, err := r.Cookie(m.opts.CookieName); err == nil && cookie.Value != "" {
			st.hadCookie = true
			sess, err := m.store.FindSession(r.Context(), cookie.Value)
			switch {
			case err == nil:
				st.sess = sess
			case errors.Is(err, storage.ErrNotFound):
				// stale cookie; it is cleared on commit
				st.dirty = true
			default:
				m.logger.Error("failed to load session", slog.String("error", err.Error()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, st)
		sw := &writer{ResponseWriter: w, commit: func() error { return m.commit(ctx, w, st) }, logger: m.logger}

		next.ServeHTTP(sw, r.WithContext(ctx))

		// Handlers that never wrote anything still get their session saved.
		sw.commitOnce()
	})
}

// commit writes the session back and sets or clears the cookie. A store
// failure is returned so the caller can fail the response instead of
// sending a redirect that silently lost the login or logout.
func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, st *state) error {
	if st.committed || !st.dirty {
		return nil
	}
	st.committed = true

	if st.staleID != "" {
		if err := m.store.DeleteSession(ctx, st.staleID); err != nil {
			return fmt.Errorf("delete rotated session: %w", err)
		}
	}

	// An anonymous session with nothing to carry is not worth a row.
	if !st.sess.Authenticated() && len(st.sess.Flashes) == 0 {
		if st.sess.ID != "" {
			if err := m.store.DeleteSession(ctx, st.sess.ID); err != nil {
				return fmt.Errorf("delete empty session: %w", err)
			}
		}
		if st.hadCookie {
			m.setCookie(w, "", -1)
		}
		return nil
	}

	if st.sess.ID == "" {
		st.sess.ID = uuid.NewString()
	}
	if err := m.store.SaveSession(ctx, st.sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	maxAge := 0
	if m.opts.TTL > 0 {
		maxAge = int(m.opts.TTL / time.Second)
	}
	m.setCookie(w, st.sess.ID, maxAge)
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// rotate moves the session to a new id, scheduling the old one for
// deletion.
func (st *state) rotate() {
	if st.sess.ID != "" && st.staleID == "" {
		st.staleID = st.sess.ID
	}
	st.sess.ID = uuid.NewString()
	st.dirty = true
}

func mustState(ctx context.Context) *state {
	st := fromContext(ctx)
	if st == nil {
		panic("session: context was not prepared by Manager.Load")
	}
	return st
}

// Login binds the session to userID.
func Login(ctx context.Context, userID int64) {
	st := mustState(ctx)
	st.rotate()
	st.sess.UserID = userID
}

// Logout clears the binding. Pending flashes survive so the next page
// can show them.
func Logout(ctx context.Context) {
	st := mustState(ctx)
	st.rotate()
	st.sess.UserID = 0
}

// Bind returns a context whose session is bound to userID for this request
// only. Nothing done through it is persisted or sent as a cookie; bearer
// token authentication uses it.
func Bind(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, &state{sess: &types.Session{UserID: userID}})
}

// CurrentUserID returns the bound user id, if any.
func CurrentUserID(ctx context.Context) (int64, bool) {
	st := fromContext(ctx)
	if st == nil || !st.sess.Authenticated() {
		return 0, false
	}
	return st.sess.UserID, true
}

// AddFlash queues a one-shot notice for the next rendered page.
func AddFlash(ctx context.Context, msg string) {
	st := mustState(ctx)
	st.sess.Flashes = append(st.sess.Flashes, msg)
	st.dirty = true
}

// PopFlashes returns and clears all queued notices.
func PopFlashes(ctx context.Context) []string {
	st := fromContext(ctx)
	if st == nil || len(st.sess.Flashes) == 0 {
		return nil
	}
	flashes := st.sess.Flashes
	st.sess.Flashes = nil
	st.dirty = true
	return flashes
}

// CurrentUser resolves the bound user from users. It returns
// ErrNotAuthenticated when the session is anonymous, and also when the
// bound account no longer exists (the binding is then cleared).
func CurrentUser(ctx context.Context, users storage.UserStore) (types.User, error) {
	id, ok := CurrentUserID(ctx)
	if !ok {
		return types.User{}, ErrNotAuthenticated
	}

	user, err := users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Logout(ctx)
			return types.User{}, ErrNotAuthenticated
		}
		return types.User{}, fmt.Errorf("CurrentUser: %w", err)
	}

	return user, nil
}

// RequireRole is CurrentUser plus a role check that fails with
// ErrAccessDenied.
func RequireRole(ctx context.Context, users storage.UserStore, role types.Role) (types.User, error) {
	user, err := CurrentUser(ctx, users)
	if err != nil {
		return types.User{}, err
	}
	if user.Role != role {
		return user, ErrAccessDenied
	}
	return user, nil
}

// writer commits the session right before the response header goes out,
// since Set-Cookie cannot be added afterwards. If the commit fails the
// handler's response is replaced by a 500 and its body discarded.
type writer struct {
	http.ResponseWriter
	commit func() error
	logger *slog.Logger
	done   bool
	failed bool
}

// commitOnce reports whether the handler's response may go out.
func (sw *writer) commitOnce() bool {
	if sw.done {
		return !sw.failed
	}
	sw.done = true

	if err := sw.commit(); err != nil {
		sw.failed = true
		sw.logger.Error("failed to commit session", slog.String("error", err.Error()))

		h := sw.ResponseWriter.Header()
		h.Del("Location")
		h.Del("Set-Cookie")
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("X-Content-Type-Options", "nosniff")
		sw.ResponseWriter.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(sw.ResponseWriter, http.StatusText(http.StatusInternalServerError)+"\n")
	}
	return !sw.failed
}

func (sw *writer) WriteHeader(status int) {
	if sw.commitOnce() {
		sw.ResponseWriter.WriteHeader(status)
	}
}

func (sw *writer) Write(b []byte) (int, error) {
	if !sw.commitOnce() {
		return len(b), nil
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *writer) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
