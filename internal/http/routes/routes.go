// Package routes assembles the HTTP handler tree.
//
// Route table:
//
//	GET       /                  home (dashboard or landing page)
//	GET/POST  /register          create an account
//	GET/POST  /login             sign in
//	GET       /logout            sign out
//	GET/POST  /delete_account    delete the signed-in account
//	GET/POST  /add_test          author a question (teachers only)
//	GET/POST  /take_test/{id}    answer a question
//	GET       /tests             list all questions
//	POST      /api/token         JSON credentials → bearer token
//	GET/POST  /api/tests         JSON list / create (teachers)
//	GET       /api/tests/{id}    JSON question without answer key
//	POST      /api/tests/{id}/answer  JSON answer check
//	GET       /healthz           liveness (JSON)
//	GET       /metrics           Prometheus metrics
package routes

import (
	"log/slog"
	"net/http"

	"github.com/VanDeGall/EduTestor/internal/auth"
	"github.com/VanDeGall/EduTestor/internal/http/handlers/account"
	"github.com/VanDeGall/EduTestor/internal/http/handlers/api"
	"github.com/VanDeGall/EduTestor/internal/http/handlers/health"
	"github.com/VanDeGall/EduTestor/internal/http/handlers/quiz"
	"github.com/VanDeGall/EduTestor/internal/http/middleware"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Storage  storage.Storage
	Sessions *session.Manager
	Hasher   *auth.Hasher
	Tokens   *auth.Tokens
	Logger   *slog.Logger
	// Pingers are checked by /healthz in addition to Storage.
	Pingers []health.Pinger
}

// New returns the root handler.
func New(d Deps) http.Handler {
	app := http.NewServeMux()

	handle := func(route string, h http.Handler, methods ...string) {
		h = middleware.Instrument(route, h)
		for _, m := range methods {
			app.Handle(m+" "+route, h)
		}
	}

	handle("/{$}", quiz.Home(d.Storage), http.MethodGet)
	handle("/register", account.Register(d.Storage, d.Hasher), http.MethodGet, http.MethodPost)
	handle("/login", account.Login(d.Storage, d.Hasher), http.MethodGet, http.MethodPost)
	handle("/logout", account.Logout(), http.MethodGet)
	handle("/delete_account", account.DeleteAccount(d.Storage), http.MethodGet, http.MethodPost)
	handle("/add_test", quiz.AddTest(d.Storage), http.MethodGet, http.MethodPost)
	handle("/take_test/{id}", quiz.TakeTest(d.Storage), http.MethodGet, http.MethodPost)
	handle("/tests", quiz.List(d.Storage), http.MethodGet)

	bearer := func(h http.Handler) http.Handler { return middleware.Bearer(d.Tokens, h) }
	handle("/api/token", api.Token(d.Storage, d.Hasher, d.Tokens), http.MethodPost)
	handle("/api/tests", bearer(api.GetList(d.Storage)), http.MethodGet)
	handle("/api/tests", bearer(api.Create(d.Storage)), http.MethodPost)
	handle("/api/tests/{id}", bearer(api.GetByID(d.Storage)), http.MethodGet)
	handle("/api/tests/{id}/answer", bearer(api.Answer(d.Storage)), http.MethodPost)

	root := http.NewServeMux()
	root.Handle("GET /healthz", health.Check(append([]health.Pinger{d.Storage}, d.Pingers...)...))
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/", d.Sessions.Load(app))

	return middleware.Recover(d.Logger, middleware.RequestLogger(d.Logger, root))
}
