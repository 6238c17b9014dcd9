// Package account contains the HTTP handlers for registration, login,
// logout and self-deletion.
//
// Every exported function is a factory: it receives its dependencies once
// at startup and returns the http.HandlerFunc the router calls on every
// request.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/VanDeGall/EduTestor/internal/auth"
	"github.com/VanDeGall/EduTestor/internal/http/handlers"
	"github.com/VanDeGall/EduTestor/internal/metrics"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/VanDeGall/EduTestor/internal/utils/form"
	"github.com/VanDeGall/EduTestor/internal/utils/response"
	"github.com/VanDeGall/EduTestor/internal/views"
)

// Notices shown to the user. The login failure text is identical for an
// unknown email and a wrong password.
const (
	NoticeEmailExists        = "Email already exists."
	NoticeRegistered         = "Registration successful. Please login."
	NoticeInvalidCredentials = "Incorrect email or password."
	NoticeLoggedOut          = "You have been logged out."
	NoticeLoginToDelete      = "Please login to delete your account."
	NoticeAccountDeleted     = "Your account has been deleted."
)

type registerForm struct {
	Name     string `form:"name" validate:"required,max=150"`
	Email    string `form:"email" validate:"required,email,max=150"`
	Password string `form:"password" echo:"-" validate:"required"`
	Role     string `form:"role" validate:"omitempty,oneof=student teacher"`
}

type loginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" echo:"-" validate:"required"`
}

var passwordTooLongMsg = fmt.Sprintf("field password must be at most %d bytes", auth.MaxPasswordBytes)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func invalidRegistration(w http.ResponseWriter, r *http.Request, users storage.UserStore, in *registerForm, msgs []string) {
	metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
	handlers.Render(w, r, users, http.StatusBadRequest, views.Register, "Register", func(p *views.Page) {
		p.Errors = msgs
		p.Form = form.Values(in)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Register handles GET/POST /register.
//
// POST fields: name, email, password, role (student|teacher, default student)
//
//	303 → /login     account created; the browser is NOT signed in
//	303 → /register  email already registered (flash notice)
//	400              missing or invalid field (including a password over
//	                 72 bytes), form re-rendered
//
// ─────────────────────────────────────────────────────────────────────────────
func Register(users storage.UserStore, hasher *auth.Hasher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			handlers.Render(w, r, users, http.StatusOK, views.Register, "Register", nil)
			return
		}

		if !handlers.ParseForm(w, r) {
			return
		}
		in := registerForm{
			Name:     strings.TrimSpace(r.PostForm.Get("name")),
			Email:    normalizeEmail(r.PostForm.Get("email")),
			Password: r.PostForm.Get("password"),
			Role:     r.PostForm.Get("role"),
		}

		// Validation restricts role to the two known values; ParseRole
		// then maps "" to the student default.
		msgs := form.Validate(in)
		role, err := types.ParseRole(in.Role)
		if msgs == nil && err != nil {
			msgs = []string{"field role must be one of: student teacher"}
		}
		if msgs == nil && len(in.Password) > auth.MaxPasswordBytes {
			msgs = []string{passwordTooLongMsg}
		}
		if msgs != nil {
			invalidRegistration(w, r, users, &in, msgs)
			return
		}

		hash, err := hasher.Hash(in.Password)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			invalidRegistration(w, r, users, &in, []string{passwordTooLongMsg})
			return
		}
		if err != nil {
			handlers.ServerError(w, "error hashing password", err)
			return
		}

		id, err := users.CreateUser(r.Context(), in.Name, in.Email, hash, role)
		if errors.Is(err, storage.ErrDuplicateEmail) {
			slog.Info("registration rejected: duplicate email")
			metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
			session.AddFlash(r.Context(), NoticeEmailExists)
			response.Redirect(w, r, "/register")
			return
		}
		if err != nil {
			handlers.ServerError(w, "error creating user", err)
			return
		}

		slog.Info("user registered", slog.Int64("id", id), slog.String("role", string(role)))
		metrics.RegistrationsTotal.WithLabelValues("created").Inc()

		session.AddFlash(r.Context(), NoticeRegistered)
		response.Redirect(w, r, "/login")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles GET/POST /login.
//
// POST fields: email, password
//
//	303 → /  credentials matched; session bound to the user
//	200      credentials rejected, form re-rendered with a generic notice
//	400      missing field
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(users storage.UserStore, hasher *auth.Hasher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			handlers.Render(w, r, users, http.StatusOK, views.Login, "Login", nil)
			return
		}

		if !handlers.ParseForm(w, r) {
			return
		}
		in := loginForm{
			Email:    normalizeEmail(r.PostForm.Get("email")),
			Password: r.PostForm.Get("password"),
		}

		if msgs := form.Validate(in); msgs != nil {
			handlers.Render(w, r, users, http.StatusBadRequest, views.Login, "Login", func(p *views.Page) {
				p.Errors = msgs
				p.Form = form.Values(&in)
			})
			return
		}

		user, err := hasher.Authenticate(r.Context(), users, in.Email, in.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			handlers.Render(w, r, users, http.StatusOK, views.Login, "Login", func(p *views.Page) {
				p.Errors = []string{NoticeInvalidCredentials}
				p.Form = form.Values(&in)
			})
			return
		}
		if err != nil {
			handlers.ServerError(w, "error authenticating user", err)
			return
		}

		session.Login(r.Context(), user.ID)
		slog.Info("user logged in", slog.Int64("id", user.ID))
		metrics.LoginsTotal.WithLabelValues("success").Inc()

		response.Redirect(w, r, "/")
	}
}

// Logout handles GET /logout. It is safe to call while anonymous.
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := session.CurrentUserID(r.Context()); ok {
			slog.Info("user logged out", slog.Int64("id", id))
		}
		session.Logout(r.Context())
		session.AddFlash(r.Context(), NoticeLoggedOut)
		response.Redirect(w, r, "/")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteAccount handles GET/POST /delete_account.
//
// GET renders a confirmation page; POST deletes the signed-in user, clears
// the session and redirects home. Questions are not touched: they carry no
// reference to their author.
//
//	303 → /login  not signed in
//
// ─────────────────────────────────────────────────────────────────────────────
func DeleteAccount(users storage.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := session.CurrentUser(r.Context(), users)
		if errors.Is(err, session.ErrNotAuthenticated) {
			session.AddFlash(r.Context(), NoticeLoginToDelete)
			response.Redirect(w, r, "/login")
			return
		}
		if err != nil {
			handlers.ServerError(w, "error loading session user", err)
			return
		}

		if r.Method != http.MethodPost {
			handlers.Render(w, r, users, http.StatusOK, views.DeleteAccount, "Delete account", nil)
			return
		}

		if err := users.DeleteUser(r.Context(), user.ID); err != nil {
			handlers.ServerError(w, "error deleting user", err)
			return
		}

		session.Logout(r.Context())
		slog.Info("account deleted", slog.Int64("id", user.ID))
		metrics.AccountsDeletedTotal.Inc()

		session.AddFlash(r.Context(), NoticeAccountDeleted)
		response.Redirect(w, r, "/")
	}
}
