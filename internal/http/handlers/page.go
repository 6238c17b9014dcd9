// Package handlers holds helpers shared by the per-resource handler
// packages (account, quiz).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/utils/response"
	"github.com/VanDeGall/EduTestor/internal/views"
)

// NewPage builds the common page data: the signed-in user, if any, and
// the pending flash notices (which are consumed).
func NewPage(r *http.Request, users storage.UserStore, title string) (views.Page, error) {
	page := views.Page{Title: title}

	user, err := session.CurrentUser(r.Context(), users)
	switch {
	case err == nil:
		page.User = &user
	case errors.Is(err, session.ErrNotAuthenticated):
	default:
		return page, err
	}

	page.Flashes = session.PopFlashes(r.Context())
	return page, nil
}

// ServerError logs err and renders a generic 500 page.
func ServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	response.ErrorPage(w, http.StatusInternalServerError, views.Page{}, "Something went wrong. Please try again.")
}

// ParseForm parses the request body and answers 400 on failure. It
// returns false when the caller should stop.
func ParseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		response.ErrorPage(w, http.StatusBadRequest, views.Page{}, "The submitted form could not be read.")
		return false
	}
	return true
}

// Render builds the common page, lets fill add page-specific data and
// renders it with status. Flashes are consumed only here, so a request
// that ends in a redirect keeps them for the next page.
func Render(w http.ResponseWriter, r *http.Request, users storage.UserStore, status int, name, title string, fill func(*views.Page)) {
	page, err := NewPage(r, users, title)
	if err != nil {
		ServerError(w, "error loading session user", err)
		return
	}
	if fill != nil {
		fill(&page)
	}
	response.HTML(w, status, name, page)
}
