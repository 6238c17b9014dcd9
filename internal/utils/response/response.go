// Package response provides helpers for writing consistent HTTP responses:
// rendered HTML pages for the browser, JSON for the API and health
// endpoints, and human-readable messages for failed validation.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/VanDeGall/EduTestor/internal/views"
	"github.com/go-playground/validator/v10"
)

// Response is the JSON envelope used by non-HTML endpoints.
//
//	{ "status": "error", "error": "database is unreachable" }
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
// Order matters: Header() → WriteHeader() → body.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError is the JSON shape for a failed body validation; the
// per-field messages are joined into Error.
func ValidationError(msgs []string) Response {
	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, ", "),
	}
}

// HTML renders a page with the given status. The page is rendered into a
// buffer first, so a template failure is logged and answered with a bare
// 500 instead of a half-written page.
func HTML(w http.ResponseWriter, status int, name string, page views.Page) {
	var buf bytes.Buffer
	if err := views.Render(&buf, name, page); err != nil {
		slog.Error("failed to render page", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ErrorPage renders the error template with the status text as title.
func ErrorPage(w http.ResponseWriter, status int, page views.Page, detail string) {
	page.Title = http.StatusText(status)
	page.Data = detail
	HTML(w, status, views.Error, page)
}

// Redirect sends a 303 so a POSTed form is followed by a GET.
func Redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationMessages converts validator.ValidationErrors into one plain
// English sentence per failing field. form.Validate registers the
// `form:"..."` tag as the field name, so messages use the input names.
//
// Example output:
//
//	["field email is required", "field role must be one of: student teacher"]
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of: %s", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return msgs
}
