// Package quiz contains the HTTP handlers for the home page and for
// authoring, listing and answering test questions.
package quiz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/VanDeGall/EduTestor/internal/http/handlers"
	"github.com/VanDeGall/EduTestor/internal/metrics"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/VanDeGall/EduTestor/internal/utils/form"
	"github.com/VanDeGall/EduTestor/internal/utils/response"
	"github.com/VanDeGall/EduTestor/internal/views"
)

const (
	NoticeLoginAsTeacher = "Please login as teacher to add test."
	NoticeAccessDenied   = "Access denied."
	NoticeTestAdded      = "Test added successfully."
	NoticeLoginToTake    = "Please login to take the test."
)

type questionForm struct {
	Question string `form:"question" validate:"required,max=500"`
	OptionA  string `form:"option_a" validate:"required,max=200"`
	OptionB  string `form:"option_b" validate:"required,max=200"`
	OptionC  string `form:"option_c" validate:"required,max=200"`
	Correct  string `form:"correct" validate:"required,oneof=A B C"`
}

// Home handles GET /. Signed-in users see their dashboard, everyone else
// the landing page.
func Home(users storage.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := handlers.NewPage(r, users, "")
		if err != nil {
			handlers.ServerError(w, "error loading session user", err)
			return
		}

		if page.User != nil {
			response.HTML(w, http.StatusOK, views.Dashboard, page)
			return
		}
		response.HTML(w, http.StatusOK, views.Index, page)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// AddTest handles GET/POST /add_test. Only teachers may author questions.
//
// POST fields: question, option_a, option_b, option_c, correct (A|B|C)
//
//	303 → /       question stored
//	303 → /login  not signed in
//	303 → /       signed in but not a teacher; nothing is written
//	400           missing or invalid field, form re-rendered
//
// ─────────────────────────────────────────────────────────────────────────────
func AddTest(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := session.RequireRole(r.Context(), st, types.RoleTeacher)
		switch {
		case errors.Is(err, session.ErrNotAuthenticated):
			session.AddFlash(r.Context(), NoticeLoginAsTeacher)
			response.Redirect(w, r, "/login")
			return
		case errors.Is(err, session.ErrAccessDenied):
			slog.Info("add test denied", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
			session.AddFlash(r.Context(), NoticeAccessDenied)
			response.Redirect(w, r, "/")
			return
		case err != nil:
			handlers.ServerError(w, "error loading session user", err)
			return
		}

		if r.Method != http.MethodPost {
			handlers.Render(w, r, st, http.StatusOK, views.AddTest, "Add test", nil)
			return
		}

		if !handlers.ParseForm(w, r) {
			return
		}
		in := questionForm{
			Question: strings.TrimSpace(r.PostForm.Get("question")),
			OptionA:  strings.TrimSpace(r.PostForm.Get("option_a")),
			OptionB:  strings.TrimSpace(r.PostForm.Get("option_b")),
			OptionC:  strings.TrimSpace(r.PostForm.Get("option_c")),
			Correct:  r.PostForm.Get("correct"),
		}
		invalid := func(msgs []string) {
			handlers.Render(w, r, st, http.StatusBadRequest, views.AddTest, "Add test", func(p *views.Page) {
				p.Errors = msgs
				p.Form = form.Values(&in)
			})
		}

		if msgs := form.Validate(in); msgs != nil {
			invalid(msgs)
			return
		}

		id, err := st.CreateQuestion(r.Context(), in.Question, in.OptionA, in.OptionB, in.OptionC, types.Label(in.Correct))
		if errors.Is(err, types.ErrInvalidInput) {
			invalid([]string{"field correct must be one of: A B C"})
			return
		}
		if err != nil {
			handlers.ServerError(w, "error creating question", err)
			return
		}

		slog.Info("question created", slog.Int64("id", id), slog.Int64("by", user.ID))
		metrics.QuestionsCreatedTotal.Inc()

		session.AddFlash(r.Context(), NoticeTestAdded)
		response.Redirect(w, r, "/")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// TakeTest handles GET/POST /take_test/{id}.
//
// GET shows the question; POST (field: answer) shows it again together
// with "Correct!" or "Incorrect!". The answer is compared to the stored
// label by exact string equality and nothing is recorded, so submitting
// again simply re-evaluates.
//
//	303 → /login  not signed in
//	404           unknown or malformed id
//	400           POST without an answer
//
// ─────────────────────────────────────────────────────────────────────────────
func TakeTest(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := session.CurrentUser(r.Context(), st)
		if errors.Is(err, session.ErrNotAuthenticated) {
			session.AddFlash(r.Context(), NoticeLoginToTake)
			response.Redirect(w, r, "/login")
			return
		}
		if err != nil {
			handlers.ServerError(w, "error loading session user", err)
			return
		}

		page, err := handlers.NewPage(r, st, "Take test")
		if err != nil {
			handlers.ServerError(w, "error loading session user", err)
			return
		}

		id := r.PathValue("id")
		intID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			response.ErrorPage(w, http.StatusNotFound, page, "No such test.")
			return
		}

		q, err := st.GetQuestionByID(r.Context(), intID)
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorPage(w, http.StatusNotFound, page, "No such test.")
			return
		}
		if err != nil {
			handlers.ServerError(w, "error getting question", err)
			return
		}

		data := views.TakeTestData{Question: q}

		if r.Method == http.MethodPost {
			if !handlers.ParseForm(w, r) {
				return
			}
			if !r.PostForm.Has("answer") {
				page.Errors = []string{"field answer is required"}
				page.Data = data
				response.HTML(w, http.StatusBadRequest, views.TakeTest, page)
				return
			}

			data.Result = q.Check(r.PostForm.Get("answer"))
			slog.Info("answer checked",
				slog.Int64("question_id", q.ID),
				slog.Int64("user_id", user.ID),
				slog.String("result", string(data.Result)))
			if data.Result == types.OutcomeCorrect {
				metrics.AnswersTotal.WithLabelValues("correct").Inc()
			} else {
				metrics.AnswersTotal.WithLabelValues("incorrect").Inc()
			}
		}

		page.Data = data
		response.HTML(w, http.StatusOK, views.TakeTest, page)
	}
}

// List handles GET /tests: every question, oldest first. No sign-in needed.
func List(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := st.ListQuestions(r.Context())
		if err != nil {
			handlers.ServerError(w, "error listing questions", err)
			return
		}

		handlers.Render(w, r, st, http.StatusOK, views.Tests, "Tests", func(p *views.Page) {
			p.Data = questions
		})
	}
}
