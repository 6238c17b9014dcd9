// Package api contains the JSON handlers under /api. They accept either
// the browser session cookie or a bearer token from POST /api/token.
//
// The handlers follow the factory pattern used everywhere else:
//
//	router.HandleFunc("POST /api/tests", api.Create(storage))
//	//                                   ^^^^^^^^^^^^^^^^^^
//	//                     called ONCE at startup; the returned func
//	//                     runs on EVERY request.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/VanDeGall/EduTestor/internal/auth"
	"github.com/VanDeGall/EduTestor/internal/metrics"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/VanDeGall/EduTestor/internal/utils/form"
	"github.com/VanDeGall/EduTestor/internal/utils/response"
)

var (
	errEmptyBody       = errors.New("request body is empty")
	errInvalidID       = errors.New("invalid id: must be an integer")
	errNotFound        = errors.New("test not found")
	errLoginRequired   = errors.New("login required")
	errTeacherRequired = errors.New("teacher role required")
	errInternal        = errors.New("internal error")
)

type questionRequest struct {
	Question string `json:"question" validate:"required,max=500"`
	OptionA  string `json:"option_a" validate:"required,max=200"`
	OptionB  string `json:"option_b" validate:"required,max=200"`
	OptionC  string `json:"option_c" validate:"required,max=200"`
	Correct  string `json:"correct" validate:"required,oneof=A B C"`
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// AnswerResponse is returned by POST /api/tests/{id}/answer.
type AnswerResponse struct {
	ID     int64         `json:"id"`
	Result types.Outcome `json:"result"`
}

// decode reads a JSON body into v and validates it. On failure it has
// already written the 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errEmptyBody))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}

	if msgs := form.Validate(v); msgs != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(msgs))
		return false
	}
	return true
}

// question loads the {id} path value; on failure it has already written
// the response.
func question(w http.ResponseWriter, r *http.Request, st storage.QuestionStore) (types.Question, bool) {
	id := r.PathValue("id")
	intID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return types.Question{}, false
	}

	q, err := st.GetQuestionByID(r.Context(), intID)
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errNotFound))
		return types.Question{}, false
	}
	if err != nil {
		slog.Error("error getting question", slog.String("id", id), slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
		return types.Question{}, false
	}
	return q, true
}

// currentUser resolves the signed-in user; on failure it has already
// written 401 or 500.
func currentUser(w http.ResponseWriter, r *http.Request, users storage.UserStore) (types.User, bool) {
	user, err := session.CurrentUser(r.Context(), users)
	if errors.Is(err, session.ErrNotAuthenticated) {
		response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errLoginRequired))
		return types.User{}, false
	}
	if err != nil {
		slog.Error("error loading session user", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
		return types.User{}, false
	}
	return user, true
}

func signedIn(w http.ResponseWriter, r *http.Request, users storage.UserStore) bool {
	_, ok := currentUser(w, r, users)
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Token handles POST /api/token. It exchanges credentials for a bearer
// token; no session is created.
//
// Request body:
//
//	{ "email": "ann@x.com", "password": "pw123" }
//
// Success response (200 OK):
//
//	{ "token": "eyJhbGciOi..." }
//
// Unknown email and wrong password both give 401 with the same message.
// ─────────────────────────────────────────────────────────────────────────────
func Token(users storage.UserStore, hasher *auth.Hasher, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tokenRequest
		if !decode(w, r, &in) {
			return
		}

		user, err := hasher.Authenticate(r.Context(), users,
			strings.ToLower(strings.TrimSpace(in.Email)), in.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(err))
			return
		}
		if err != nil {
			slog.Error("error authenticating user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			slog.Error("error issuing token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
			return
		}

		slog.Info("token issued", slog.Int64("id", user.ID))
		metrics.LoginsTotal.WithLabelValues("success").Inc()

		response.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /api/tests (teachers only).
//
// Request body:
//
//	{ "question": "2+2?", "option_a": "3", "option_b": "4", "option_c": "5", "correct": "B" }
//
// Success response (201 Created):
//
//	{ "id": 1 }
//
// Error responses: 400 bad body, 401 anonymous, 403 not a teacher.
// ─────────────────────────────────────────────────────────────────────────────
func Create(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := session.RequireRole(r.Context(), st, types.RoleTeacher)
		switch {
		case errors.Is(err, session.ErrNotAuthenticated):
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errLoginRequired))
			return
		case errors.Is(err, session.ErrAccessDenied):
			response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errTeacherRequired))
			return
		case err != nil:
			slog.Error("error loading session user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
			return
		}

		var in questionRequest
		if !decode(w, r, &in) {
			return
		}

		id, err := st.CreateQuestion(r.Context(),
			strings.TrimSpace(in.Question),
			strings.TrimSpace(in.OptionA),
			strings.TrimSpace(in.OptionB),
			strings.TrimSpace(in.OptionC),
			types.Label(in.Correct))
		if errors.Is(err, types.ErrInvalidInput) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		if err != nil {
			slog.Error("error creating question", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
			return
		}

		slog.Info("question created", slog.Int64("id", id), slog.Int64("by", user.ID))
		metrics.QuestionsCreatedTotal.Inc()

		response.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

// GetByID handles GET /api/tests/{id} for any signed-in user, matching
// the gate on /take_test/{id}. The answer key is never included.
//
//	{ "id": 1, "question": "2+2?", "option_a": "3", "option_b": "4", "option_c": "5" }
func GetByID(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !signedIn(w, r, st) {
			return
		}

		q, ok := question(w, r, st)
		if !ok {
			return
		}
		response.WriteJSON(w, http.StatusOK, q)
	}
}

// GetList handles GET /api/tests. An empty store yields [] rather than null.
func GetList(st storage.QuestionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := st.ListQuestions(r.Context())
		if err != nil {
			slog.Error("error listing questions", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
			return
		}
		response.WriteJSON(w, http.StatusOK, questions)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Answer handles POST /api/tests/{id}/answer for any signed-in user.
//
// Request body:
//
//	{ "answer": "B" }
//
// Success response (200 OK):
//
//	{ "id": 1, "result": "Correct!" }
//
// Comparison is exact, so "b" is incorrect. Nothing is recorded.
// ─────────────────────────────────────────────────────────────────────────────
func Answer(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r, st)
		if !ok {
			return
		}

		q, ok := question(w, r, st)
		if !ok {
			return
		}

		var in answerRequest
		if !decode(w, r, &in) {
			return
		}

		result := q.Check(in.Answer)
		slog.Info("answer checked",
			slog.Int64("question_id", q.ID),
			slog.Int64("user_id", user.ID),
			slog.String("result", string(result)))
		if result == types.OutcomeCorrect {
			metrics.AnswersTotal.WithLabelValues("correct").Inc()
		} else {
			metrics.AnswersTotal.WithLabelValues("incorrect").Inc()
		}

		response.WriteJSON(w, http.StatusOK, AnswerResponse{ID: q.ID, Result: result})
	}
}
