// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and session code can all import types without
// depending on each other.
package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a value coming from a form does not
// belong to one of the closed sets below (roles, answer labels).
var ErrInvalidInput = errors.New("invalid input")

// Role is the closed set of account kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole converts a form value into a Role. An empty value falls back
// to RoleStudent, matching the column default.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleStudent, nil
	case RoleStudent, RoleTeacher:
		return Role(s), nil
	default:
		return "", fmt.Errorf("role %q: %w", s, ErrInvalidInput)
	}
}

// Label names one of the three answer options of a question.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
)

// Labels lists the option labels in display order.
var Labels = []Label{LabelA, LabelB, LabelC}

// ParseLabel accepts exactly "A", "B" or "C". No case folding.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelA, LabelB, LabelC:
		return Label(s), nil
	default:
		return "", fmt.Errorf("label %q: %w", s, ErrInvalidInput)
	}
}

// User represents an account.
//
// PasswordHash holds the bcrypt hash; the json:"-" tag keeps it out of
// any encoded output.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// IsTeacher reports whether the user may author questions.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// Question is a single multiple-choice test item.
// The author is not recorded.
type Question struct {
	ID      int64  `json:"id"`
	Prompt  string `json:"question"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	Correct Label  `json:"-"`
}

// Option returns the text shown for the given label.
func (q Question) Option(l Label) string {
	switch l {
	case LabelA:
		return q.OptionA
	case LabelB:
		return q.OptionB
	case LabelC:
		return q.OptionC
	}
	return ""
}

// Outcome is the result of checking one submitted answer.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCorrect   Outcome = "Correct!"
	OutcomeIncorrect Outcome = "Incorrect!"
)

// Check compares a submitted answer against the stored label using exact,
// case-sensitive equality. It has no side effects.
func (q Question) Check(answer string) Outcome {
	if answer == string(q.Correct) {
		return OutcomeCorrect
	}
	return OutcomeIncorrect
}

// Session is the server-side state bound to one browser cookie.
// UserID is zero while the session is anonymous.
type Session struct {
	ID      string   `json:"id"`
	UserID  int64    `json:"user_id,omitempty"`
	Flashes []string `json:"flashes,omitempty"`
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}
