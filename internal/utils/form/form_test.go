package form

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" echo:"-" validate:"required"`
	Role     string `form:"role" validate:"omitempty,oneof=student teacher"`
}

func TestValidate(t *testing.T) {
	require.Nil(t, Validate(signup{Email: "a@b.co", Password: "x", Role: "teacher"}))

	msgs := Validate(signup{Email: "nope", Role: "admin"})
	require.ElementsMatch(t, []string{
		"field email must be a valid email address",
		"field password is required",
		"field role must be one of: student teacher",
	}, msgs)
}

func TestValues_SkipsPassword(t *testing.T) {
	v := Values(&signup{Email: "a@b.co", Password: "secret", Role: "student"})
	require.Equal(t, map[string]string{"email": "a@b.co", "role": "student"}, v)
}

func TestValidate_JSONTagNames(t *testing.T) {
	type answer struct {
		Answer string `json:"answer" validate:"required"`
	}
	require.Equal(t, []string{"field answer is required"}, Validate(answer{}))
}
