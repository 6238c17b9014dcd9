package views

import (
	"strings"
	"testing"

	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/stretchr/testify/require"
)

func TestRender_AllPages(t *testing.T) {
	user := &types.User{ID: 1, Name: "Ann", Email: "ann@x.com", Role: types.RoleTeacher}
	q := types.Question{ID: 9, Prompt: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", Correct: types.LabelB}

	cases := map[string]Page{
		Index:         {},
		Dashboard:     {User: user},
		Register:      {Form: map[string]string{"name": "Ann"}},
		Login:         {},
		DeleteAccount: {User: user},
		AddTest:       {User: user},
		TakeTest:      {User: user, Data: TakeTestData{Question: q, Result: types.OutcomeCorrect}},
		Tests:         {Data: []types.Question{q}},
		Error:         {Title: "Not Found"},
	}

	for name, page := range cases {
		var sb strings.Builder
		require.NoError(t, Render(&sb, name, page), name)
		require.Contains(t, sb.String(), "<html", name)
	}
}

func TestRender_EscapesAndFlashes(t *testing.T) {
	var sb strings.Builder
	err := Render(&sb, Tests, Page{
		Flashes: []string{"Test added successfully."},
		Data:    []types.Question{{ID: 1, Prompt: "<script>x</script>"}},
	})
	require.NoError(t, err)

	out := sb.String()
	require.Contains(t, out, "Test added successfully.")
	require.NotContains(t, out, "<script>x</script>")
	require.Contains(t, out, `/take_test/1`)
}

func TestRender_TakeTestHidesAnswerKey(t *testing.T) {
	var sb strings.Builder
	q := types.Question{ID: 2, Prompt: "Pick", OptionA: "x", OptionB: "y", OptionC: "z", Correct: types.LabelC}
	require.NoError(t, Render(&sb, TakeTest, Page{Data: TakeTestData{Question: q}}))
	require.NotContains(t, sb.String(), "Correct!")
	require.NotContains(t, sb.String(), "Incorrect!")
}

func TestRender_UnknownPage(t *testing.T) {
	var sb strings.Builder
	require.Error(t, Render(&sb, "nope", Page{}))
}
