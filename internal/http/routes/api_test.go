package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/VanDeGall/EduTestor/internal/types"
	"github.com/stretchr/testify/require"
)

func (b *browser) postJSON(path, body string) result {
	b.t.Helper()
	return b.finish(b.client.Post(b.base+path, "application/json", strings.NewReader(body)))
}

func TestAPI_ListAndGetHideAnswerKey(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	res := b.get("/api/tests")
	require.Equal(t, http.StatusOK, res.status)
	require.JSONEq(t, `[]`, res.body)

	id := app.addQuestion(t, types.LabelB)

	res = b.get("/api/tests")
	require.Equal(t, http.StatusOK, res.status)
	require.NotContains(t, res.body, "correct")

	b.register("Ann", "ann@x.com", "pw", "student")
	b.login("ann@x.com", "pw")

	res = b.get("/api/tests/" + strconv.FormatInt(id, 10))
	require.Equal(t, http.StatusOK, res.status)
	require.JSONEq(t, `{"id":`+strconv.FormatInt(id, 10)+`,"question":"2+2?","option_a":"3","option_b":"4","option_c":"5"}`, res.body)

	require.Equal(t, http.StatusBadRequest, b.get("/api/tests/abc").status)
	require.Equal(t, http.StatusNotFound, b.get("/api/tests/999").status)
}

func TestAPI_GetByIDRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	id := strconv.FormatInt(app.addQuestion(t, types.LabelA), 10)

	anon := app.browser(t)
	res := anon.get("/api/tests/" + id)
	require.Equal(t, http.StatusUnauthorized, res.status)
	require.Contains(t, res.body, "login required")
	require.NotContains(t, res.body, "2+2?")

	// the page route applies the same gate
	require.Equal(t, http.StatusSeeOther, anon.get("/take_test/"+id).status)

	b := app.browser(t)
	b.register("Ann", "ann@x.com", "pw", "student")
	res = b.postJSON("/api/token", `{"email":"ann@x.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, res.status)
	var tok map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.body), &tok))

	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/api/tests/"+id, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok["token"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res = b.finish(resp, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Contains(t, res.body, "2+2?")
}

func TestAPI_CreateRequiresTeacher(t *testing.T) {
	app := newTestApp(t)
	body := `{"question":"Capital of France?","option_a":"Paris","option_b":"Rome","option_c":"Oslo","correct":"A"}`

	anon := app.browser(t)
	require.Equal(t, http.StatusUnauthorized, anon.postJSON("/api/tests", body).status)

	student := app.browser(t)
	student.register("Ann", "ann@x.com", "pw", "student")
	student.login("ann@x.com", "pw")
	require.Equal(t, http.StatusForbidden, student.postJSON("/api/tests", body).status)

	teacher := app.browser(t)
	teacher.register("Tom", "tom@x.com", "pw", "teacher")
	teacher.login("tom@x.com", "pw")

	res := teacher.postJSON("/api/tests", `{"question":"x"}`)
	require.Equal(t, http.StatusBadRequest, res.status)
	require.Contains(t, res.body, "field option_a is required")

	res = teacher.postJSON("/api/tests", "")
	require.Equal(t, http.StatusBadRequest, res.status)
	require.Contains(t, res.body, "request body is empty")

	res = teacher.postJSON("/api/tests", body)
	require.Equal(t, http.StatusCreated, res.status)

	var created map[string]int64
	require.NoError(t, json.Unmarshal([]byte(res.body), &created))
	q, err := app.db.GetQuestionByID(context.Background(), created["id"])
	require.NoError(t, err)
	require.Equal(t, types.LabelA, q.Correct)
}

func TestAPI_Answer(t *testing.T) {
	app := newTestApp(t)
	id := strconv.FormatInt(app.addQuestion(t, types.LabelB), 10)

	anon := app.browser(t)
	require.Equal(t, http.StatusUnauthorized, anon.postJSON("/api/tests/"+id+"/answer", `{"answer":"B"}`).status)

	b := app.browser(t)
	b.register("Ann", "ann@x.com", "pw", "student")
	b.login("ann@x.com", "pw")

	res := b.postJSON("/api/tests/"+id+"/answer", `{"answer":"B"}`)
	require.Equal(t, http.StatusOK, res.status)
	require.JSONEq(t, `{"id":`+id+`,"result":"Correct!"}`, res.body)

	res = b.postJSON("/api/tests/"+id+"/answer", `{"answer":"b"}`)
	require.JSONEq(t, `{"id":`+id+`,"result":"Incorrect!"}`, res.body)

	require.Equal(t, http.StatusBadRequest, b.postJSON("/api/tests/"+id+"/answer", `{}`).status)
	require.Equal(t, http.StatusNotFound, b.postJSON("/api/tests/999/answer", `{"answer":"A"}`).status)
}

func TestAPI_BearerToken(t *testing.T) {
	app := newTestApp(t)
	id := strconv.FormatInt(app.addQuestion(t, types.LabelC), 10)

	b := app.browser(t)
	b.register("Tom", "tom@x.com", "pw", "teacher")

	res := b.postJSON("/api/token", `{"email":"tom@x.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.status)
	require.Contains(t, res.body, "incorrect email or password")

	res = b.postJSON("/api/token", `{"email":"TOM@x.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, res.status)
	var tok map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.body), &tok))
	require.NotEmpty(t, tok["token"])

	// a fresh client with no cookies, only the token
	call := func(auth, path, body string) result {
		req, err := http.NewRequest(http.MethodPost, app.srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Empty(t, resp.Cookies())
		return b.finish(resp, nil)
	}

	res = call("Bearer "+tok["token"], "/api/tests/"+id+"/answer", `{"answer":"C"}`)
	require.Equal(t, http.StatusOK, res.status)
	require.Contains(t, res.body, "Correct!")

	res = call("Bearer "+tok["token"], "/api/tests",
		`{"question":"q","option_a":"a","option_b":"b","option_c":"c","correct":"A"}`)
	require.Equal(t, http.StatusCreated, res.status)

	res = call("Bearer garbage", "/api/tests/"+id+"/answer", `{"answer":"C"}`)
	require.Equal(t, http.StatusUnauthorized, res.status)
}
