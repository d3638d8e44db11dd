package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/interpreter"
	"github.com/karupanerura/golox/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type evaluation struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	State     string `json:"state"`
	Source    string `json:"source"`
	AST       string `json:"ast"`
	Result    any    `json:"result"`
	Error     any    `json:"error"`
}

func newServer(t *testing.T) (server.Handler, *httptest.Server) {
	t.Helper()

	handler := server.NewHTTPHandler(interpreter.New(config.Default(), nil), zaptest.NewLogger(t))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return handler, srv
}

func doJSON(t *testing.T, method, url, body string, v any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if v != nil && res.StatusCode == http.StatusOK {
		require.Equal(t, "application/json", res.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(res.Body).Decode(v))
	}
	return res.StatusCode
}

func TestEvaluationLifecycle(t *testing.T) {
	t.Parallel()

	handler, srv := newServer(t)

	var created evaluation
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"source":"1 + 2 * 3"}`, &created)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(created.Name, "evaluations/"))
	assert.Equal(t, "1 + 2 * 3", created.Source)
	assert.NotEmpty(t, created.StartTime)

	handler.Wait()

	var got evaluation
	status = doJSON(t, http.MethodGet, srv.URL+"/v1/"+created.Name, "", &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, server.StateSucceeded, got.State)
	assert.Equal(t, 7.0, got.Result)
	assert.Equal(t, "(+ 1 (* 2 3))", got.AST)
	assert.NotEmpty(t, got.EndTime)
	assert.Nil(t, got.Error)
}

func TestEvaluationFailures(t *testing.T) {
	t.Parallel()

	handler, srv := newServer(t)

	var runtime, syntax evaluation
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"source":"-nil"}`, &runtime))
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"source":"(1"}`, &syntax))
	handler.Wait()

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/v1/"+runtime.Name, "", &runtime))
	assert.Equal(t, server.StateFailed, runtime.State)
	exception, ok := runtime.Error.(map[string]any)
	require.True(t, ok, "runtime errors are exceptions: %#v", runtime.Error)
	assert.Equal(t, []any{"TypeError"}, exception["tags"])
	assert.Equal(t, "can't '- nil'", exception["message"])
	assert.Equal(t, "(- nil)", runtime.AST)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/v1/"+syntax.Name, "", &syntax))
	assert.Equal(t, server.StateFailed, syntax.State)
	assert.Equal(t, "[line 1] at end of input: expected ')' after expression", syntax.Error)
	assert.Empty(t, syntax.AST)
}

func TestListEvaluations(t *testing.T) {
	t.Parallel()

	handler, srv := newServer(t)
	for _, source := range []string{`"a"`, `"b"`, `"c"`} {
		require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"source":`+source+`}`, nil))
	}
	handler.Wait()

	var list struct {
		Evaluations []evaluation `json:"evaluations"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/v1/evaluations", "", &list))
	require.Len(t, list.Evaluations, 3)
	for _, ev := range list.Evaluations {
		assert.Equal(t, server.StateSucceeded, ev.State)
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)
	for _, tt := range []struct {
		method, path, body string
		status             int
	}{
		{method: http.MethodPost, path: "/v1/evaluations", body: `{`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/v1/evaluations", body: `{}`, status: http.StatusBadRequest},
		{method: http.MethodDelete, path: "/v1/evaluations", status: http.StatusMethodNotAllowed},
		{method: http.MethodPost, path: "/v1/evaluations/x", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/v1/evaluations/unknown", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/v2/evaluations", status: http.StatusNotFound},
	} {
		assert.Equal(t, tt.status, doJSON(t, tt.method, srv.URL+tt.path, tt.body, nil), "%s %s", tt.method, tt.path)
	}
}

func TestCreateEvaluationBodyLimit(t *testing.T) {
	t.Parallel()

	handler := server.NewHTTPHandler(interpreter.New(config.Default(), nil), zaptest.NewLogger(t))

	body := `{"source":"` + "1" + strings.Repeat("+1", server.MaxRequestBodySize/2) + `"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	handler.Wait()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"evaluations":[]}`, rec.Body.String())
}

func TestEvaluationErrorInLongChain(t *testing.T) {
	t.Parallel()

	handler, srv := newServer(t)

	var ev evaluation
	source := "nil" + strings.Repeat("+1", 8000)
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"source":"`+source+`"}`, &ev))
	handler.Wait()

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/v1/"+ev.Name, "", &ev))
	assert.Equal(t, server.StateFailed, ev.State)
	exception, ok := ev.Error.(map[string]any)
	require.True(t, ok, "runtime errors are exceptions: %#v", ev.Error)
	message, _ := exception["error"].(string)
	assert.Less(t, len(message), 1024)
	assert.Equal(t, `left of operator "+": TypeError: can only add numbers or strings (for concatenation): left=nil right=number`, message)
}
