package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/probgen/internal/config"
	"github.com/abhisek/probgen/internal/metrics"
	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/store"
)

const areaTemplate = `{
  "name": "Rectangle area",
  "category": "geometry",
  "difficulty": "easy",
  "questionType": "numeric_input",
  "questionTemplate": "A plot is {{w}} m by {{h}} m. What is its area?",
  "parameters": [
    {"name": "w", "type": "integer", "min": 5, "max": 40},
    {"name": "h", "type": "integer", "min": 5, "max": 40}
  ],
  "answerFormula": "w * h",
  "answerFormat": {"decimals": 0, "unit": "m²"},
  "explanationTemplate": "{{w}} x {{h}} = {{_answer}}"
}`

const areaTemplateYAML = `
name: Rectangle perimeter
category: geometry
difficulty: easy
questionType: numeric_input
questionTemplate: "A plot is {{w}} m by {{h}} m. What is its perimeter?"
parameters:
  - {name: w, type: integer, min: 5, max: 40}
  - {name: h, type: integer, min: 5, max: 40}
answerFormula: "2 * (w + h)"
`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t *testing.T
	h http.Handler
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	svc := service.New(st, problemgen.DefaultConfig(), service.WithMetrics(m))
	opts = append([]Option{WithMetrics(m)}, opts...)
	srv := New(svc, config.ServerConfig{Mode: "test"}, opts...)
	return &testServer{t: t, h: srv.Handler()}
}

func (ts *testServer) do(method, path, contentType, body string) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (ts *testServer) createTemplate(body string) map[string]any {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/api/templates", "application/json", body)
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var tmpl map[string]any
	require.NoError(ts.t, json.Unmarshal(env.Data, &tmpl))
	return tmpl
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w, _ = ts.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(http.MethodPost, "/api/templates/validate", "application/json", areaTemplate)
	require.Equal(t, http.StatusOK, w.Code)
	var ok validateResponse
	require.NoError(t, json.Unmarshal(env.Data, &ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)

	bad := `{"name":"x","difficulty":"easy","questionType":"numeric_input","questionTemplate":"{{y}}","answerFormula":"z + 1"}`
	w, env = ts.do(http.MethodPost, "/api/templates/validate", "application/json", bad)
	require.Equal(t, http.StatusOK, w.Code)
	var res validateResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)

	w, env = ts.do(http.MethodPost, "/api/templates/validate", "application/json", `{"name": 3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.Code)
}

func TestTemplateLifecycle(t *testing.T) {
	ts := newTestServer(t)

	tmpl := ts.createTemplate(areaTemplate)
	id := tmpl["id"].(string)
	assert.EqualValues(t, 1, tmpl["version"])

	w, env := ts.do(http.MethodPost, "/api/templates", "application/x-yaml", areaTemplateYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "created", env.Message)

	w, env = ts.do(http.MethodGet, "/api/templates?q=perimeter", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Rectangle perimeter", list[0]["name"])

	w, _ = ts.do(http.MethodPut, "/api/templates/"+id, "application/json", areaTemplate)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = ts.do(http.MethodGet, "/api/templates/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.EqualValues(t, 2, got["version"])

	w, _ = ts.do(http.MethodDelete, "/api/templates/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(http.MethodPost, "/api/templates/"+id+"/publish", "application/json", `{"count":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "template is inactive", env.Message)

	w, _ = ts.do(http.MethodGet, "/api/templates/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateInvalidTemplate(t *testing.T) {
	ts := newTestServer(t)
	bad := `{"name":"x","difficulty":"easy","questionType":"numeric_input","questionTemplate":"Find it","answerFormula":"foo(1)"}`
	w, env := ts.do(http.MethodPost, "/api/templates", "application/json", bad)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "template is invalid", env.Message)
	assert.Contains(t, string(env.Data), "UndefinedFunction")
}

func TestPreviewPublishGrade(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createTemplate(areaTemplate)["id"].(string)

	w, env := ts.do(http.MethodPost, "/api/templates/"+id+"/preview", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var preview service.PreviewResult
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.NotEmpty(t, preview.Instance.QuestionText)
	assert.Contains(t, preview.Scope, "w")

	w, env = ts.do(http.MethodPost, "/api/templates/"+id+"/publish", "application/json", `{"count":3,"mode":"dynamic"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pub problemgen.PublishResult
	require.NoError(t, json.Unmarshal(env.Data, &pub))
	require.Len(t, pub.Questions, 3)

	qid := pub.Questions[0].ID
	w, env = ts.do(http.MethodGet, "/api/questions/"+qid, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var qr questionResponse
	require.NoError(t, json.Unmarshal(env.Data, &qr))
	require.NotNil(t, qr.Instance)
	assert.True(t, qr.Question.IsDynamic)

	body, _ := json.Marshal(gradeRequest{QuestionID: qid, Answer: qr.Instance.Answer.Formatted()})
	w, env = ts.do(http.MethodPost, "/api/grade", "application/json", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"isCorrect":true`)

	body, _ = json.Marshal(gradeRequest{QuestionID: qid, Answer: "a lot"})
	w, _ = ts.do(http.MethodPost, "/api/grade", "application/json", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodPost, "/api/grade", "application/json", `{"answer":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	inline := `{"question":{"id":"q","acceptedSet":["a","b"]},"answer":"b, a"}`
	w, env = ts.do(http.MethodPost, "/api/grade", "application/json", inline)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"isCorrect":true`)
}

func TestPublishBadRequest(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createTemplate(areaTemplate)["id"].(string)

	for _, body := range []string{`{"count":0}`, `{"count":2,"mode":"sometimes"}`, `not json`} {
		w, _ := ts.do(http.MethodPost, "/api/templates/"+id+"/publish", "application/json", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(config.RateLimitConfig{MaxRequests: 2, Window: time.Hour}))

	for range 2 {
		w, _ := ts.do(http.MethodGet, "/api/templates", "", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, env := ts.do(http.MethodGet, "/api/templates", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)

	w, _ = ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
