package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/sqlfront/internal/testutil"
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{Dialect: dialect.Postgres, Logger: testutil.NewTestLogger(t)})
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDialects(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dialects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dialects":["ansi","duckdb","mysql","postgres","sqlite"],"default":"postgres"}`, rec.Body.String())
}

func TestFormatEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"server dialect", `{"sql":"select a::int from t"}`, "SELECT a::int FROM t"},
		{"translated", `{"sql":"select a::int, $1 from t","to_dialect":"mysql"}`, "SELECT CAST(a AS int), ? FROM t"},
		{"indented", `{"sql":"select a, b from t","indent":2}`, "SELECT\n  a,\n  b\nFROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h, "/api/format", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, out["sql"])
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, out := post(t, h, "/api/parse", `{"sql":"select 1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tree, ok := out["tree"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Script", tree[ast.KindKey])

	rec, out = post(t, h, "/api/parse", `{"sql":"a + 1","kind":"Expr"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, out["tree"])
}

func TestCanonicalizeEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, out := post(t, h, "/api/canonicalize", `{"sql":"SELECT a::int"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SELECT CAST(a AS int)", out["sql"])
	assert.NotNil(t, out["tree"])
}

func TestTokensEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, out := post(t, h, "/api/tokens", `{"sql":"f(x) -- c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens, ok := out["tokens"].([]any)
	require.True(t, ok)
	require.Len(t, tokens, 3)
	block := tokens[1].(map[string]any)
	assert.Equal(t, "paren_block", block["kind"])
	assert.Equal(t, "()", block["text"])
	assert.Len(t, block["children"], 1)
	assert.Equal(t, "line_comment", tokens[2].(map[string]any)["kind"])
}

func TestErrors(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		check  func(t *testing.T, diag map[string]any)
	}{
		{
			name: "lex error has position", path: "/api/format", body: `{"sql":"SELECT (1"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, diag map[string]any) {
				assert.EqualValues(t, 1, diag["line"])
				assert.EqualValues(t, 8, diag["column"])
			},
		},
		{
			name: "unknown dialect", path: "/api/parse", body: `{"sql":"select 1","dialect":"oracle"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, diag map[string]any) {
				assert.Contains(t, diag["message"], "unknown dialect")
			},
		},
		{
			name: "unknown field", path: "/api/parse", body: `{"query":"select 1"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, diag map[string]any) {
				assert.Contains(t, diag["message"], "invalid request body")
			},
		},
		{
			name: "negative indent", path: "/api/format", body: `{"sql":"select 1","indent":-1}`,
			status: http.StatusBadRequest,
		},
		{
			name: "invalid change event", path: "/api/changes", body: `{"table":"items","operation":"upsert"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, diag map[string]any) {
				assert.Contains(t, diag["message"], "unknown operation")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			diag, ok := out["error"].(map[string]any)
			require.True(t, ok)
			if tt.check != nil {
				tt.check(t, diag)
			}
		})
	}
}

func TestRejectsNonJSONContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("select 1"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestChangeStream(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/changes/stream?table=items", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return s.notifier.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)

	send := func(body string) {
		r, err := http.Post(ts.URL+"/api/changes", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = r.Body.Close()
		require.Equal(t, http.StatusAccepted, r.StatusCode)
	}
	send(`{"id":"e1","table":"other","operation":"insert","after":{"id":1}}`)
	send(`{"id":"e2","table":"items","operation":"insert","after":{"id":2}}`)
	send(`{"id":"e2","table":"items","operation":"insert","after":{"id":2}}`)
	send(`{"id":"e3","table":"items","operation":"delete","before":{"id":2}}`)

	var ids []string
	scanner := bufio.NewScanner(resp.Body)
	for len(ids) < 2 && scanner.Scan() {
		line := scanner.Text()
		for _, id := range []string{"e1", "e2", "e3"} {
			if strings.Contains(line, `"id":"`+id+`"`) {
				ids = append(ids, id)
			}
		}
	}
	assert.Equal(t, []string{"e2", "e3"}, ids)
}

func TestChangeAssignsID(t *testing.T) {
	h := newTestServer(t).Handler()
	rec, out := post(t, h, "/api/changes", `{"table":"items","operation":"insert","after":{"id":1}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, out["id"])
}
