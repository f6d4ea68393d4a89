package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiServer struct {
	*httptest.Server
	mu    sync.Mutex
	auths []string
	query []string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auths = append(s.auths, r.Header.Get("Authorization"))
		s.query = append(s.query, r.URL.RawQuery)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/categories":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"response": []any{map[string]any{"id": 1, "name": "Books"}, map[string]any{"id": 2, "name": "Games"}},
			})
		case "/api/echo":
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write(body)
		case "/api/login":
			var creds map[string]any
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds["password"] != "secret" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"message": "The given data was invalid.",
					"errors":  map[string]any{"password": []string{"wrong password"}},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"token": "tok-1",
					"user":  map[string]any{"id": 5, "name": "Grace", "roles": []string{"admin"}},
				},
			})
		case "/api/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Not found"})
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) lastAuth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auths[len(s.auths)-1]
}

func (s *apiServer) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query[len(s.query)-1]
}

type result struct {
	code   int
	stdout string
	stderr string
}

func noEnv(string) (string, bool) { return "", false }

// run executes vq against srv with a store under dir.
func run(t *testing.T, srv *apiServer, dir, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	streams := Streams{In: strings.NewReader(stdin), Out: &out, Err: &errOut}
	base := []string{"--env-file", "", "--store", filepath.Join(dir, "store.db")}
	if srv != nil {
		base = append(base, "--base-url", srv.URL)
	}
	code := Execute(context.Background(), "test", append(base, args...), streams, WithLookup(noEnv))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestVersion(t *testing.T) {
	res := run(t, nil, t.TempDir(), "", "version")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "vq test\n", res.stdout)
}

func TestGet_ParamsAndQuery(t *testing.T) {
	srv := newAPIServer(t)
	res := run(t, srv, t.TempDir(), "", "get", "/api/categories", "-p", "page=2", "--query", "response[].name")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "[\n  \"Books\",\n  \"Games\"\n]\n", res.stdout)
	assert.Equal(t, "page=2", srv.lastQuery())
	assert.Empty(t, srv.lastAuth())
}

func TestPost_YAML(t *testing.T) {
	srv := newAPIServer(t)
	res := run(t, srv, t.TempDir(), "", "post", "/api/echo", "-d", `{"title":"Hello"}`, "-o", "yaml")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "title: Hello\n", res.stdout)
}

func TestRequest_DataFromStdin(t *testing.T) {
	srv := newAPIServer(t)
	res := run(t, srv, t.TempDir(), `{"n": 3}`, "request", "put", "/api/echo", "-d", "@-", "--query", "n")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "3\n", res.stdout)
}

func TestRequest_FullEnvelope(t *testing.T) {
	srv := newAPIServer(t)
	res := run(t, srv, t.TempDir(), "", "get", "/api/categories", "--full", "--query", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "200\n", res.stdout)
}

func TestRequest_Errors(t *testing.T) {
	srv := newAPIServer(t)
	dir := t.TempDir()

	res := run(t, srv, dir, "", "get", "/api/missing")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error: Not found [404]")

	res = run(t, srv, dir, "", "post", "/api/echo", "-d", "{nope")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--data is not valid JSON")

	res = run(t, srv, dir, "", "get", "/api/categories", "-p", "novalue")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `invalid pair "novalue"`)

	res = run(t, srv, dir, "", "get", "/api/categories", "-o", "xml")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown output format "xml"`)
}

func TestLoginFlow(t *testing.T) {
	srv := newAPIServer(t)
	dir := t.TempDir()

	res := run(t, srv, dir, "", "login", "--email", "g@example.com", "--password", "bad")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "password: wrong password")

	res = run(t, srv, dir, "g@example.com\nsecret\n", "login")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Logged in as Grace")

	// token persisted in the store is injected by the next invocation
	res = run(t, srv, dir, "", "get", "/api/categories")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Bearer tok-1", srv.lastAuth())

	res = run(t, srv, dir, "", "whoami")
	require.Equal(t, 0, res.code, res.stderr)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Equal(t, true, info["authenticated"])
	assert.NotEmpty(t, info["session_id"])
	assert.NotContains(t, res.stdout, "tok-1")

	res = run(t, srv, dir, "", "authorize", "--role", "admin")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "authorized\n", res.stdout)

	res = run(t, srv, dir, "", "authorize", "--role", "admin", "--permission", "users.delete")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not authorized: missing permission(s): users.delete")

	res = run(t, srv, dir, "", "logout", "--remote")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Logged out\n", res.stdout)
	assert.Equal(t, "Bearer tok-1", srv.lastAuth())

	res = run(t, srv, dir, "", "get", "/api/categories")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, srv.lastAuth())

	res = run(t, srv, dir, "", "authorize")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not authorized: unauthenticated")
}

func TestInvalidConfig(t *testing.T) {
	res := run(t, nil, t.TempDir(), "", "--base-url", "not a url", "get", "/x")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid configuration")
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"Accept: text/plain", "X-Id=7", "X-Id=8"}, ":")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Accept": "text/plain", "X-Id": "8"}, got)

	got, err = parsePairs([]string{"q=a:b"}, "=")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q": "a:b"}, got)

	_, err = parsePairs([]string{"=x"}, "=")
	assert.Error(t, err)
}

func TestQueryHistory(t *testing.T) {
	srv := newAPIServer(t)
	dir := t.TempDir()

	for _, q := range []string{"response[0].name", "response[].id", "response[0].name"} {
		res := run(t, srv, dir, "", "get", "/api/categories", "--query", q)
		require.Equal(t, 0, res.code, res.stderr)
	}
	res := run(t, srv, dir, "", "get", "/api/categories", "--query", "[[")
	require.Equal(t, 1, res.code)

	res = run(t, srv, dir, "", "history")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "response[0].name\nresponse[].id\n", res.stdout)

	res = run(t, srv, dir, "", "history", "--clear")
	require.Equal(t, 0, res.code, res.stderr)
	res = run(t, srv, dir, "", "history")
	assert.Empty(t, res.stdout)
}
