package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDownstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":7,"name":"Ann","tags":["a","b"]}`)
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body["page"] = r.URL.Query().Get("page")
		body["trace"] = r.Header.Get("X-Trace")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_, _ = io.WriteString(w, r.PostForm.Encode())
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such thing")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Get(t *testing.T) {
	server := newDownstream(t)

	code, stdout, _ := runCLI(t, "", "get", "/users/{id}", "--base-url", server.URL, "-p", "id=7")
	assert.Equal(t, 0, code)
	assert.Equal(t, `{"id":7,"name":"Ann","tags":["a","b"]}`+"\n", stdout)

	code, stdout, _ = runCLI(t, "", "get", "/users/{id}", "--base-url", server.URL, "-p", "id=7", "--select", "tags.1")
	assert.Equal(t, 0, code)
	assert.Equal(t, "b\n", stdout)
}

func TestExecute_SendWithStdinBody(t *testing.T) {
	server := newDownstream(t)

	code, stdout, stderr := runCLI(t, `{"name":"Bo"}`,
		"send", "/users", "--base-url", server.URL, "-d", "@-", "-q", "page=2", "-H", "X-Trace=abc", "--select", "trace")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "abc\n", stdout)
}

func TestExecute_Form(t *testing.T) {
	server := newDownstream(t)

	code, stdout, stderr := runCLI(t, "", "form", "/login", "--base-url", server.URL, "-F", "user=ann", "-F", "pass=x y")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "pass=x+y&user=ann\n", stdout)
}

func TestExecute_GatewayErrorExitCode(t *testing.T) {
	server := newDownstream(t)

	code, stdout, stderr := runCLI(t, "", "get", "/missing", "--base-url", server.URL)
	assert.Equal(t, exitHTTPError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "HTTP 404")
	assert.Contains(t, stderr, "no such thing")
}

func TestExecute_OtherErrors(t *testing.T) {
	server := newDownstream(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing path variable", args: []string{"get", "/users/{id}", "--base-url", server.URL, "-p", "other=1"}},
		{name: "bad pair", args: []string{"get", "/users", "--base-url", server.URL, "-q", "novalue"}},
		{name: "invalid json body", args: []string{"send", "/users", "--base-url", server.URL, "-d", "{nope"}},
		{name: "no base url", args: []string{"get", "/users"}},
		{name: "call without openapi file", args: []string{"call", "listPets"}},
		{name: "unknown command", args: []string{"frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, 1, code)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestExecute_RunAndCall(t *testing.T) {
	server := newDownstream(t)
	dir := t.TempDir()

	requests := filepath.Join(dir, "requests.yaml")
	require.NoError(t, os.WriteFile(requests, []byte(`
requests:
  ann:
    path: /users/{id}
    path_variables:
      id: "7"
`), 0o600))

	code, stdout, stderr := runCLI(t, "", "run", "ann", "--base-url", server.URL, "--requests-file", requests, "--select", "name")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Ann\n", stdout)

	code, _, stderr = runCLI(t, "", "run", "bob", "--base-url", server.URL, "--requests-file", requests)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ann")

	openapi := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(openapi, []byte(`
openapi: 3.0.3
info: {title: users, version: "1"}
paths:
  /users/{id}:
    get:
      operationId: getUser
      responses:
        "200": {description: ok}
`), 0o600))

	code, stdout, stderr = runCLI(t, "", "call", "getUser", "--base-url", server.URL, "--openapi-file", openapi, "-p", "id=7", "--select", "id")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "7\n", stdout)

	code, stdout, stderr = runCLI(t, "", "operations", "--openapi-file", openapi)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "getUser")
	assert.Contains(t, stdout, "/users/{id}")
}

func TestExecute_Metrics(t *testing.T) {
	server := newDownstream(t)

	code, _, stderr := runCLI(t, "", "get", "/users/{id}", "--base-url", server.URL, "-p", "id=7", "--metrics")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, `gateway_outbound_requests_total{code="200",method="GET"} 1`)
}

func TestExecute_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "rest-gateway version")
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs("query", nil)
	require.NoError(t, err)
	assert.Nil(t, pairs)

	pairs, err = parsePairs("query", []string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, pairs)

	_, err = parsePairs("query", []string{"=1"})
	assert.Error(t, err)
}

func TestReadBody(t *testing.T) {
	body, err := readBody("", nil)
	require.NoError(t, err)
	assert.Nil(t, body)

	body, err = readBody(`{"a":1}`, nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"a":1}`), body)

	file := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(file, []byte(`[1,2]`), 0o600))
	body, err = readBody("@"+file, nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1,2]`), body)

	_, err = readBody("@"+filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Error(t, err)

	_, err = readBody("not json", nil)
	assert.Error(t, err)
}

func TestWriteBody(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeBody(&out, nil, ""))
	assert.Empty(t, out.String())

	require.NoError(t, writeBody(&out, []byte("line\n"), ""))
	assert.Equal(t, "line\n", out.String())

	out.Reset()
	require.NoError(t, writeBody(&out, []byte(`{"a":{"b":[1,2]}}`), "a.b.#"))
	assert.Equal(t, "2\n", out.String())

	assert.Error(t, writeBody(&out, []byte("plain"), "a"))
	assert.Error(t, writeBody(&out, []byte(`{"a":1}`), "missing"))
}
