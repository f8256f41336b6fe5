package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brizzai/rest-gateway/internal/catalog"
	"github.com/brizzai/rest-gateway/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requestsYAML = `
requests:
  get-user:
    path: /users/{id}
    path_variables:
      id: "7"
    headers:
      Accept: application/json
  create-user:
    path: /users
    method: POST
    query:
      notify: "true"
    body:
      name: Ann
      address:
        city: Oslo
      tags: [a, b]
  login:
    path: /login
    method: POST
    encoding: form
    body:
      user: ann
      pass: secret
`

func writeRequestsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRequestFile(t *testing.T) {
	file, err := catalog.LoadRequestFile(writeRequestsFile(t, requestsYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"create-user", "get-user", "login"}, file.Names())

	getUser, err := file.Lookup("get-user")
	require.NoError(t, err)
	assert.Equal(t, &gateway.Request{
		Path:          "/users/{id}",
		PathVariables: map[string]string{"id": "7"},
		Headers:       map[string]string{"Accept": "application/json"},
	}, getUser)

	createUser, err := file.Lookup("create-user")
	require.NoError(t, err)
	assert.Equal(t, "POST", createUser.Method)
	assert.Equal(t, gateway.EncodingAuto, createUser.Encoding)
	assert.Equal(t, map[string]string{"notify": "true"}, createUser.Query)
	assert.Equal(t, map[string]any{
		"name":    "Ann",
		"address": map[string]any{"city": "Oslo"},
		"tags":    []any{"a", "b"},
	}, createUser.Body)

	login, err := file.Lookup("login")
	require.NoError(t, err)
	assert.Equal(t, gateway.EncodingForm, login.Encoding)

	values, err := gateway.EncodeForm(gateway.NewJSONCodec(), login.Body)
	require.NoError(t, err)
	assert.Equal(t, "pass=secret&user=ann", values.Encode())
}

func TestRequestFile_LookupUnknown(t *testing.T) {
	file, err := catalog.LoadRequestFile(writeRequestsFile(t, requestsYAML))
	require.NoError(t, err)

	_, err = file.Lookup("missing")
	assert.ErrorIs(t, err, catalog.ErrRequestNotFound)
}

func TestLoadRequestFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid yaml",
			content: "requests: [",
		},
		{
			name:    "missing path",
			content: "requests:\n  broken:\n    method: GET\n",
		},
		{
			name:    "unknown encoding",
			content: "requests:\n  broken:\n    path: /x\n    encoding: xml\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.LoadRequestFile(writeRequestsFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := catalog.LoadRequestFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
