package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{logger: log.Discard()})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"GITHUB_TOKEN", "GITAUTOMATOR_GITHUB_TOKEN", "OPENAI_API_KEY", "GITAUTOMATOR_OPENAI_API_KEY", "PORT", "GITAUTOMATOR_PORT"} {
		t.Setenv(name, "")
	}
	file := filepath.Join(t.TempDir(), "bookmarks.json")
	t.Setenv("GITAUTOMATOR_BOOKMARKS_FILE", file)
	return file
}

func TestBookmarksCommands(t *testing.T) {
	file := isolate(t)

	out, err := execute(t, "bookmarks", "toggle", "https://github.com/acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "Bookmarked acme/widgets\n", out)
	assert.FileExists(t, file)

	_, err = execute(t, "bookmarks", "toggle", "acme/gadgets")
	require.NoError(t, err)

	out, err = execute(t, "bookmarks", "list")
	require.NoError(t, err)
	assert.Equal(t, "acme/gadgets\nacme/widgets\n", out)

	out, err = execute(t, "bookmarks", "toggle", "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "Removed bookmark acme/widgets\n", out)

	_, err = execute(t, "bookmarks", "toggle", "not-a-repo")
	assert.Error(t, err)
}

func TestReposCommand(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		assert.Equal(t, "token ghp_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"full_name":"acme/a","name":"a","private":true},{"full_name":"acme/b","name":"b"}]`))
	}))
	defer srv.Close()
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITAUTOMATOR_GITHUB_API_URL", srv.URL)

	_, err := execute(t, "bookmarks", "toggle", "acme/b")
	require.NoError(t, err)

	out, err := execute(t, "repos")
	require.NoError(t, err)
	assert.Equal(t, "* acme/b\n  acme/a (private)\n", out)
}

func TestCommandsNeedToken(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{
		{"repos"},
		{"files", "--repo", "acme/widgets", "--branch", "main"},
		{"modify", "--repo", "acme/widgets", "--branch", "main", "--file", "README.md", "--request", "x"},
	} {
		_, err := execute(t, args...)
		assert.EqualError(t, err, "GITHUB_TOKEN not configured", args[0])
	}
}

func TestCheckCommand(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	out, err := execute(t, "check", "--url", srv.URL+"/health")
	require.NoError(t, err)
	assert.Equal(t, "Server is running!\n", out)

	_, err = execute(t, "check", "--url", srv.URL+"/down")
	assert.EqualError(t, err, "server returned non-OK status: 503")
}

func TestServeRequiresCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_CLIENT_ID", "")
	t.Setenv("GITAUTOMATOR_GITHUB_CLIENT_ID", "")

	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment validation failed")
}
