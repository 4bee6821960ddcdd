package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves a minimal slice of the REST API and records what it saw
type fakeGitHub struct {
	t        *testing.T
	mux      *http.ServeMux
	requests atomic.Int32
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *Client) {
	t.Helper()
	f := &fakeGitHub{t: t, mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		assert.Equal(t, "token tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		assert.Contains(t, r.Header.Get("Accept"), "application/vnd.github.v3+json")
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := New(log.Discard(), Options{APIURL: srv.URL})
	require.NoError(t, err)
	return f, client
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetAuthenticatedUser(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"login": "octo", "id": 7, "avatar_url": "https://avatars/octo", "name": "Octo Cat",
		})
	})

	user, err := client.GetAuthenticatedUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &User{Login: "octo", ID: 7, AvatarURL: "https://avatars/octo", Name: "Octo Cat"}, user)
}

func TestGetAuthenticatedUserUnauthorized(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})

	_, err := client.GetAuthenticatedUser(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.EqualError(t, err, "GitHub API Error on /user: Bad credentials")
}

func TestListRepositoriesSinglePageByPush(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "owner", q.Get("type"))
		assert.Equal(t, "pushed", q.Get("sort"))
		assert.Equal(t, "100", q.Get("per_page"))
		w.Header().Set("Link", `<https://api.github.com/user/repos?page=2>; rel="next"`)
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"full_name": "acme/widgets", "name": "widgets", "private": true},
			{"full_name": "acme/gadgets", "name": "gadgets"},
		})
	})

	repos, err := client.ListRepositories(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/widgets", repos[0].FullName)
	assert.True(t, repos[0].Private)
	assert.EqualValues(t, 1, f.requests.Load())
}

func TestListBranches(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/branches", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"name": "main", "commit": map[string]string{"sha": "c1"}, "protected": true},
			{"name": "dev", "commit": map[string]string{"sha": "c2"}},
		})
	})

	branches, err := client.ListBranches(context.Background(), "tok", "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, []Branch{
		{Name: "main", HeadSHA: "c1", Protected: true},
		{Name: "dev", HeadSHA: "c2"},
	}, branches)
}

func TestListBranchesRejectsBadRepo(t *testing.T) {
	f, client := newFakeGitHub(t)

	_, err := client.ListBranches(context.Background(), "tok", "widgets")
	require.Error(t, err)
	assert.EqualValues(t, 0, f.requests.Load())
}

func TestGetTreeResolvesBranchHead(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/branches/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"name": "main", "commit": map[string]string{"sha": "head1"},
		})
	})
	f.mux.HandleFunc("/repos/acme/widgets/git/trees/head1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sha": "tree1",
			"tree": []map[string]interface{}{
				{"path": "node_modules", "type": "tree", "sha": "t0"},
				{"path": "node_modules/lodash/index.js", "type": "blob", "sha": "b0", "size": 10},
				{"path": "src", "type": "tree", "sha": "t1"},
				{"path": "src/app.ts", "type": "blob", "sha": "b1", "size": 20},
			},
		})
	})

	entries, err := client.GetTree(context.Background(), "tok", "acme/widgets", "main")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	selectable := FilterSelectable(entries, DefaultIgnorePaths)
	assert.Equal(t, []TreeEntry{{Path: "src/app.ts", SHA: "b1", Type: EntryBlob, Size: 20}}, selectable)
}

func TestGetFileContent(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"type": "file", "path": "README.md", "sha": "abc123",
			"encoding": "base64", "content": base64.StdEncoding.EncodeToString([]byte("Hello")) + "\n",
		})
	})

	file, err := client.GetFileContent(context.Background(), "tok", "acme/widgets", "main", "README.md")
	require.NoError(t, err)
	assert.Equal(t, &FileContent{Path: "README.md", Content: "Hello", SHA: "abc123"}, file)
	assert.EqualValues(t, 1, f.requests.Load())
}

func TestGetFileContentUnsupportedEncoding(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/contents/logo.png", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"type": "file", "path": "logo.png", "sha": "s1", "encoding": "none", "content": "",
		})
	})

	_, err := client.GetFileContent(context.Background(), "tok", "acme/widgets", "", "logo.png")
	var encErr *UnsupportedEncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "none", encErr.Encoding)
}

func TestGetFileContentDirectory(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/contents/src", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"type": "file", "path": "src/app.ts", "sha": "b1"},
		})
	})

	_, err := client.GetFileContent(context.Background(), "tok", "acme/widgets", "", "src")
	assert.ErrorContains(t, err, "is a directory")
}

func TestPutFileCommit(t *testing.T) {
	f, client := newFakeGitHub(t)

	var puts int
	f.mux.HandleFunc("/repos/acme/widgets/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		puts++
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "feat: capitalize greeting", body.Message)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("HELLO")), body.Content)
		assert.Equal(t, "abc123", body.SHA)
		assert.Equal(t, "main", body.Branch)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"content": map[string]string{"sha": "new1"},
			"commit":  map[string]string{"sha": "commit1"},
		})
	})

	err := client.PutFileCommit(context.Background(), "tok", "acme/widgets", "main", "README.md",
		"HELLO", "feat: capitalize greeting", "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, puts)
}

func TestPutFileCommitConflict(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/repos/acme/widgets/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"message": "README.md does not match abc123",
		})
	})

	err := client.PutFileCommit(context.Background(), "tok", "acme/widgets", "main", "README.md",
		"HELLO", "feat: capitalize greeting", "abc123")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.EqualError(t, err, "GitHub API Error on /repos/acme/widgets/contents/README.md: README.md does not match abc123")
	assert.EqualValues(t, 1, f.requests.Load())
}

func TestRemoteErrorFallsBackToStatusText(t *testing.T) {
	f, client := newFakeGitHub(t)
	f.mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := client.ListRepositories(context.Background(), "tok")
	var apiErr *RemoteAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestEmptyTokenIssuesNoRequest(t *testing.T) {
	f, client := newFakeGitHub(t)

	_, err := client.GetAuthenticatedUser(context.Background(), "")
	require.Error(t, err)
	assert.EqualValues(t, 0, f.requests.Load())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(log.Discard(), Options{APIURL: "://nope"})
	assert.Error(t, err)
}

func TestPacingHonorsContext(t *testing.T) {
	client, err := New(log.Discard(), Options{APIURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	// first slot is free, the second would wait far longer than the context allows
	require.True(t, client.limiter.Allow())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetAuthenticatedUser(ctx, "tok")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "request slot"))
}
