package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/saint0x/gitautomator/pkg/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public GitHub REST endpoint
const DefaultAPIURL = "https://api.github.com/"

// Options configures a Client
type Options struct {
	// APIURL overrides the REST base URL (GitHub Enterprise, tests)
	APIURL string
	// Timeout bounds each HTTP request; zero means no client-side timeout
	Timeout time.Duration
	// RequestsPerSecond paces outgoing requests; zero or less disables pacing
	RequestsPerSecond float64
	Burst             int
	// Transport is the base round tripper under the token transport
	Transport http.RoundTripper
}

// Client handles GitHub operations on behalf of whichever token it is given
type Client struct {
	logger    *log.Logger
	baseURL   *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// New creates a new GitHub client
func New(logger *log.Logger, opts Options) (*Client, error) {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		logger:    logger,
		baseURL:   baseURL,
		timeout:   opts.Timeout,
		transport: opts.Transport,
		limiter:   limiter,
	}, nil
}

// api returns a go-github client that authenticates as token.
// GitHub accepts the "token" scheme: Authorization: token <token>.
func (c *Client) api(ctx context.Context, token string) (*github.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token, TokenType: "token"},
	)
	hc := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: c.transport},
		Timeout:   c.timeout,
	}

	gh := github.NewClient(hc)
	gh.BaseURL = c.baseURL
	return gh, nil
}

// GetAuthenticatedUser returns the identity behind token. It doubles as a
// token validity probe.
func (c *Client) GetAuthenticatedUser(ctx context.Context, token string) (*User, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	u, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return nil, wrapError("/user", err)
	}

	return &User{
		Login:     u.GetLogin(),
		ID:        u.GetID(),
		AvatarURL: u.GetAvatarURL(),
		Name:      u.GetName(),
	}, nil
}

// ListRepositories returns the user's repositories, most recently pushed
// first. Only the first page of 100 is fetched.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]Repository, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	repos, _, err := gh.Repositories.List(ctx, "", &github.RepositoryListOptions{
		Type: "owner",
		Sort: "pushed",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	})
	if err != nil {
		return nil, wrapError("/user/repos", err)
	}

	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, Repository{
			FullName: r.GetFullName(),
			Name:     r.GetName(),
			Private:  r.GetPrivate(),
			PushedAt: r.GetPushedAt().Time,
		})
	}
	c.logger.Debug("Listed %d repositories", len(out))
	return out, nil
}

// ListBranches returns the branches of repo ("owner/name")
func (c *Client) ListBranches(ctx context.Context, token, repo string) ([]Branch, error) {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	branches, _, err := gh.Repositories.ListBranches(ctx, owner, name, &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("/repos/%s/%s/branches", owner, name), err)
	}

	out := make([]Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, Branch{
			Name:      b.GetName(),
			HeadSHA:   b.GetCommit().GetSHA(),
			Protected: b.GetProtected(),
		})
	}
	return out, nil
}

// GetTree resolves branch to its head commit and returns the full
// recursive tree at that commit.
func (c *Client) GetTree(ctx context.Context, token, repo, branch string) ([]TreeEntry, error) {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	b, _, err := gh.Repositories.GetBranch(ctx, owner, name, branch, 1)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("/repos/%s/%s/branches/%s", owner, name, branch), err)
	}
	sha := b.GetCommit().GetSHA()
	c.logger.Debug("Branch %s of %s/%s is at %s", branch, owner, name, sha)

	tree, _, err := gh.Git.GetTree(ctx, owner, name, sha, true)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("/repos/%s/%s/git/trees/%s", owner, name, sha), err)
	}
	if tree.GetTruncated() {
		c.logger.Warning("Tree of %s/%s@%s is truncated; some files will be missing", owner, name, branch)
	}

	out := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		out = append(out, TreeEntry{
			Path: e.GetPath(),
			SHA:  e.GetSHA(),
			Type: e.GetType(),
			Size: e.GetSize(),
		})
	}
	return out, nil
}

// GetFileContent reads path at ref (the default branch when ref is empty)
// and returns its text and blob sha from a single request.
func (c *Client) GetFileContent(ctx context.Context, token, repo, ref, path string) (*FileContent, error) {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, name, path)
	file, dir, _, err := gh.Repositories.GetContents(ctx, owner, name, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, wrapError(endpoint, err)
	}
	if file == nil {
		if dir != nil {
			return nil, fmt.Errorf("%s is a directory, not a file", path)
		}
		return nil, fmt.Errorf("no content returned for %s", path)
	}

	// RepositoryContent.GetContent decodes on its own; read the raw field so
	// the encoding check stays ours.
	raw := ""
	if file.Content != nil {
		raw = *file.Content
	}
	content, err := DecodeContent(path, file.GetEncoding(), raw)
	if err != nil {
		return nil, err
	}

	return &FileContent{
		Path:    path,
		Content: content,
		SHA:     file.GetSHA(),
	}, nil
}

// PutFileCommit writes newContent to path on branch as a single commit.
// sha must be the blob sha the content was derived from; GitHub rejects
// the write with a conflict when the file changed since. There is no retry.
func (c *Client) PutFileCommit(ctx context.Context, token, repo, branch, path, newContent, message, sha string) error {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}

	// go-github base64-encodes Content when marshalling the request
	_, _, err = gh.Repositories.UpdateFile(ctx, owner, name, path, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(newContent),
		SHA:     github.String(sha),
		Branch:  github.String(branch),
	})
	if err != nil {
		return wrapError(fmt.Sprintf("/repos/%s/%s/contents/%s", owner, name, path), err)
	}

	c.logger.Commit("Committed %s to %s/%s@%s", path, owner, name, branch)
	return nil
}
