package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/saint0x/gitautomator/pkg/bookmarks"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/saint0x/gitautomator/pkg/pipeline"
)

// GitHubClient interface for the read-only GitHub operations
type GitHubClient interface {
	GetAuthenticatedUser(ctx context.Context, token string) (*github.User, error)
	ListRepositories(ctx context.Context, token string) ([]github.Repository, error)
	ListBranches(ctx context.Context, token, repo string) ([]github.Branch, error)
	GetTree(ctx context.Context, token, repo, branch string) ([]github.TreeEntry, error)
}

// Submitter runs a modification request to completion
type Submitter interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Authenticator interface for the OAuth web flow
type Authenticator interface {
	Begin(w http.ResponseWriter) (string, error)
	Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string)
}

// Options configures a Server
type Options struct {
	// Addr is the listen address, ":8080" when empty
	Addr string
	// Auth runs the OAuth flow; nil means credentials are not configured
	Auth Authenticator
	// Bookmarks defaults to in-memory storage
	Bookmarks bookmarks.Provider
	// IgnorePaths filters the file list; nil uses github.DefaultIgnorePaths
	IgnorePaths []string
	// Secure marks cookies Secure
	Secure bool
}

// Server serves the session, listing and modification endpoints
type Server struct {
	logger    *log.Logger
	github    GitHubClient
	submitter Submitter
	auth      Authenticator
	bookmarks bookmarks.Provider
	ignore    []string
	secure    bool
	addr      string

	// logins caches token -> login for keying bookmarks
	logins sync.Map

	srv      *http.Server
	listener net.Listener
	mu       sync.RWMutex
}

// New creates a new server instance
func New(logger *log.Logger, gh GitHubClient, submitter Submitter, opts Options) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if gh == nil {
		return nil, fmt.Errorf("github client is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}

	s := &Server{
		logger:    logger,
		github:    gh,
		submitter: submitter,
		auth:      opts.Auth,
		bookmarks: opts.Bookmarks,
		ignore:    opts.IgnorePaths,
		secure:    opts.Secure,
		addr:      opts.Addr,
	}
	if s.bookmarks == nil {
		s.bookmarks = bookmarks.NewMemoryProvider()
	}
	if s.ignore == nil {
		s.ignore = github.DefaultIgnorePaths
	}
	if s.addr == "" {
		s.addr = ":8080"
	}

	if logger.IsDebug() {
		logger.Info("Initializing server with components:")
		logger.Info("- GitHub Client: ✓")
		logger.Info("- Pipeline: ✓")
		if s.auth != nil {
			logger.Info("- OAuth: ✓")
		} else {
			logger.Info("- OAuth: not configured")
		}
	}

	return s, nil
}

// Handler returns the routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleSession)

	mux.HandleFunc("GET /auth/github", s.handleLogin)
	mux.HandleFunc("GET /auth/callback/github", s.handleCallback)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /api/repos", s.requireToken(s.handleRepos))
	mux.HandleFunc("GET /api/repos/{owner}/{repo}/branches", s.requireToken(s.handleBranches))
	mux.HandleFunc("GET /api/repos/{owner}/{repo}/files", s.requireToken(s.handleFiles))
	mux.HandleFunc("GET /api/bookmarks", s.requireToken(s.handleBookmarks))
	mux.HandleFunc("POST /api/bookmarks/{owner}/{repo}", s.requireToken(s.handleToggleBookmark))
	mux.HandleFunc("POST /api/modify", s.handleModify)

	return s.logRequests(mux)
}

// Start serves until ctx is cancelled, then shuts down
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.logger.IsDebug() {
		s.logger.Info("Starting server initialization...")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
			errCh <- err
		}
	}()

	s.logger.Success("Server is running on %s", listener.Addr())
	if s.logger.IsDebug() {
		s.logger.Info("Press Ctrl+C to stop")
	}

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		_ = s.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
}

// Addr returns the bound address once the server is listening
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop server: %v", err)
			return fmt.Errorf("failed to stop server: %w", err)
		}
		s.srv = nil
		s.listener = nil
		s.logger.Success("Server stopped")
	}

	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger.IsDebug() {
			s.logger.Debug("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		next.ServeHTTP(w, r)
	})
}

// login resolves the GitHub login behind token
func (s *Server) login(ctx context.Context, token string) (string, error) {
	if v, ok := s.logins.Load(token); ok {
		return v.(string), nil
	}
	user, err := s.github.GetAuthenticatedUser(ctx, token)
	if err != nil {
		return "", err
	}
	s.logins.Store(token, user.Login)
	return user.Login, nil
}

func (s *Server) bookmarksFor(ctx context.Context, token string) (bookmarks.Store, error) {
	login, err := s.login(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.bookmarks.For(login)
}
