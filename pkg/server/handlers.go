package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/saint0x/gitautomator/pkg/auth"
	"github.com/saint0x/gitautomator/pkg/bookmarks"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/saint0x/gitautomator/pkg/pipeline"
)

const maxFormMemory = 10 << 20

type ctxKey struct{}

// sessionView is what the landing page needs to render
type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *github.User `json:"user,omitempty"`
	Configured    bool         `json:"configured"`
}

type repoView struct {
	github.Repository
	Bookmarked bool `json:"bookmarked"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeUpstreamError maps a GitHub failure to a response status
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *github.RemoteAPIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict:
			status = apiErr.StatusCode
		}
	}
	s.logger.Error("GitHub request failed: %v", err)
	writeError(w, status, err.Error())
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(ctxKey{}).(string)
	return token
}

// requireToken rejects requests without a session cookie
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.Token(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, token)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleSession reports who is signed in. A token GitHub no longer
// accepts is dropped and the visitor is shown as signed out.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	view := sessionView{Configured: s.auth != nil}

	if token := auth.Token(r); token != "" {
		user, err := s.github.GetAuthenticatedUser(r.Context(), token)
		switch {
		case err == nil:
			view.Authenticated = true
			view.User = user
			s.logins.Store(token, user.Login)
		case github.IsUnauthorized(err):
			s.logger.Warning("Dropping rejected session token")
			s.logins.Delete(token)
			auth.ClearToken(w, s.secure)
		default:
			s.logger.Warning("Could not verify session: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusInternalServerError, auth.ErrNotConfigured.Error())
		return
	}
	target, err := s.auth.Begin(w)
	if err != nil {
		s.logger.Error("Failed to start login: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	token, err := s.auth.Callback(r.Context(), w, r)
	if err != nil {
		s.logger.Error("GitHub OAuth callback error: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.auth.SetToken(w, token)
	s.logger.Success("Signed in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.Token(r); token != "" {
		s.logins.Delete(token)
	}
	auth.ClearToken(w, s.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRepos lists repositories with bookmarked ones first
func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r.Context())
	repos, err := s.github.ListRepositories(r.Context(), token)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	set := bookmarks.Set{}
	if store, err := s.bookmarksFor(r.Context(), token); err != nil {
		s.logger.Warning("Bookmarks unavailable: %v", err)
	} else if set, err = store.Load(); err != nil {
		s.logger.Warning("Bookmarks unavailable: %v", err)
		set = bookmarks.Set{}
	}

	sorted := bookmarks.Sort(repos, set)
	out := make([]repoView, 0, len(sorted))
	for _, repo := range sorted {
		out = append(out, repoView{Repository: repo, Bookmarked: set.Has(repo.FullName)})
	}
	writeJSON(w, http.StatusOK, out)
}

func repoParam(r *http.Request) string {
	return r.PathValue("owner") + "/" + r.PathValue("repo")
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	repo := repoParam(r)
	s.logger.Repo("Listing branches of %s", repo)
	branches, err := s.github.ListBranches(r.Context(), tokenFrom(r.Context()), repo)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

// handleFiles lists the files of a branch that may be modified
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	repo := repoParam(r)
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		writeError(w, http.StatusBadRequest, "branch is required")
		return
	}

	s.logger.Branch("Listing files of %s@%s", repo, branch)
	entries, err := s.github.GetTree(r.Context(), tokenFrom(r.Context()), repo, branch)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, github.FilterSelectable(entries, s.ignore))
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	store, err := s.bookmarksFor(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	set, err := store.Load()
	if err != nil {
		s.logger.Error("Failed to load bookmarks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"bookmarks": set.List()})
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	repo := repoParam(r)
	store, err := s.bookmarksFor(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	on := store.Toggle(repo)
	if err := store.Save(); err != nil {
		// keep memory and disk in step
		store.Toggle(repo)
		s.logger.Error("Failed to save bookmarks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repo": repo, "bookmarked": on})
}

// handleModify accepts a form post or a JSON body. The token comes from
// the "token" form field when present and from the session otherwise.
// Pipeline outcomes are always reported with status 200.
func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeModify(r)
	if err != nil {
		s.logger.Warning("Bad modify request: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Token == "" {
		req.Token = auth.Token(r)
	}

	s.logger.Repo("Modify %s in %s@%s", req.File, req.Repo, req.Branch)
	writeJSON(w, http.StatusOK, s.submitter.Run(r.Context(), req))
}

func decodeModify(r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		return req, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return req, errors.New("invalid form body")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return req, errors.New("invalid form body")
		}
	}

	req.Token = strings.TrimSpace(r.FormValue("token"))
	req.Repo = r.FormValue("repo")
	req.Branch = r.FormValue("branch")
	req.File = r.FormValue("file")
	req.Instruction = r.FormValue("request")
	return req, nil
}
