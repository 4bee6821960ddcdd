// Package auth handles the GitHub OAuth web flow and keeps the resulting
// access token in an HTTP-only cookie.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Cookie names
const (
	TokenCookie = "github_access_token"
	StateCookie = "oauth_state"
)

// TokenMaxAge is how long the token cookie lives
const TokenMaxAge = 7 * 24 * time.Hour

const stateMaxAge = 10 * time.Minute

// Scopes requested from GitHub: repo contents and the user profile
var Scopes = []string{"repo", "user"}

var (
	ErrNotConfigured = errors.New("GitHub OAuth credentials are not configured")
	ErrMissingCode   = errors.New("missing authorization code")
	ErrStateMismatch = errors.New("OAuth state mismatch")
	ErrNoAccessToken = errors.New("access token not found")
)

// Config configures an Authenticator
type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is the absolute callback URL; empty uses the one
	// registered with the OAuth app.
	RedirectURL string
	// Secure marks cookies Secure (production over HTTPS)
	Secure bool
	// Endpoint overrides GitHub's OAuth endpoints
	Endpoint *oauth2.Endpoint
}

// Authenticator runs the authorization code flow
type Authenticator struct {
	oauth  *oauth2.Config
	secure bool
}

// New creates a new Authenticator
func New(cfg Config) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	endpoint := github.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		secure: cfg.Secure,
	}, nil
}

// AuthCodeURL returns the GitHub authorize URL carrying state
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Begin stores a fresh state in a cookie and returns the URL to send the
// user to.
func (a *Authenticator) Begin(w http.ResponseWriter) (string, error) {
	state, err := randomToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	http.SetCookie(w, a.cookie(StateCookie, state, stateMaxAge))
	return a.AuthCodeURL(state), nil
}

// Callback checks the state of a redirect back from GitHub and exchanges
// its code for an access token. The state cookie is always cleared.
func (a *Authenticator) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	http.SetCookie(w, a.cookie(StateCookie, "", -1))

	q := r.URL.Query()
	if desc := q.Get("error_description"); desc != "" {
		return "", errors.New(desc)
	}
	if e := q.Get("error"); e != "" {
		return "", errors.New(e)
	}

	want, err := r.Cookie(StateCookie)
	got := q.Get("state")
	if err != nil || want.Value == "" || subtle.ConstantTimeCompare([]byte(want.Value), []byte(got)) != 1 {
		return "", ErrStateMismatch
	}

	return a.Exchange(ctx, q.Get("code"))
}

// Exchange trades an authorization code for an access token
func (a *Authenticator) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorDescription != "" {
			return "", errors.New(re.ErrorDescription)
		}
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return tok.AccessToken, nil
}

// SetToken stores token in the session cookie
func (a *Authenticator) SetToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, a.cookie(TokenCookie, token, TokenMaxAge))
}

// ClearToken expires the session cookie
func (a *Authenticator) ClearToken(w http.ResponseWriter) {
	ClearToken(w, a.secure)
}

// ClearToken expires the session cookie. It works without OAuth
// credentials so logout never depends on configuration.
func ClearToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, newCookie(TokenCookie, "", -1, secure))
}

// Token returns the access token of r's session, or "" when logged out
func Token(r *http.Request) string {
	c, err := r.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (a *Authenticator) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return newCookie(name, value, maxAge, a.secure)
}

func newCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(maxAge / time.Second)
	}
	return c
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
