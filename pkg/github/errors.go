package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// RemoteAPIError is a non-2xx answer from the GitHub API
type RemoteAPIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("GitHub API Error on %s: %s", e.Endpoint, e.Message)
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// UnsupportedEncodingError is returned for file payloads that are not base64,
// which is how the contents API reports binary or oversized files.
type UnsupportedEncodingError struct {
	Path     string
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	encoding := e.Encoding
	if encoding == "" {
		encoding = "none"
	}
	return fmt.Sprintf("unsupported content encoding %q for %s: binary files are not supported", encoding, e.Path)
}

// IsConflict reports whether err is the compare-and-swap rejection of a
// content write whose sha no longer matches the stored blob.
func IsConflict(err error) bool {
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsUnauthorized reports whether err is a rejected or expired token
func IsUnauthorized(err error) bool {
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// wrapError normalizes go-github failures for endpoint into RemoteAPIError.
// Transport failures without a response are wrapped as plain errors.
func wrapError(endpoint string, err error) error {
	if err == nil {
		return nil
	}

	var (
		respErr  *github.ErrorResponse
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &respErr):
		return newRemoteError(endpoint, respErr.Response, respErr.Message, err)
	case errors.As(err, &rateErr):
		return newRemoteError(endpoint, rateErr.Response, rateErr.Message, err)
	case errors.As(err, &abuseErr):
		return newRemoteError(endpoint, abuseErr.Response, abuseErr.Message, err)
	}

	return fmt.Errorf("GitHub request to %s failed: %w", endpoint, err)
}

func newRemoteError(endpoint string, resp *http.Response, message string, err error) *RemoteAPIError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "Unknown error"
	}
	return &RemoteAPIError{
		Endpoint:   endpoint,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}
