package github

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DefaultIgnorePaths are path prefixes never offered for modification
var DefaultIgnorePaths = []string{
	"node_modules/",
	".next/",
	".vercel/",
	"package-lock.json",
	".DS_Store",
	".vscode/",
}

// ParseRepo splits a repository reference into owner and name. It accepts
// "owner/repo", HTTPS URLs and git@github.com SSH URLs.
func ParseRepo(ref string) (owner, repo string, err error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), ".git")

	// Handle SSH URLs (git@github.com:owner/repo)
	if strings.HasPrefix(ref, "git@github.com:") {
		return splitFullName(strings.TrimPrefix(ref, "git@github.com:"))
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", "", fmt.Errorf("invalid URL: %w", err)
		}
		return splitFullName(strings.Trim(u.Path, "/"))
	}

	return splitFullName(ref)
}

func splitFullName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}

// FilterSelectable keeps the blobs a user may pick: directories and any path
// starting with one of the ignore prefixes are dropped. Order is preserved.
func FilterSelectable(entries []TreeEntry, ignore []string) []TreeEntry {
	selectable := make([]TreeEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != EntryBlob || ignored(entry.Path, ignore) {
			continue
		}
		selectable = append(selectable, entry)
	}
	return selectable
}

func ignored(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DecodeContent turns a contents API payload into text. Line-wrapped base64
// is accepted; any other encoding is rejected.
func DecodeContent(path, encoding, raw string) (string, error) {
	if encoding != "base64" {
		return "", &UnsupportedEncodingError{Path: path, Encoding: encoding}
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(data), nil
}
