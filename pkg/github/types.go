package github

import "time"

// Tree entry types as reported by the git trees API
const (
	EntryBlob = "blob"
	EntryTree = "tree"
)

// User is the authenticated GitHub identity
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name,omitempty"`
}

// Repository identifies a repository the user can push to
type Repository struct {
	FullName string    `json:"full_name"`
	Name     string    `json:"name"`
	Private  bool      `json:"private"`
	PushedAt time.Time `json:"pushed_at"`
}

// Branch is a branch name and the sha of its head commit
type Branch struct {
	Name      string `json:"name"`
	HeadSHA   string `json:"head_sha"`
	Protected bool   `json:"protected"`
}

// TreeEntry is one path in a recursive tree listing
type TreeEntry struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// FileContent is a decoded file together with the blob sha it was read at.
// The sha is the expected prior state for a later PutFileCommit.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}
