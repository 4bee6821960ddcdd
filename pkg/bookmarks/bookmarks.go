// Package bookmarks keeps the set of repositories a user pinned to the top
// of the repository list.
package bookmarks

import (
	"sort"
	"sync"

	"github.com/saint0x/gitautomator/pkg/github"
)

// Set holds repository full names ("owner/name")
type Set map[string]struct{}

// NewSet creates a set holding ids
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is bookmarked
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// List returns the ids in lexical order
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Store persists one user's bookmarks. Toggle changes the in-memory set
// and reports whether id is bookmarked afterwards; Save makes it durable.
type Store interface {
	Load() (Set, error)
	Toggle(id string) bool
	Save() error
}

// MemoryStore is a Store that forgets everything on exit
type MemoryStore struct {
	mu  sync.Mutex
	set Set
}

// NewMemoryStore creates a MemoryStore seeded with ids
func NewMemoryStore(ids ...string) *MemoryStore {
	return &MemoryStore{set: NewSet(ids...)}
}

func (m *MemoryStore) Load() (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.clone(), nil
}

func (m *MemoryStore) Toggle(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return toggle(m.set, id)
}

func (m *MemoryStore) Save() error {
	return nil
}

func toggle(s Set, id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Partition splits repos into bookmarked and the rest. Both keep the
// order repos came in.
func Partition(repos []github.Repository, set Set) (bookmarked, others []github.Repository) {
	for _, r := range repos {
		if set.Has(r.FullName) {
			bookmarked = append(bookmarked, r)
		} else {
			others = append(others, r)
		}
	}
	return bookmarked, others
}

// Sort returns repos with bookmarked ones first
func Sort(repos []github.Repository, set Set) []github.Repository {
	bookmarked, others := Partition(repos, set)
	return append(bookmarked, others...)
}
