package bookmarks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	json "github.com/goccy/go-json"
	"github.com/saint0x/gitautomator/pkg/log"
)

// FileStore keeps bookmarks as a JSON array in a single file
type FileStore struct {
	logger *log.Logger
	path   string

	mu  sync.Mutex
	set Set

	// saveMu orders writers so the last rename carries the newest set
	saveMu sync.Mutex
}

// NewFileStore creates a FileStore backed by path. The file is read on
// Load and need not exist yet.
func NewFileStore(logger *log.Logger, path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bookmarks file is required")
	}
	return &FileStore{logger: logger, path: path, set: Set{}}, nil
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the file, replacing the in-memory set. A missing file is an
// empty set.
func (f *FileStore) Load() (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Debug("No bookmarks at %s yet", f.path)
			f.set = Set{}
			return Set{}, nil
		}
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks %s: %w", f.path, err)
	}
	f.set = NewSet(ids...)
	f.logger.Debug("Loaded %d bookmarks from %s", len(f.set), f.path)
	return f.set.clone(), nil
}

func (f *FileStore) Toggle(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return toggle(f.set, id)
}

// Save replaces the file atomically
func (f *FileStore) Save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.Lock()
	data, err := json.MarshalIndent(f.set.List(), "", "  ")
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode bookmarks: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "bookmarks-*.json")
	if err != nil {
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return cleanup(err)
	}
	return nil
}

// Provider hands out the Store of a given user
type Provider interface {
	For(user string) (Store, error)
}

// DirProvider keeps one file per user under a directory. Stores are
// cached so concurrent toggles by one user land on the same set.
type DirProvider struct {
	logger *log.Logger
	dir    string

	mu     sync.Mutex
	stores map[string]*FileStore
}

// NewDirProvider creates dir if needed
func NewDirProvider(logger *log.Logger, dir string) (*DirProvider, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("bookmarks directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &DirProvider{logger: logger, dir: dir, stores: make(map[string]*FileStore)}, nil
}

func (d *DirProvider) For(user string) (Store, error) {
	name := sanitize(user)
	if name == "" {
		return nil, errors.New("user is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.stores[name]; ok {
		return s, nil
	}
	s, err := NewFileStore(d.logger, filepath.Join(d.dir, name+".json"))
	if err != nil {
		return nil, err
	}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	d.stores[name] = s
	return s, nil
}

// MemoryProvider keeps every user's bookmarks in memory
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: make(map[string]*MemoryStore)}
}

func (m *MemoryProvider) For(user string) (Store, error) {
	if user == "" {
		return nil, errors.New("user is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[user]
	if !ok {
		s = NewMemoryStore()
		m.stores[user] = s
	}
	return s, nil
}

// sanitize maps a login to a safe file name
func sanitize(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
