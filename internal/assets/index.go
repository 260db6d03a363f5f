// Package assets locates per-record photo and QR files by identifier.
//
// A lookup matches the first file whose name contains the identifier,
// ignoring case. When several files match, the winner depends on index
// order: directory indexes follow os.ReadDir (sorted by file name) and
// upload indexes follow upload order. Ambiguous names are not resolved any
// further.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var imageExts = []string{".jpg", ".jpeg", ".png"}

type File struct {
	Name string
	Data []byte
}

// Index is safe for concurrent use. A nil *Index finds nothing.
type Index struct {
	names []string
	lower []string
	read  func(name string) ([]byte, error)

	mu   sync.Mutex
	memo map[string]int
}

// NewDirIndex lists dir once. Subdirectories and non-image files are ignored.
func NewDirIndex(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return newIndex(names, func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	}), nil
}

// NewMemIndex indexes uploaded files in the order given.
func NewMemIndex(files []File) *Index {
	data := make(map[string][]byte, len(files))
	var names []string
	for _, f := range files {
		base := filepath.Base(f.Name)
		if !isImage(base) {
			continue
		}
		if _, dup := data[base]; dup {
			continue
		}
		data[base] = f.Data
		names = append(names, base)
	}
	return newIndex(names, func(name string) ([]byte, error) {
		b, ok := data[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		return b, nil
	})
}

func newIndex(names []string, read func(string) ([]byte, error)) *Index {
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}
	return &Index{names: names, lower: lower, read: read, memo: map[string]int{}}
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.names)
}

// Find returns the first file name containing id.
func (x *Index) Find(id string) (string, bool) {
	if x == nil || strings.TrimSpace(id) == "" {
		return "", false
	}
	key := strings.ToLower(id)

	x.mu.Lock()
	defer x.mu.Unlock()
	if i, ok := x.memo[key]; ok {
		if i < 0 {
			return "", false
		}
		return x.names[i], true
	}
	idx := -1
	for i, n := range x.lower {
		if strings.Contains(n, key) {
			idx = i
			break
		}
	}
	x.memo[key] = idx
	if idx < 0 {
		return "", false
	}
	return x.names[idx], true
}

func (x *Index) Read(name string) ([]byte, error) {
	if x == nil {
		return nil, os.ErrNotExist
	}
	return x.read(name)
}
