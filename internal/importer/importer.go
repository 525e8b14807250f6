// Package importer parses card-list drop files into catalog rows.
// Formats register themselves at init time; the card service picks one by
// file extension and applies the parsed rows to the catalog.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// Row is one card parsed from an import drop.
type Row struct {
	Name     string
	SetCode  string
	Number   string
	Rarity   domain.RarityTier
	ImageURL string
}

// Format parses one card-list file format.
type Format interface {
	// Name returns the format's registry key.
	Name() string

	// Extensions lists the file extensions the format claims, without dots.
	Extensions() []string

	// Parse reads every row from r. A malformed file fails as a whole;
	// no partial row list is returned.
	Parse(r io.Reader) ([]Row, error)
}

// ── Format Registry ────────────────────────────────────────
// Compile-time registration via init() in each format file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Format{}
)

// Register registers a format under its name.
// Called from init() in each format implementation file.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name()] = f
}

// Get returns a registered format by name, or an error if not found.
func Get(name string) (Format, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown import format: %q", name)
	}
	return f, nil
}

// ForPath picks the format claiming the path's extension.
func ForPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("no import format handles %q files", ext)
}

// List returns the registered format names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
