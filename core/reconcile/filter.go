package reconcile

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// KeyFilter selects keys relative to the job's source prefix.
// '*' stays within one path segment, '**' crosses segments.
type KeyFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewKeyFilter compiles include and exclude patterns.
// With no include pattern every key is included.
func NewKeyFilter(includes, excludes []string) (*KeyFilter, error) {
	f := &KeyFilter{}
	for _, p := range includes {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range excludes {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether rel passes the filter. A nil filter matches everything.
func (f *KeyFilter) Match(rel string) bool {
	if f == nil {
		return true
	}
	for _, g := range f.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// NormalizePrefix makes a non-empty prefix end with a slash so that
// "images" never matches "images-old/".
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// isFolderMarker reports zero-byte "directory" placeholder keys.
func isFolderMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}
