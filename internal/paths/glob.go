package paths

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob is a slash-separated doublestar pattern anchored at Root.
type Glob struct {
	Root    string
	Pattern string
	Exclude []string
}

// Base returns the static directory prefix of the pattern, relative to Root.
func (g Glob) Base() string {
	base, _ := doublestar.SplitPattern(g.Pattern)
	if base == "." {
		return ""
	}
	return base
}

// Valid reports whether the pattern and all exclusions are well-formed.
func (g Glob) Valid() bool {
	if !doublestar.ValidatePattern(g.Pattern) {
		return false
	}
	for _, ex := range g.Exclude {
		if !doublestar.ValidatePattern(ex) {
			return false
		}
	}
	return true
}

// Match reports whether the absolute path p is selected by the glob.
func (g Glob) Match(p string) bool {
	rel, ok := g.rel(p)
	if !ok {
		return false
	}
	return g.matchRel(rel)
}

func (g Glob) matchRel(rel string) bool {
	if ok, err := doublestar.Match(g.Pattern, rel); err != nil || !ok {
		return false
	}
	for _, ex := range g.Exclude {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return false
		}
	}
	return true
}

// Expand lists the regular files matching the glob as sorted absolute paths.
// A missing Root yields no files.
func (g Glob) Expand() ([]string, error) {
	if _, err := os.Stat(g.Root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(g.Root), g.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !g.matchRel(m) {
			continue
		}
		out = append(out, filepath.Join(g.Root, filepath.FromSlash(m)))
	}
	slices.Sort(out)
	return out, nil
}

// RelToBase returns p relative to the static base of the pattern, slash-separated.
func (g Glob) RelToBase(p string) (string, bool) {
	rel, ok := g.rel(p)
	if !ok {
		return "", false
	}
	base := g.Base()
	if base == "" {
		return rel, true
	}
	if !strings.HasPrefix(rel, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(rel, base+"/"), true
}

func (g Glob) rel(p string) (string, bool) {
	rel, err := filepath.Rel(g.Root, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return path.Clean(rel), true
}

func (g Glob) String() string {
	return filepath.ToSlash(filepath.Join(g.Root, g.Pattern))
}
