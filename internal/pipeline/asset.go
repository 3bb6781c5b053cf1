package pipeline

import (
	"context"
	"path"
	"slices"
	"strings"
)

// Asset is one file flowing through a pipeline.
type Asset struct {
	// Path is the slash-separated output path relative to the class destination.
	Path string
	// Target, when set, is an absolute output path used instead of Path.
	Target string
	// Source is the absolute path of the originating source file; empty for generated assets.
	Source string

	Contents []byte

	// Map holds a sourcemap for Contents when TrackMap is set.
	Map      []byte
	TrackMap bool
}

// Ext returns the lower-cased extension of the output path.
func (a *Asset) Ext() string {
	return strings.ToLower(path.Ext(a.Path))
}

// WithExt replaces the extension of the output path.
func (a *Asset) WithExt(ext string) {
	a.Path = strings.TrimSuffix(a.Path, path.Ext(a.Path)) + ext
}

// Label identifies the asset in errors and logs.
func (a *Asset) Label() string {
	if a.Source != "" {
		return a.Source
	}
	if a.Target != "" {
		return a.Target
	}
	return a.Path
}

// WrittenFileSet is the sorted set of absolute paths a run produced.
type WrittenFileSet []string

// Contains reports whether p is in the set.
func (w WrittenFileSet) Contains(p string) bool {
	_, ok := slices.BinarySearch(w, p)
	return ok
}

// Minus returns the members of w not present in other.
func (w WrittenFileSet) Minus(other WrittenFileSet) WrittenFileSet {
	var out WrittenFileSet
	for _, p := range w {
		if !other.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

type pruneKey struct{}

// WithPruneStale overrides, for runs started under ctx, whether outputs the
// previous run wrote and this one no longer produces are removed.
func WithPruneStale(ctx context.Context, prune bool) context.Context {
	return context.WithValue(ctx, pruneKey{}, prune)
}

// PruneStale returns the override set by WithPruneStale, or fallback.
func PruneStale(ctx context.Context, fallback bool) bool {
	if v, ok := ctx.Value(pruneKey{}).(bool); ok {
		return v
	}
	return fallback
}
