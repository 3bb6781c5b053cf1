// Package cache memoizes expensive transformation results keyed by input content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entries kept when New is given a non-positive size.
const DefaultSize = 512

// Results is a bounded, concurrency-safe map from content keys to transformed bytes.
type Results struct {
	entries *lru.Cache[string, []byte]
}

// New creates a cache holding up to size entries.
func New(size int) *Results {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		slog.Error("Failed to create result cache", "size", size, "error", err)
		return &Results{}
	}
	return &Results{entries: entries}
}

// Key derives a cache key from the input contents and the parameters that
// influence the transformation (step name, mode, quality, ...).
func Key(contents []byte, params ...string) string {
	h := sha256.New()
	for _, p := range params {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write(contents)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bytes for key.
func (r *Results) Get(key string) ([]byte, bool) {
	if r == nil || r.entries == nil {
		return nil, false
	}
	return r.entries.Get(key)
}

// Add stores value under key.
func (r *Results) Add(key string, value []byte) {
	if r == nil || r.entries == nil {
		return
	}
	r.entries.Add(key, value)
}

// Len returns the number of cached entries.
func (r *Results) Len() int {
	if r == nil || r.entries == nil {
		return 0
	}
	return r.entries.Len()
}

// GetOrCompute returns the cached value for key or computes, stores, and returns it.
// Errors are not cached.
func (r *Results) GetOrCompute(key string, compute func() ([]byte, error)) ([]byte, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	r.Add(key, v)
	return v, nil
}
