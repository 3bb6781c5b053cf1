package transform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner_WithoutRepository(t *testing.T) {
	b := NewBanner("site", t.TempDir())
	assert.Equal(t, "/*! site */\n", string(b.Bytes()))
	assert.Equal(t, "/*! site */\nx", string(b.Prepend([]byte("x"))))
}

func TestBanner_WithRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	sub := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	b := NewBanner("site", sub)
	assert.Equal(t, "/*! site "+hash.String()[:7]+" */\n", string(b.Bytes()))
}
