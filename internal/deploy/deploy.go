// Package deploy publishes the destination tree to an S3-compatible bucket.
package deploy

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/retry"
	"github.com/ifamed/markup-boilerplate/internal/workspace"
)

// Bucket is the object store a destination tree is published to.
type Bucket interface {
	Ensure(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, key string) error
}

// Options controls one deploy.
type Options struct {
	// Prefix is prepended to every object key.
	Prefix string
	// Prune removes objects under Prefix that have no local counterpart.
	Prune bool
	// DryRun reports what would change without touching the bucket.
	DryRun      bool
	Concurrency int
	Retry       retry.Policy
}

// Result lists the keys touched by a deploy, sorted.
type Result struct {
	Uploaded []string
	Removed  []string
	Bytes    int64
	Duration time.Duration
}

// Deploy uploads every file under root. Staging directories left by an
// interrupted build are skipped.
func Deploy(ctx context.Context, bucket Bucket, root string, opts Options) (*Result, error) {
	start := time.Now()
	prefix := normalizePrefix(opts.Prefix)
	files, err := collect(root)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if !opts.DryRun {
		if err := opts.Retry.Do(ctx, "ensure bucket", bucket.Ensure); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for _, rel := range files {
		key := prefix + rel
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "read file").WithContext("file", rel).Build()
			}
			if !opts.DryRun {
				ctype := ContentType(rel, data)
				err := opts.Retry.Do(gctx, "upload "+key, func(ctx context.Context) error {
					return bucket.Put(ctx, key, bytes.NewReader(data), int64(len(data)), ctype)
				})
				if err != nil {
					return errors.WrapError(err, errors.GetCategory(err), "upload failed").WithContext("key", key).Build()
				}
			}
			mu.Lock()
			res.Uploaded = append(res.Uploaded, key)
			res.Bytes += int64(len(data))
			mu.Unlock()
			slog.Debug("Uploaded object", logfields.Path(key), slog.Bool("dry_run", opts.DryRun))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(res.Uploaded)

	if opts.Prune {
		if err := prune(ctx, bucket, prefix, res, opts); err != nil {
			return nil, err
		}
	}
	res.Duration = time.Since(start)
	slog.Info("Deploy finished",
		slog.Int("uploaded", len(res.Uploaded)),
		slog.Int("removed", len(res.Removed)),
		slog.Int64("bytes", res.Bytes),
		slog.Bool("dry_run", opts.DryRun),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

func prune(ctx context.Context, bucket Bucket, prefix string, res *Result, opts Options) error {
	var remote []string
	err := opts.Retry.Do(ctx, "list objects", func(ctx context.Context) error {
		var err error
		remote, err = bucket.List(ctx, prefix)
		return err
	})
	if err != nil {
		return err
	}
	local := make(map[string]struct{}, len(res.Uploaded))
	for _, k := range res.Uploaded {
		local[k] = struct{}{}
	}
	for _, key := range remote {
		if _, ok := local[key]; ok {
			continue
		}
		if !opts.DryRun {
			if err := opts.Retry.Do(ctx, "remove "+key, func(ctx context.Context) error {
				return bucket.Remove(ctx, key)
			}); err != nil {
				return err
			}
		}
		res.Removed = append(res.Removed, key)
	}
	return nil
}

func collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.NotFoundError("destination directory does not exist; run a build first").
			WithContext("dest", root).WithCause(err).Build()
	}
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && workspace.IsStage(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk destination").WithContext("dest", root).Build()
	}
	sort.Strings(files)
	return files, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(path.Clean("/"+strings.TrimSpace(p)), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// ContentType picks the object content type from the extension, sniffing the
// data when the extension is unknown.
func ContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
