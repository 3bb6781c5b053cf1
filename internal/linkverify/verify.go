// Package linkverify checks built HTML pages for references to files missing
// from the destination tree.
package linkverify

import (
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/workspace"
)

// BrokenLink is a local reference whose target does not exist.
type BrokenLink struct {
	Page string // page path relative to the destination root, slash-separated
	Link Link
}

// Report summarizes one verification pass.
type Report struct {
	Pages   int
	Checked int
	Broken  []BrokenLink
}

// Err returns an aggregate error naming every page with broken references, or nil.
func (r *Report) Err() error {
	members := make([]errors.MemberError, 0, len(r.Broken))
	for _, b := range r.Broken {
		members = append(members, errors.MemberError{
			Member: b.Page,
			Err: errors.NotFoundError("missing reference").
				WithContext("url", b.Link.URL).WithContext("tag", b.Link.Tag).Build(),
		})
	}
	return errors.NewAggregate("verify", members)
}

// Verifier walks a destination tree and checks every local reference.
type Verifier struct {
	Root        string
	Concurrency int
}

// New returns a Verifier over root.
func New(root string) *Verifier {
	return &Verifier{Root: root, Concurrency: runtime.GOMAXPROCS(0)}
}

// Verify checks every .html page under the root. Broken references are
// reported, not returned as errors; use Report.Err to fail on them.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	pages, err := v.pages()
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		report = &Report{Pages: len(pages)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.Concurrency, 1))
	for _, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			checked, broken, err := v.verifyPage(page)
			if err != nil {
				return err
			}
			mu.Lock()
			report.Checked += checked
			report.Broken = append(report.Broken, broken...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(report.Broken, func(i, j int) bool {
		if report.Broken[i].Page != report.Broken[j].Page {
			return report.Broken[i].Page < report.Broken[j].Page
		}
		return report.Broken[i].Link.URL < report.Broken[j].Link.URL
	})
	for _, b := range report.Broken {
		slog.Warn("Broken reference", logfields.Path(b.Page), slog.String("url", b.Link.URL),
			slog.String("tag", b.Link.Tag))
	}
	return report, nil
}

func (v *Verifier) pages() ([]string, error) {
	var pages []string
	err := filepath.WalkDir(v.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != v.Root && workspace.IsStage(d.Name()) {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			rel, err := filepath.Rel(v.Root, p)
			if err != nil {
				return err
			}
			pages = append(pages, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk destination").
			WithContext("root", v.Root).Build()
	}
	return pages, nil
}

func (v *Verifier) verifyPage(page string) (int, []BrokenLink, error) {
	links, err := ExtractLinks(filepath.Join(v.Root, filepath.FromSlash(page)))
	if err != nil {
		return 0, nil, err
	}
	checked := 0
	var broken []BrokenLink
	for _, link := range links {
		if !IsLocal(link.URL) {
			continue
		}
		checked++
		if !v.exists(page, link.URL) {
			broken = append(broken, BrokenLink{Page: page, Link: link})
		}
	}
	return checked, broken, nil
}

// exists resolves ref against page and reports whether the target is present.
// Directory references resolve to their index.html.
func (v *Verifier) exists(page, ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	target := u.Path
	if !strings.HasPrefix(target, "/") {
		target = path.Join(path.Dir("/"+page), target)
	}
	target = path.Clean("/" + target)
	if strings.HasSuffix(u.Path, "/") {
		target = path.Join(target, "index.html")
	}

	local := filepath.Join(v.Root, filepath.FromSlash(strings.TrimPrefix(target, "/")))
	info, err := os.Stat(local)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(local, "index.html"))
		return err == nil
	}
	return true
}
