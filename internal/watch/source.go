package watch

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/workspace"
)

// FSWatcher turns fsnotify events below a root into Events. fsnotify is not
// recursive, so every directory is added on start and whenever one appears.
type FSWatcher struct {
	root    string
	watcher *fsnotify.Watcher
}

// NewFSWatcher watches root and all of its directories.
func NewFSWatcher(root string) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	s := &FSWatcher{root: filepath.Clean(root), watcher: w}
	if _, err := s.addTree(s.root, false); err != nil {
		_ = w.Close()
		return nil, err
	}
	return s, nil
}

// Run forwards events to out until ctx is canceled or the watcher is closed.
func (s *FSWatcher) Run(ctx context.Context, out chan<- Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			for _, e := range s.translate(ev) {
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying watcher.
func (s *FSWatcher) Close() error { return s.watcher.Close() }

func (s *FSWatcher) translate(ev fsnotify.Event) []Event {
	if IgnoredName(filepath.Base(ev.Name)) {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			// Files may land in a new directory before it is watched.
			files, err := s.addTree(ev.Name, true)
			if err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
			}
			events := make([]Event, 0, len(files))
			for _, f := range files {
				events = append(events, Event{Path: f, Op: OpAdded})
			}
			return events
		}
		return []Event{{Path: ev.Name, Op: OpAdded}}
	case ev.Has(fsnotify.Write):
		return []Event{{Path: ev.Name, Op: OpChanged}}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return []Event{{Path: ev.Name, Op: OpRemoved}}
	default:
		return nil
	}
}

// addTree watches dir and its subdirectories. When collect is set it also
// returns the regular files found.
func (s *FSWatcher) addTree(dir string, collect bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			if collect && !IgnoredName(d.Name()) {
				files = append(files, p)
			}
			return nil
		}
		if p != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(p); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "watch directory").
				WithContext("path", p).Build()
		}
		return nil
	})
	return files, err
}

func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".") || workspace.IsStage(name)
}

// IgnoredName reports editor swap, backup, and temporary files.
func IgnoredName(name string) bool {
	switch {
	case name == "" || name == "4913" || name == ".DS_Store":
		return true
	case strings.HasPrefix(name, ".#"), strings.HasPrefix(name, "~$"):
		return true
	case strings.HasSuffix(name, "~"):
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".swp", ".swo", ".swx", ".tmp", ".crdownload", ".part":
		return true
	}
	return workspace.IsStage(name)
}
