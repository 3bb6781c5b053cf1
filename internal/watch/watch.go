package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/paths"
)

// Options configures Watch.
type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	Recorder     metrics.Recorder
}

// Watch dispatches changes below root to bindings until ctx is canceled. A
// positive PollInterval adds a polling scanner next to the fsnotify source.
func Watch(ctx context.Context, root string, bindings []Binding, inv Invoker, opts Options) error {
	var poller *Poller
	if opts.PollInterval > 0 {
		globs := make([]paths.Glob, 0, len(bindings))
		for _, b := range bindings {
			globs = append(globs, b.Pattern)
		}
		p, err := NewPoller(opts.PollInterval, globs)
		if err != nil {
			return err
		}
		poller = p
	}

	src, err := NewFSWatcher(root)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.Warn("Failed to close file watcher", logfields.Error(err))
		}
	}()

	events := make(chan Event, 256)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := src.Run(ctx, events); err != nil {
			slog.Error("File watcher stopped", logfields.Error(err))
		}
	}()

	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.Run(ctx, events); err != nil {
				slog.Error("Poll watcher stopped", logfields.Error(err))
			}
		}()
	}

	slog.Info("Watching for changes", logfields.Path(root), slog.Int("bindings", len(bindings)))
	d := NewDispatcher(bindings, inv, DispatcherOptions{Debounce: opts.Debounce, Recorder: opts.Recorder})
	err = d.Run(ctx, events)
	wg.Wait()
	return err
}
