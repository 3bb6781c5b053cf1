package watch

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/paths"
)

// Poller scans watch globs on a fixed interval and reports differences from
// the previous scan. It covers filesystems where inotify-style events are not
// delivered, such as network mounts and some container volumes.
type Poller struct {
	interval time.Duration
	globs    []paths.Glob

	mu       sync.Mutex
	snapshot map[string]stamp
}

type stamp struct {
	size    int64
	modTime time.Time
}

// NewPoller creates a poller over globs.
func NewPoller(interval time.Duration, globs []paths.Glob) (*Poller, error) {
	if interval <= 0 {
		return nil, errors.ValidationError("poll interval must be > 0").Build()
	}
	return &Poller{interval: interval, globs: globs}, nil
}

// Run takes a baseline snapshot, then scans on every tick until ctx is canceled.
func (p *Poller) Run(ctx context.Context, out chan<- Event) error {
	p.Scan()

	s, err := gocron.NewScheduler()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "create poll scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.tick, ctx, out),
		gocron.WithName("watch-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return errors.WrapError(err, errors.CategoryRuntime, "schedule poll job").Build()
	}
	slog.Debug("Starting poll watcher", slog.Duration("interval", p.interval))
	s.Start()
	<-ctx.Done()
	return s.Shutdown()
}

func (p *Poller) tick(ctx context.Context, out chan<- Event) {
	for _, ev := range p.Scan() {
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Scan refreshes the snapshot and returns the changes since the previous scan
// in path order. The first scan only records the baseline.
func (p *Poller) Scan() []Event {
	current := make(map[string]stamp)
	for _, g := range p.globs {
		files, err := g.Expand()
		if err != nil {
			slog.Warn("Poll scan failed", logfields.Path(g.String()), logfields.Error(err))
			continue
		}
		for _, f := range files {
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			current[f] = stamp{size: info.Size(), modTime: info.ModTime()}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.snapshot
	p.snapshot = current
	if previous == nil {
		return nil
	}

	var events []Event
	for f, st := range current {
		old, ok := previous[f]
		switch {
		case !ok:
			events = append(events, Event{Path: f, Op: OpAdded})
		case old != st:
			events = append(events, Event{Path: f, Op: OpChanged})
		}
	}
	for f := range previous {
		if _, ok := current[f]; !ok {
			events = append(events, Event{Path: f, Op: OpRemoved})
		}
	}
	slices.SortFunc(events, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return events
}
