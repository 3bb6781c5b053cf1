package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/observability"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

// State is the dispatch state of one binding.
type State int

const (
	StateIdle State = iota
	StatePending
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// Invoker runs a named task.
type Invoker interface {
	Invoke(ctx context.Context, task string) error
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, task string) error

func (f InvokerFunc) Invoke(ctx context.Context, task string) error { return f(ctx, task) }

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Debounce is the quiet window between the last event and the dispatch.
	// Zero dispatches on the first event.
	Debounce time.Duration
	Recorder metrics.Recorder
}

// Dispatcher maps events to bindings and runs their tasks, never running a
// binding concurrently with itself.
type Dispatcher struct {
	invoker  Invoker
	debounce time.Duration
	recorder metrics.Recorder
	slots    []*slot
	wg       sync.WaitGroup
}

type slot struct {
	binding Binding

	mu       sync.Mutex
	state    State
	rerun    bool
	timer    *time.Timer
	lastPath string
}

// NewDispatcher creates a dispatcher for bindings.
func NewDispatcher(bindings []Binding, inv Invoker, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		invoker:  inv,
		debounce: opts.Debounce,
		recorder: metrics.OrNoop(opts.Recorder),
	}
	for _, b := range bindings {
		d.slots = append(d.slots, &slot{binding: b})
	}
	return d
}

// Run consumes events until ctx is canceled or events is closed, then stops
// pending timers and waits for in-flight dispatches.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	defer d.Wait()
	defer d.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent feeds one event to every matching binding and returns the number
// of bindings it matched.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) int {
	matched := 0
	for _, s := range d.slots {
		if !s.binding.Matches(ev) {
			continue
		}
		matched++
		d.signal(ctx, s, ev)
	}
	if matched == 0 {
		slog.Debug("Ignoring unwatched change", logfields.Path(ev.Path), logfields.Event(ev.Op.String()))
	}
	return matched
}

// State reports the state of the named binding.
func (d *Dispatcher) State(name string) State {
	for _, s := range d.slots {
		if s.binding.Name == name {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.state
		}
	}
	return StateIdle
}

// Wait blocks until no binding is pending or dispatching.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) signal(ctx context.Context, s *slot, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPath = ev.Path
	switch s.state {
	case StateIdle:
		s.state = StatePending
		d.wg.Add(1)
		d.arm(ctx, s)
	case StatePending:
		if s.timer != nil {
			s.timer.Reset(d.debounce)
		}
	case StateDispatching:
		if !s.rerun {
			s.rerun = true
			d.recorder.IncWatchCoalesced(s.binding.Task)
		}
	}
}

// arm schedules the dispatch of a pending slot. Callers hold s.mu.
func (d *Dispatcher) arm(ctx context.Context, s *slot) {
	if d.debounce <= 0 {
		s.timer = nil
		go d.dispatch(ctx, s)
		return
	}
	s.timer = time.AfterFunc(d.debounce, func() { d.dispatch(ctx, s) })
}

func (d *Dispatcher) dispatch(ctx context.Context, s *slot) {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}
	if ctx.Err() != nil {
		s.state = StateIdle
		s.timer = nil
		s.mu.Unlock()
		d.wg.Done()
		return
	}
	s.state = StateDispatching
	s.timer = nil
	trigger := s.lastPath
	s.mu.Unlock()

	b := s.binding
	runCtx := observability.WithTrigger(observability.WithInvocationID(ctx, uuid.NewString()), trigger)
	runCtx = pipeline.WithPruneStale(runCtx, b.PrecededByClean)
	observability.InfoContext(runCtx, "Change detected, rebuilding",
		logfields.Task(b.Task), logfields.AssetClass(b.Name), slog.Bool("prune_stale", b.PrecededByClean))
	d.recorder.IncWatchDispatch(b.Task)
	if err := d.invoker.Invoke(runCtx, b.Task); err != nil && ctx.Err() == nil {
		observability.ErrorContext(runCtx, "Rebuild failed; waiting for the next change",
			logfields.Task(b.Task), logfields.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rerun && ctx.Err() == nil {
		s.rerun = false
		s.state = StatePending
		d.arm(ctx, s)
		return
	}
	s.rerun = false
	s.state = StateIdle
	d.wg.Done()
}

func (d *Dispatcher) stopPending() {
	for _, s := range d.slots {
		s.mu.Lock()
		if s.state == StatePending && s.timer != nil && s.timer.Stop() {
			s.state = StateIdle
			s.timer = nil
			d.wg.Done()
		}
		s.mu.Unlock()
	}
}
