package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/notify"
	"github.com/ifamed/markup-boilerplate/internal/paths"
	"github.com/ifamed/markup-boilerplate/internal/workspace"
)

// Options configures a Runner.
type Options struct {
	Mode     config.Mode
	DestRoot string
	Reloader Reloader
	Notifier notify.Notifier
	Recorder metrics.Recorder
}

// Runner executes pipeline definitions. It remembers the files each class wrote
// last so a rebuild can prune outputs that are no longer produced.
type Runner struct {
	mode     config.Mode
	destRoot string
	reloader Reloader
	notifier notify.Notifier
	recorder metrics.Recorder

	mu       sync.Mutex
	previous map[paths.ClassID]WrittenFileSet
}

// NewRunner creates a runner. The mode is fixed for the lifetime of the runner.
func NewRunner(opts Options) *Runner {
	mode := opts.Mode
	if mode == "" {
		mode = config.ModeDevelopment
	}
	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Runner{
		mode:     mode,
		destRoot: filepath.Clean(opts.DestRoot),
		reloader: opts.Reloader,
		notifier: n,
		recorder: metrics.OrNoop(opts.Recorder),
		previous: make(map[paths.ClassID]WrittenFileSet),
	}
}

// Mode returns the mode every run uses.
func (r *Runner) Mode() config.Mode { return r.mode }

// RunOptions narrows a single run.
type RunOptions struct {
	Task    string
	Variant Variant
	// PruneStale removes files the previous run of the class wrote that this run
	// no longer produces.
	PruneStale bool
}

// Run executes def over the sources of spec and writes the result into spec.DestDir.
// On failure nothing is written and the returned error is a TransformError (a step
// rejected its input) or a WriteError (the destination could not be updated).
func (r *Runner) Run(ctx context.Context, def Definition, spec paths.AssetClassSpec, opts RunOptions) (WrittenFileSet, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Task:    opts.Task,
		Class:   spec.ID,
		Mode:    r.mode,
		Variant: opts.Variant,
		Spec:    spec,
	}
	started := time.Now()
	log := slog.With(logfields.RunID(run.ID), logfields.AssetClass(string(spec.ID)), logfields.Mode(string(r.mode)))
	log.Debug("Pipeline run started", slog.Any("steps", def.StepNames()))

	assets, err := collect(spec)
	if err != nil {
		return nil, r.fail(ctx, run, started, "collect", FailedFile(err), err)
	}

	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(ctx, run, started, step.Name, "", err)
		}
		if !step.Applies(run) {
			r.recorder.IncStepResult(string(spec.ID), step.Name, metrics.ResultSkipped)
			log.Debug("Step skipped", logfields.Step(step.Name))
			continue
		}
		t0 := time.Now()
		assets, err = step.Fn(ctx, run, assets)
		r.recorder.ObserveStepDuration(string(spec.ID), step.Name, time.Since(t0))
		if err != nil {
			r.recorder.IncStepResult(string(spec.ID), step.Name, metrics.ResultFailed)
			return nil, r.fail(ctx, run, started, step.Name, FailedFile(err), err)
		}
		r.recorder.IncStepResult(string(spec.ID), step.Name, metrics.ResultSuccess)
	}

	written, err := r.write(spec, assets)
	if err != nil {
		return nil, r.fail(ctx, run, started, "write", "", err)
	}

	r.mu.Lock()
	stale := r.previous[spec.ID].Minus(written)
	r.previous[spec.ID] = written
	r.mu.Unlock()
	if opts.PruneStale {
		r.prune(log, stale)
	}

	r.recorder.IncPipelineResult(string(spec.ID), metrics.ResultSuccess)
	r.recorder.AddFilesWritten(string(spec.ID), len(written))
	r.notifier.Notify(ctx, notify.Event{
		RunID:    run.ID,
		Task:     run.Task,
		Class:    string(spec.ID),
		Mode:     string(r.mode),
		Status:   notify.StatusSuccess,
		Files:    len(written),
		Started:  started,
		Duration: time.Since(started),
	})
	if r.reloader != nil && def.Reload != ReloadNone && len(written) > 0 {
		r.reloader.Reload(def.Reload, written)
	}
	return written, nil
}

// Previous returns the files the last successful run of class wrote.
func (r *Runner) Previous(class paths.ClassID) WrittenFileSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.previous[class])
}

// Forget drops every remembered file set, e.g. after the destination root was cleaned.
func (r *Runner) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.previous)
}

func (r *Runner) fail(ctx context.Context, run *Run, started time.Time, step, file string, cause error) error {
	var err error
	switch {
	case stderrors.Is(cause, context.Canceled) || stderrors.Is(cause, context.DeadlineExceeded):
		r.recorder.IncPipelineResult(string(run.Class), metrics.ResultCanceled)
		return cause
	case errors.HasCategory(cause, errors.CategoryFileSystem):
		err = errors.WriteError("destination not writable").WithCause(cause).
			WithContext("class", string(run.Class)).
			WithContext("step", step).Build()
	default:
		b := errors.TransformError(step+" failed").WithCause(cause).
			WithContext("class", string(run.Class)).
			WithContext("step", step)
		if file != "" {
			b = b.WithContext("file", file)
		}
		err = b.Build()
	}
	r.recorder.IncPipelineResult(string(run.Class), metrics.ResultFailed)
	r.notifier.Notify(ctx, notify.Event{
		RunID:    run.ID,
		Task:     run.Task,
		Class:    string(run.Class),
		Mode:     string(run.Mode),
		Status:   notify.StatusFailed,
		Step:     step,
		File:     file,
		Error:    cause.Error(),
		Started:  started,
		Duration: time.Since(started),
	})
	return err
}

// collect reads every source file of spec into memory.
func collect(spec paths.AssetClassSpec) ([]*Asset, error) {
	files, err := spec.Source.Expand()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "expand source glob").
			WithContext("pattern", spec.Source.Pattern).Build()
	}
	assets := make([]*Asset, 0, len(files))
	for _, f := range files {
		// #nosec G304 -- paths come from the configured source glob
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &FileError{File: f, Err: err}
		}
		rel, ok := spec.Source.RelToBase(f)
		if !ok {
			rel = filepath.ToSlash(filepath.Base(f))
		}
		assets = append(assets, &Asset{Path: rel, Source: f, Contents: data})
	}
	return assets, nil
}

// rename is swapped in tests to simulate a failing move.
var rename = os.Rename

// staged is one output waiting to replace its target.
type staged struct {
	tmp, target string
	backup      string // previous target contents, moved aside
	placed      bool
}

// write stages every asset next to the destination root, then moves the whole
// set into place. Replaced files are kept aside until every move succeeded so a
// failure restores the previous output. Files whose contents are unchanged are
// left alone.
func (r *Runner) write(spec paths.AssetClassSpec, assets []*Asset) (WrittenFileSet, error) {
	targets := make([]string, len(assets))
	for i, a := range assets {
		t, err := r.target(spec, a)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}

	stage := workspace.StageFor(r.destRoot)
	if err := stage.Create(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create staging directory").Build()
	}
	defer func() {
		if err := stage.Cleanup(); err != nil {
			slog.Warn("Failed to remove staging directory", logfields.Path(stage.GetPath()), logfields.Error(err))
		}
	}()

	pending := make([]staged, 0, len(assets))
	written := make(WrittenFileSet, 0, len(assets))
	for i, a := range assets {
		written = append(written, targets[i])
		// #nosec G304 -- target is inside the resolved destination
		if current, err := os.ReadFile(targets[i]); err == nil && bytes.Equal(current, a.Contents) {
			continue
		}
		tmp := filepath.Join(stage.GetPath(), strconv.Itoa(i))
		if err := os.WriteFile(tmp, a.Contents, 0o644); err != nil { // #nosec G306 -- public build output
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "stage output").
				WithContext("file", targets[i]).Build()
		}
		pending = append(pending, staged{tmp: tmp, target: targets[i]})
	}

	for _, p := range pending {
		if err := os.MkdirAll(filepath.Dir(p.target), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create destination directory").
				WithContext("file", p.target).Build()
		}
		if fi, err := os.Lstat(p.target); err == nil && fi.IsDir() {
			return nil, errors.FileSystemError("output path is a directory").
				WithContext("file", p.target).Build()
		}
	}

	for i := range pending {
		if err := commit(&pending[i], filepath.Join(stage.GetPath(), "prev-"+strconv.Itoa(i))); err != nil {
			rollback(pending[:i+1])
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "move output into place").
				WithContext("file", pending[i].target).Build()
		}
	}
	slices.Sort(written)
	return slices.Compact(written), nil
}

func commit(p *staged, backup string) error {
	if _, err := os.Lstat(p.target); err == nil {
		if err := rename(p.target, backup); err != nil {
			return err
		}
		p.backup = backup
	}
	if err := rename(p.tmp, p.target); err != nil {
		return err
	}
	p.placed = true
	return nil
}

// rollback undoes committed moves in reverse order.
func rollback(done []staged) {
	for i := len(done) - 1; i >= 0; i-- {
		p := done[i]
		if p.placed {
			if err := os.Remove(p.target); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
				slog.Warn("Failed to remove partial output", logfields.File(p.target), logfields.Error(err))
			}
		}
		if p.backup != "" {
			if err := rename(p.backup, p.target); err != nil {
				slog.Warn("Failed to restore previous output", logfields.File(p.target), logfields.Error(err))
			}
		}
	}
}

func (r *Runner) target(spec paths.AssetClassSpec, a *Asset) (string, error) {
	if a.Target != "" {
		return filepath.Clean(a.Target), nil
	}
	t := filepath.Join(spec.DestDir, filepath.FromSlash(a.Path))
	rel, err := filepath.Rel(r.destRoot, t)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InternalError("output escapes the destination root").
			WithContext("file", a.Path).Build()
	}
	return t, nil
}

// prune removes stale outputs inside the destination root.
func (r *Runner) prune(log *slog.Logger, stale WrittenFileSet) {
	for _, p := range stale {
		rel, err := filepath.Rel(r.destRoot, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if err := os.Remove(p); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to remove stale output", logfields.File(p), logfields.Error(err))
			continue
		}
		log.Debug("Removed stale output", logfields.File(p))
	}
}
