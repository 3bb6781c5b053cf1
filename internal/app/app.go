// Package app assembles a project: configuration, asset pipelines, the task
// orchestrator and the leaves that are not pipelines (webserver, watch, verify).
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ifamed/markup-boilerplate/internal/assets"
	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/devserver"
	"github.com/ifamed/markup-boilerplate/internal/eventstore"
	"github.com/ifamed/markup-boilerplate/internal/linkverify"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/notify"
	"github.com/ifamed/markup-boilerplate/internal/orchestrator"
	"github.com/ifamed/markup-boilerplate/internal/paths"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
	"github.com/ifamed/markup-boilerplate/internal/watch"
)

// Options selects how a project is opened.
type Options struct {
	ConfigPath string
	// ConfigRequired fails when ConfigPath does not exist instead of using defaults.
	ConfigRequired bool
	// Mode is the --env flag value; empty defers to the environment and the file.
	Mode string
	// Open overrides server.open when true.
	Open bool
	// NoHistory skips the run history database.
	NoHistory bool
	// Graph replaces the default task graph.
	Graph *orchestrator.TaskGraph
	// Tasks are the tasks the caller is about to run. Requesting the
	// production task forces production mode.
	Tasks []string
}

// App is an opened project.
type App struct {
	Config       *config.Config
	Mode         config.Mode
	Specs        []paths.AssetClassSpec
	Orchestrator *orchestrator.Orchestrator
	History      *eventstore.SQLiteStore

	toolkit  *assets.Toolkit
	nats     *notify.NATS
	registry *prom.Registry
	recorder metrics.Recorder
	relay    *reloadRelay
	open     bool
}

// Open loads the configuration and wires every collaborator. Close releases them.
func Open(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.ConfigRequired)
	if err != nil {
		return nil, err
	}
	mode, err := config.ResolveMode(opts.Mode, cfg)
	if err != nil {
		return nil, err
	}
	graph := opts.Graph
	if graph == nil {
		graph = orchestrator.DefaultGraph()
	}
	if !mode.IsProduction() && requestsProduction(graph, opts.Tasks) {
		slog.Info("Production task requested, forcing production mode", logfields.Mode(mode.String()))
		mode = config.ModeProduction
	}
	specs, err := paths.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Mode:     mode,
		Specs:    specs,
		recorder: metrics.NoopRecorder{},
		relay:    &reloadRelay{},
		open:     opts.Open || cfg.Server.Open,
	}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		a.registry = prom.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(a.registry)
	}

	notifiers := notify.Multi{notify.Log{}}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATS(cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.Name)
		if err != nil {
			// Notifications are best-effort; a missing broker never blocks a build.
			slog.Warn("NATS notifications disabled", logfields.Error(err))
		} else {
			a.nats = n
			notifiers = append(notifiers, n)
		}
	}
	if !opts.NoHistory && !cfg.State.Disabled {
		h, err := eventstore.NewSQLiteStore(cfg.Abs(cfg.State.Path))
		if err != nil {
			slog.Warn("Run history disabled", logfields.Error(err))
		} else {
			a.History = h
			notifiers = append(notifiers, h)
		}
	}

	a.toolkit, err = assets.NewToolkit(cfg)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(pipeline.Options{
		Mode:     mode,
		DestRoot: cfg.DestRoot(),
		Reloader: a.relay,
		Notifier: notifiers,
		Recorder: a.recorder,
	})

	a.Orchestrator, err = orchestrator.New(orchestrator.Options{
		Graph:       graph,
		Specs:       specs,
		Definitions: assets.Definitions(a.toolkit, specs),
		Runner:      runner,
		DestRoot:    cfg.DestRoot(),
		Recorder:    a.recorder,
	})
	if err != nil {
		return nil, err
	}
	a.Orchestrator.Handle(orchestrator.TaskVerify, a.Verify)
	a.Orchestrator.Handle(orchestrator.TaskWebserver, a.Serve)
	a.Orchestrator.Handle(orchestrator.TaskWatch, a.Watch)

	slog.Info("Project opened",
		slog.String("name", cfg.Name),
		logfields.Mode(mode.String()),
		slog.String("source", cfg.SourceRoot()),
		slog.String("dest", cfg.DestRoot()))
	ok = true
	return a, nil
}

func requestsProduction(graph *orchestrator.TaskGraph, tasks []string) bool {
	for _, name := range tasks {
		if t, ok := graph.Lookup(name); ok && t.Name == orchestrator.TaskProduction {
			return true
		}
	}
	return false
}

// Run invokes tasks in order, stopping at the first failure.
func (a *App) Run(ctx context.Context, tasks ...string) error {
	if len(tasks) == 0 {
		tasks = []string{orchestrator.TaskDefault}
	}
	for _, t := range tasks {
		if err := a.Orchestrator.Invoke(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the destination tree for broken local references.
func (a *App) Verify(ctx context.Context) error {
	report, err := linkverify.New(a.Config.DestRoot()).Verify(ctx)
	if err != nil {
		return err
	}
	slog.Info("Verified destination",
		slog.Int("pages", report.Pages),
		slog.Int("references", report.Checked),
		slog.Int("broken", len(report.Broken)))
	return report.Err()
}

// Serve runs the dev server until ctx is canceled. Pipeline reloads reach its
// clients while it runs.
func (a *App) Serve(ctx context.Context) error {
	var handler http.Handler
	if a.registry != nil {
		handler = metrics.HTTPHandler(a.registry)
	}
	srv, err := devserver.Start(ctx, devserver.Options{
		Host:           a.Config.Server.Host,
		Port:           a.Config.Server.Port,
		Root:           a.Config.DestRoot(),
		LiveReload:     a.Config.Server.LiveReloadEnabled(),
		Open:           a.open,
		MetricsPath:    a.Config.Metrics.Path,
		MetricsHandler: handler,
		Recorder:       a.recorder,
	})
	if err != nil {
		return err
	}
	a.relay.set(srv)
	defer a.relay.set(nil)
	<-ctx.Done()
	return srv.Wait()
}

// Watch dispatches source changes to the class tasks until ctx is canceled.
func (a *App) Watch(ctx context.Context) error {
	bindings := watch.Bindings(a.Specs)
	for _, b := range bindings {
		slog.Debug("Watching", slog.String("binding", b.Name), slog.String("pattern", b.Pattern.String()),
			slog.String("task", b.Task), slog.Bool("preceded_by_clean", b.PrecededByClean))
	}
	err := watch.Watch(ctx, a.Config.SourceRoot(), bindings, a.Orchestrator, watch.Options{
		Debounce:     a.Config.Watch.DebounceDuration(),
		PollInterval: a.Config.Watch.PollDuration(),
		Recorder:     a.recorder,
	})
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases external processes and connections.
func (a *App) Close() error {
	var errs []error
	if a.toolkit != nil {
		errs = append(errs, a.toolkit.Close())
	}
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}
	if a.History != nil {
		errs = append(errs, a.History.Close())
	}
	return stderrors.Join(errs...)
}

// reloadRelay forwards reload signals to the dev server while one is running.
// Pipelines run before the server starts, so the runner holds the relay.
type reloadRelay struct {
	target atomic.Pointer[devserver.Server]
}

func (r *reloadRelay) set(s *devserver.Server) { r.target.Store(s) }

func (r *reloadRelay) Reload(scope pipeline.ReloadScope, files []string) {
	if s := r.target.Load(); s != nil {
		s.Reload(scope, files)
	}
}
