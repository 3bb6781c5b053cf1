package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/observability"
	"github.com/ifamed/markup-boilerplate/internal/paths"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

// Action implements a leaf task that is not a pipeline run.
type Action func(ctx context.Context) error

// Options configures an Orchestrator.
type Options struct {
	Graph       *TaskGraph
	Specs       []paths.AssetClassSpec
	Definitions map[paths.ClassID]pipeline.Definition
	Runner      *pipeline.Runner
	DestRoot    string
	Recorder    metrics.Recorder
}

// Orchestrator executes tasks of a validated TaskGraph.
type Orchestrator struct {
	graph    *TaskGraph
	runner   *pipeline.Runner
	destRoot string
	recorder metrics.Recorder

	mu      sync.Mutex
	actions map[string]Action
	// locks serialize leaves that share a destination: a class never runs
	// concurrently with itself, whichever leaf triggered it.
	locks map[string]*sync.Mutex
}

// New validates the graph and binds every pipeline leaf to its asset class.
func New(opts Options) (*Orchestrator, error) {
	g := opts.Graph
	if g == nil {
		g = DefaultGraph()
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		graph:    g,
		runner:   opts.Runner,
		destRoot: opts.DestRoot,
		recorder: metrics.OrNoop(opts.Recorder),
		actions:  make(map[string]Action),
		locks:    make(map[string]*sync.Mutex),
	}
	o.actions[TaskClean] = o.Clean

	for _, spec := range opts.Specs {
		def, ok := opts.Definitions[spec.ID]
		if !ok {
			return nil, errors.InternalError("asset class has no pipeline definition").
				WithContext("class", string(spec.ID)).Build()
		}
		o.bindClass(spec.Task, spec, def, pipeline.VariantDefault)
		if spec.ID == paths.ClassImageRaster {
			o.bindClass(TaskImagesBasic, spec, def, pipeline.VariantBasic)
			o.bindClass(TaskImagesTinyPNG, spec, def, pipeline.VariantTinyPNG)
		}
	}
	return o, nil
}

func (o *Orchestrator) bindClass(task string, spec paths.AssetClassSpec, def pipeline.Definition, variant pipeline.Variant) {
	o.locks[task] = o.lockFor("class:" + string(spec.ID))
	o.actions[task] = func(ctx context.Context) error {
		_, err := o.runner.Run(ctx, def, spec, pipeline.RunOptions{
			Task:       task,
			Variant:    variant,
			PruneStale: pipeline.PruneStale(ctx, spec.CleanBeforeRebuild),
		})
		return err
	}
}

func (o *Orchestrator) lockFor(key string) *sync.Mutex {
	if l, ok := o.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	o.locks[key] = l
	return l
}

// Handle binds a leaf task to fn. It is used for leaves whose implementation
// lives outside the pipeline layer, such as the dev server and the watcher.
func (o *Orchestrator) Handle(name string, fn Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions[name] = fn
	if _, ok := o.locks[name]; !ok {
		o.locks[name] = &sync.Mutex{}
	}
}

// Graph returns the task graph.
func (o *Orchestrator) Graph() *TaskGraph { return o.graph }

// Invoke runs the named task. Sequential groups stop at the first failing
// member; parallel groups wait for every member and return an AggregateError
// listing each failure.
func (o *Orchestrator) Invoke(ctx context.Context, name string) error {
	if observability.GetContext(ctx).InvocationID == "" {
		ctx = observability.WithInvocationID(ctx, uuid.NewString())
	}
	task, ok := o.graph.Lookup(name)
	if !ok {
		return errors.NotFoundError("unknown task").WithContext("task", name).Build()
	}
	return o.invoke(ctx, task)
}

func (o *Orchestrator) invoke(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = observability.WithTask(ctx, task.Name)
	switch task.Kind {
	case KindSequential:
		for _, m := range task.Members {
			member, _ := o.graph.Lookup(m)
			if err := o.invoke(ctx, member); err != nil {
				return err
			}
		}
		return nil
	case KindParallel:
		return o.parallel(ctx, task)
	default:
		return o.leaf(ctx, task.Name)
	}
}

func (o *Orchestrator) parallel(ctx context.Context, task Task) error {
	results := make([]error, len(task.Members))
	var wg sync.WaitGroup
	for i, m := range task.Members {
		member, _ := o.graph.Lookup(m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.invoke(ctx, member)
		}()
	}
	wg.Wait()

	var failed []errors.MemberError
	for i, err := range results {
		if err != nil {
			failed = append(failed, errors.MemberError{Member: task.Members[i], Err: err})
		}
	}
	return errors.NewAggregate(task.Name, failed)
}

func (o *Orchestrator) leaf(ctx context.Context, name string) error {
	o.mu.Lock()
	fn, ok := o.actions[name]
	lock := o.locks[name]
	o.mu.Unlock()
	if !ok {
		return errors.InternalError("task has no implementation").WithContext("task", name).Build()
	}
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}

	started := time.Now()
	observability.DebugContext(ctx, "Task started")
	err := fn(ctx)
	elapsed := time.Since(started)

	result := metrics.ResultSuccess
	switch {
	case err == nil:
		observability.InfoContext(ctx, "Task finished", logfields.DurationMS(float64(elapsed.Milliseconds())))
	case ctx.Err() != nil:
		result = metrics.ResultCanceled
	default:
		result = metrics.ResultFailed
		observability.ErrorContext(ctx, "Task failed", logfields.Error(err))
	}
	o.recorder.ObserveTaskDuration(name, elapsed, result)
	return err
}
