package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "markup"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stepDuration    *prom.HistogramVec
	stepResults     *prom.CounterVec
	pipelineResults *prom.CounterVec
	filesWritten    *prom.CounterVec
	taskDuration    *prom.HistogramVec
	watchDispatches *prom.CounterVec
	watchCoalesced  *prom.CounterVec
	reloadClients   prom.Gauge
	reloads         *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual pipeline steps",
			Buckets:   prom.DefBuckets,
		}, []string{"class", "step"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Pipeline step results by outcome",
		}, []string{"class", "step", "result"}),
		pipelineResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by asset class and outcome",
		}, []string{"class", "result"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Files written to the destination tree",
		}, []string{"class"}),
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of orchestrator task invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"task", "result"}),
		watchDispatches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_dispatches_total",
			Help:      "Tasks dispatched by the watcher",
		}, []string{"task"}),
		watchCoalesced: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_coalesced_total",
			Help:      "Watch events folded into a pending re-run",
		}, []string{"task"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Reload notifications sent by scope",
		}, []string{"scope"}),
	}
	reg.MustRegister(pr.stepDuration, pr.stepResults, pr.pipelineResults, pr.filesWritten,
		pr.taskDuration, pr.watchDispatches, pr.watchCoalesced, pr.reloadClients, pr.reloads)
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(class, step string, d time.Duration) {
	if p == nil {
		return
	}
	p.stepDuration.WithLabelValues(class, step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(class, step string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stepResults.WithLabelValues(class, step, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPipelineResult(class string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pipelineResults.WithLabelValues(class, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFilesWritten(class string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesWritten.WithLabelValues(class).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncWatchDispatch(task string) {
	if p == nil {
		return
	}
	p.watchDispatches.WithLabelValues(task).Inc()
}

func (p *PrometheusRecorder) IncWatchCoalesced(task string) {
	if p == nil {
		return
	}
	p.watchCoalesced.WithLabelValues(task).Inc()
}

func (p *PrometheusRecorder) SetReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncReload(scope string) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(scope).Inc()
}
