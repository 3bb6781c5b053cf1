package metrics

import "time"

// ResultLabel enumerates result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks. All methods must be safe to call on the
// NoopRecorder, allowing optional injection.
type Recorder interface {
	ObserveStepDuration(class, step string, d time.Duration)
	IncStepResult(class, step string, result ResultLabel)
	IncPipelineResult(class string, result ResultLabel)
	AddFilesWritten(class string, n int)
	ObserveTaskDuration(task string, d time.Duration, result ResultLabel)
	IncWatchDispatch(task string)
	IncWatchCoalesced(task string)
	SetReloadClients(n int)
	IncReload(scope string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, string, time.Duration)      {}
func (NoopRecorder) IncStepResult(string, string, ResultLabel)              {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)                  {}
func (NoopRecorder) AddFilesWritten(string, int)                            {}
func (NoopRecorder) ObserveTaskDuration(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncWatchDispatch(string)                                {}
func (NoopRecorder) IncWatchCoalesced(string)                               {}
func (NoopRecorder) SetReloadClients(int)                                   {}
func (NoopRecorder) IncReload(string)                                       {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
