// Package metrics provides observability hooks for pipeline runs, task invocations,
// watch dispatches, and live reload clients.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	runner := pipeline.NewRunner(opts) // NoopRecorder unless opts.Recorder is set
//
// When metrics are enabled the dev server swaps in a PrometheusRecorder and exposes
// its registry through HTTPHandler.
package metrics
