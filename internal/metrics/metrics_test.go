package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStepDuration("css", "preprocess", time.Second)
	r.IncPipelineResult("css", ResultFailed)
	r.SetReloadClients(3)

	assert.IsType(t, NoopRecorder{}, OrNoop(nil))
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStepDuration("css", "preprocess", 150*time.Millisecond)
	pr.IncStepResult("css", "preprocess", ResultSuccess)
	pr.IncPipelineResult("css", ResultSuccess)
	pr.AddFilesWritten("css", 2)
	pr.ObserveTaskDuration("styles", 200*time.Millisecond, ResultSuccess)
	pr.IncWatchDispatch("styles")
	pr.IncWatchCoalesced("styles")
	pr.SetReloadClients(1)
	pr.IncReload("css")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "markup_pipeline_runs_total")
	assert.Contains(t, names, "markup_files_written_total")
	assert.Contains(t, names, "markup_livereload_clients")
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncReload("full")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `markup_livereload_broadcasts_total{scope="full"} 1`)
}
