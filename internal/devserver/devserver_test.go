package devserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

func startServer(t *testing.T, liveReload bool) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body><h1>Hi</h1></body></html>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets", "stylesheets"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "stylesheets", "main.css"), []byte("a{}"), 0o600))

	s, err := Start(t.Context(), Options{
		Host:           "127.0.0.1",
		Root:           root,
		LiveReload:     liveReload,
		MetricsPath:    "/metrics",
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "ok") }),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, root
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_InjectsClientIntoHTML(t *testing.T) {
	s, _ := startServer(t, true)

	status, body := get(t, s.URL())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<h1>Hi</h1><script src="/__livereload.js" async></script></body>`)

	_, css := get(t, s.URL()+"assets/stylesheets/main.css")
	assert.Equal(t, "a{}", css)

	status, script := get(t, s.URL()+"__livereload.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, script, "/__livereload/ws")

	_, metricsBody := get(t, s.URL()+"metrics")
	assert.Equal(t, "ok", metricsBody)
}

func TestServer_NoInjectionWhenDisabled(t *testing.T) {
	s, _ := startServer(t, false)
	_, body := get(t, s.URL())
	assert.NotContains(t, body, "__livereload")
	status, _ := get(t, s.URL()+"__livereload.js")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_ReloadOverWebSocket(t *testing.T) {
	s, root := startServer(t, true)
	wsURL := "ws://" + s.Addr() + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	s.Reload(pipeline.ReloadCSS, []string{filepath.Join(root, "assets", "stylesheets", "main.css")})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Command: "reload", Path: "/assets/stylesheets/main.css", LiveCSS: true}, msg)

	s.Reload(pipeline.ReloadFull, []string{filepath.Join(root, "index.html")})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Command: "reload", Path: "/index.html", LiveCSS: false}, msg)
}

func TestServer_ReloadOverSSE(t *testing.T) {
	s, root := startServer(t, true)
	resp, err := http.Get(s.URL() + strings.TrimPrefix(SSEPath, "/")) //nolint:noctx // test helper
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	s.Reload(pipeline.ReloadFull, []string{filepath.Join(root, "index.html")})

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &msg))
		assert.Equal(t, "reload", msg.Command)
		assert.False(t, msg.LiveCSS)
		return
	}
}

func TestServer_ReloadNoneIsIgnored(t *testing.T) {
	s, _ := startServer(t, true)
	c, ok := s.Hub().register()
	require.True(t, ok)
	s.Reload(pipeline.ReloadNone, []string{"x"})
	select {
	case <-c.ch:
		t.Fatal("unexpected message for reload scope none")
	default:
	}
}

func TestHub_ShutdownRejectsClients(t *testing.T) {
	h := NewHub(nil)
	c, ok := h.register()
	require.True(t, ok)
	h.Shutdown()
	_, open := <-c.done
	assert.False(t, open)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SSEPath, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHub_BroadcastDropsSlowClients(t *testing.T) {
	h := NewHub(nil)
	c, ok := h.register()
	require.True(t, ok)
	for range cap(c.ch) + 1 {
		h.Broadcast(Message{Command: "reload"})
	}
	assert.Equal(t, 0, h.Clients())
}

func TestInjector_PassesThroughNonHTML(t *testing.T) {
	handler := injectClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"a":1}`)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data.html", nil))
	assert.Equal(t, `{"a":1}`, rec.Body.String())
}

func TestInjector_AppendsWithoutBody(t *testing.T) {
	handler := injectClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<p>fragment</p>")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fragment.html", nil))
	assert.Equal(t, "<p>fragment</p>"+clientScriptTag, rec.Body.String())
}

func TestStart_OpensBrowser(t *testing.T) {
	var opened string
	prev := openURL
	openURL = func(u string) error { opened = u; return nil }
	t.Cleanup(func() { openURL = prev })

	s, err := Start(t.Context(), Options{Host: "127.0.0.1", Root: t.TempDir(), Open: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	assert.Equal(t, s.URL(), opened)
}

func TestStart_PortInUse(t *testing.T) {
	s, _ := startServer(t, false)
	_, raw, _ := strings.Cut(s.Addr(), ":")
	port, err := strconv.Atoi(raw)
	require.NoError(t, err)
	_, err = Start(t.Context(), Options{Host: "127.0.0.1", Port: port, Root: t.TempDir()})
	require.Error(t, err)
}
