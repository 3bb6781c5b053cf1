package devserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/browser"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/metrics"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

// Options configures a Server.
type Options struct {
	Host string
	// Port 0 picks a free port.
	Port int
	// Root is the directory served, normally the destination root.
	Root       string
	LiveReload bool
	Open       bool

	MetricsPath    string
	MetricsHandler http.Handler
	Recorder       metrics.Recorder
}

// Server is a running development server. It implements pipeline.Reloader.
type Server struct {
	root     string
	hub      *Hub
	srv      *http.Server
	ln       net.Listener
	recorder metrics.Recorder
	done     chan error
}

var _ pipeline.Reloader = (*Server)(nil)

// openURL is replaced in tests.
var openURL = browser.OpenURL

// Start binds the listener and serves in the background until Stop is called
// or ctx is canceled.
func Start(ctx context.Context, opts Options) (*Server, error) {
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.NetworkError("bind dev server").WithCause(err).WithContext("addr", addr).Build()
	}

	s := &Server{
		root:     opts.Root,
		hub:      NewHub(opts.Recorder),
		ln:       ln,
		recorder: metrics.OrNoop(opts.Recorder),
		done:     make(chan error, 1),
	}

	mux := http.NewServeMux()
	var files http.Handler = http.FileServer(http.Dir(opts.Root))
	if opts.LiveReload {
		mux.Handle(SSEPath, s.hub)
		mux.HandleFunc(WebSocketPath, s.hub.ServeWS)
		mux.HandleFunc(ClientScriptPath, serveClientScript)
		files = injectClient(files)
	}
	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, opts.MetricsHandler)
	}
	mux.Handle("/", noCache(files))

	// Long-lived reload streams rule out write timeouts.
	s.srv = &http.Server{
		Handler:           chain(slog.Default(), mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	go func() {
		err := s.srv.Serve(ln)
		if stderrors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.Stop(shutdownCtx)
	}()

	slog.Info("Dev server listening", slog.String("url", s.URL()), logfields.Path(opts.Root),
		slog.Bool("livereload", opts.LiveReload))
	if opts.Open {
		if err := openURL(s.URL()); err != nil {
			slog.Warn("Failed to open browser", logfields.Error(err))
		}
	}
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// URL returns the base URL of the server.
func (s *Server) URL() string {
	host, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return "http://" + s.Addr() + "/"
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, port))
}

// Reload notifies connected clients. A css scope swaps stylesheets in place;
// any other scope reloads the page.
func (s *Server) Reload(scope pipeline.ReloadScope, files []string) {
	if scope == pipeline.ReloadNone {
		return
	}
	msg := messageFor(s.root, scope, files)
	s.recorder.IncReload(string(scope))
	s.hub.Broadcast(msg)
}

// Hub exposes the client hub.
func (s *Server) Hub() *Hub { return s.hub }

// Stop disconnects reload clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Shutdown()
	if err := s.srv.Shutdown(ctx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapError(err, errors.CategoryRuntime, "shutdown dev server").Build()
	}
	return nil
}

// Wait blocks until the server stops serving.
func (s *Server) Wait() error {
	err := <-s.done
	s.done <- err
	return err
}

func serveClientScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(clientScript)); err != nil {
		slog.Debug("Failed to write livereload client", logfields.Error(err))
	}
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
