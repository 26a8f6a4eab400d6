package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/louisbranch/gathering.place/internal/hub/ai"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	"github.com/louisbranch/gathering.place/internal/hub/grant"
	"github.com/louisbranch/gathering.place/internal/hub/metrics"
	"github.com/louisbranch/gathering.place/internal/platform/timeouts"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	maxGeneratedBodyRunes = 2000

	commandTimeout = 5 * time.Second

	estimatedWaitPerSeat = 5 * time.Minute

	defaultReconnectGrace  = 2 * time.Minute
	defaultGenerateTimeout = 30 * time.Second
)

// Config defines the inputs for the hub transport boundary.
//
// The websocket layer stays transport-only: identity comes from join grants,
// every mutation goes through the engine as a command, and deltas reach
// clients through engine subscriptions.
type Config struct {
	HTTPAddr string
	Engine   *engine.Engine
	Grants   grant.Config
	Provider ai.Provider
	Recorder *metrics.Metrics
	Gatherer prometheus.Gatherer

	ReconnectGrace    time.Duration
	GenerateTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the hub HTTP/WebSocket process.
//
// The engine is owned by the caller; the server only borrows it, so shutting
// the server down never tears down session lanes.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// deps carries the per-connection collaborators resolved at startup.
type deps struct {
	engine          *engine.Engine
	grants          grant.Config
	provider        ai.Provider
	recorder        *metrics.Metrics
	reconnectGrace  time.Duration
	generateTimeout time.Duration
}

// NewServer builds a configured hub server around an existing engine.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.ReconnectGrace <= 0 {
		config.ReconnectGrace = defaultReconnectGrace
	}
	if config.GenerateTimeout <= 0 {
		config.GenerateTimeout = defaultGenerateTimeout
	}

	d := deps{
		engine:          config.Engine,
		grants:          config.Grants,
		provider:        config.Provider,
		recorder:        config.Recorder,
		reconnectGrace:  config.ReconnectGrace,
		generateTimeout: config.GenerateTimeout,
	}
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(d, config.Gatherer),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// Run creates and serves a hub server until the context ends.
//
// Operators can treat this as the lifecycle boundary for the real-time surface.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init hub server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve hub: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("hub server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("hub server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// HandlerOptions configures an http.Handler without the server lifecycle.
type HandlerOptions struct {
	Engine          *engine.Engine
	Grants          grant.Config
	Provider        ai.Provider
	Recorder        *metrics.Metrics
	Gatherer        prometheus.Gatherer
	ReconnectGrace  time.Duration
	GenerateTimeout time.Duration
}

// NewHandler creates hub routes for tests and offline paths.
// Join grants are intentionally not enforced in this constructor.
func NewHandler(eng *engine.Engine) http.Handler {
	return NewHandlerWithOptions(HandlerOptions{Engine: eng})
}

// NewHandlerWithOptions creates hub routes with explicit collaborators.
func NewHandlerWithOptions(opts HandlerOptions) http.Handler {
	if opts.ReconnectGrace <= 0 {
		opts.ReconnectGrace = defaultReconnectGrace
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = defaultGenerateTimeout
	}
	return newHandler(deps{
		engine:          opts.Engine,
		grants:          opts.Grants,
		provider:        opts.Provider,
		recorder:        opts.Recorder,
		reconnectGrace:  opts.ReconnectGrace,
		generateTimeout: opts.GenerateTimeout,
	}, opts.Gatherer)
}

func newHandler(d deps, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, d)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}
