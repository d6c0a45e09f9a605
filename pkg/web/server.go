// Package web provides the pointdex dashboard and control API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-pointdex/pkg/camera"
	"github.com/teslashibe/go-pointdex/pkg/frame"
	"github.com/teslashibe/go-pointdex/pkg/hub"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

const (
	// maxHistory bounds the announcement buffer
	maxHistory = 100

	shutdownTimeout = 5 * time.Second
)

// Controller is the part of the loop the dashboard drives.
type Controller interface {
	Status() loop.Status
	Suspend(reason loop.Reason) (release func())
	Resume(reason loop.Reason)
}

// Announcement is one presented event as shown in the dashboard history.
type Announcement struct {
	Time  string               `json:"time"`
	Event stability.ReadyEvent `json:"event"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	ctrl   Controller
	ctrlMu sync.RWMutex

	camera     *camera.Manager
	source     frame.Source
	normalizer *frame.Normalizer
	metrics    http.Handler
	staticDir  string

	// Announcement buffer (last maxHistory entries)
	history   []Announcement
	historyMu sync.RWMutex

	// Hubs for websocket broadcast
	eventsHub      *hub.Hub
	predictionsHub *hub.Hub
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCamera exposes camera settings under /api/camera.
func WithCamera(m *camera.Manager) Option {
	return func(s *Server) { s.camera = m }
}

// WithSnapshot serves the normalized classifier input under /api/snapshot.
func WithSnapshot(source frame.Source, quality float64) Option {
	return func(s *Server) {
		s.source = source
		s.normalizer = frame.NewNormalizer(quality)
	}
}

// WithMetrics serves h under /metrics. Passing nil uses the default
// Prometheus registry.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		if h == nil {
			h = promhttp.Handler()
		}
		s.metrics = h
	}
}

// WithStaticDir serves dashboard assets from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// NewServer creates a new web dashboard server
func NewServer(addr string, ctrl Controller, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		ctrl:    ctrl,
		logger:  slog.Default(),
		history: make([]Announcement, 0, maxHistory),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.eventsHub = hub.New("events", hub.WithReplay(1), hub.WithLogger(s.logger))
	s.predictionsHub = hub.New("predictions", hub.WithLogger(s.logger))

	app := fiber.New(fiber.Config{
		AppName:               "Pointdex Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleGetEvents)
	api.Post("/suspend/:reason", s.handleSuspend)
	api.Post("/resume/:reason", s.handleResume)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/snapshot", s.handleSnapshot)

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/predictions", websocket.New(s.handlePredictionsWS))

	s.app = app
	return s
}

// SetController attaches the loop after construction. The loop takes the
// server as its presenter, so one of the two is built first.
func (s *Server) SetController(ctrl Controller) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.ctrl = ctrl
}

func (s *Server) controller() Controller {
	s.ctrlMu.RLock()
	defer s.ctrlMu.RUnlock()
	return s.ctrl
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is done, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.eventsHub.Run(ctx)
	go s.predictionsHub.Run(ctx)

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Present implements loop.Presenter. The dashboard does not hold the loop:
// release is called as soon as the event is queued.
func (s *Server) Present(ev stability.ReadyEvent, release func()) {
	defer release()

	entry := Announcement{
		Time:  ev.Timestamp.Format("15:04:05"),
		Event: ev,
	}

	s.historyMu.Lock()
	s.history = append(s.history, entry)
	if len(s.history) > maxHistory {
		s.history = s.history[1:]
	}
	s.historyMu.Unlock()

	if err := s.eventsHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("broadcast event", "error", err)
	}
}

// ObservePrediction implements loop.Observer.
func (s *Server) ObservePrediction(p loop.Prediction) {
	if err := s.predictionsHub.BroadcastJSON(p); err != nil {
		s.logger.Warn("broadcast prediction", "error", err)
	}
}

// History returns a copy of the announcement buffer.
func (s *Server) History() []Announcement {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]Announcement, len(s.history))
	copy(out, s.history)
	return out
}

// EventsHub returns the ready-event hub
func (s *Server) EventsHub() *hub.Hub {
	return s.eventsHub
}

// PredictionsHub returns the prediction hub
func (s *Server) PredictionsHub() *hub.Hub {
	return s.predictionsHub
}

var (
	_ loop.Presenter = (*Server)(nil)
	_ loop.Observer  = (*Server)(nil)
)
