package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/internal/queue"
	"tangled.org/atscan.net/reviewscan/internal/types"
)

// Server serves reports and accepts evaluation requests over HTTP
type Server struct {
	scanner    *reviewscan.Scanner
	queue      *queue.Queue
	hub        *Hub
	logger     types.Logger
	addr       string
	config     *Config
	startTime  time.Time
	origins    *originPolicy
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// Config configures the server
type Config struct {
	Addr            string
	EnableWebSocket bool
	EnableMetrics   bool
	Version         string
	Logger          types.Logger

	// AllowedOrigins lists browser origins ("https://example.org") besides
	// the server's own host that may use the API and the verdict stream.
	// Empty keeps the read API public; "*" allows any origin everywhere.
	AllowedOrigins []string
}

// New creates a new HTTP server. q may be nil, submissions are then refused.
func New(scanner *reviewscan.Scanner, q *queue.Queue, config *Config) *Server {
	if config.Version == "" {
		config.Version = "dev"
	}
	logger := config.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	s := &Server{
		scanner:   scanner,
		queue:     q,
		hub:       NewHub(defaultReplay),
		logger:    logger,
		addr:      config.Addr,
		config:    config,
		startTime: time.Now(),
		origins:   newOriginPolicy(config.AllowedOrigins),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}

	s.httpServer = &http.Server{
		Addr:    config.Addr,
		Handler: s.createHandler(),
	}

	return s
}

// Handler returns the HTTP handler with all routes
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the verdict event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// createHandler creates the HTTP handler with all routes
func (s *Server) createHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handleStatus())
	mux.HandleFunc("GET /company/{id}", s.handleCompany())
	mux.HandleFunc("GET /company/{id}/explain", s.handleExplain())
	mux.HandleFunc("POST /company/{id}/submit", s.handleSubmit())
	mux.HandleFunc("GET /queue", s.handleQueue())

	if s.config.EnableWebSocket {
		mux.HandleFunc("GET /ws", s.handleWebSocket())
	}

	if s.config.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			s.handleRoot()(w, r)
			return
		}
		sendJSON(w, 404, map[string]string{"error": "not found"})
	})

	return s.cors(mux)
}
