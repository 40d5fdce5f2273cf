package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
	"github.com/muurk/tramesniff/internal/version"
)

// DefaultPort is the feed port used when none is configured.
const DefaultPort = 8765

// requestTimeout bounds the plain HTTP endpoints. /ws is not affected.
const requestTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host      string
	Port      int // 0 picks a free port
	MaxFrames int // history kept for /frames, 0 for DefaultMaxFrames
}

// Server serves the frame feed over HTTP and WebSocket.
type Server struct {
	config     *Config
	hub        *Hub
	session    string
	limiter    *IPRateLimiter
	upgrader   websocket.Upgrader
	httpServer *http.Server
	wg         sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New creates a new Server instance
func New(config *Config) *Server {
	s := &Server{
		config:  config,
		hub:     NewHub(config.MaxFrames),
		session: uuid.NewString(),
		limiter: NewIPRateLimiter(RequestsPerMinute, BurstSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed is read-only and meant for local tools.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ready: make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the hub frames are published to.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Session returns the random id of this server instance. Clients use it to
// notice that a feed was restarted.
func (s *Server) Session() string {
	return s.session
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))
	r.Use(RateLimitMiddleware(s.limiter))

	r.Get("/ws", s.handleWebSocket)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/frames", s.handleFrames)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.runCleanup(cleanupCtx)

	logging.Info("Feed server listening",
		zap.String("addr", listener.Addr().String()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping feed server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("feed server failed: %w", err)
	}
}

// Ready is closed once Start has bound its listener.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("Invalid WebSocket upgrade request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogConnection(r.RemoteAddr, "websocket_upgraded")

	c := &client{
		conn:       conn,
		remoteAddr: r.RemoteAddr,
		send:       make(chan []byte, sendBuffer),
	}
	if !s.hub.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()

	c.readPump()
	s.hub.unregister(c)
	logging.LogConnection(r.RemoteAddr, "websocket_closed")
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.hub.Frames())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		version.Info
		Session string `json:"session"`
		Clients int    `json:"clients"`
		Frames  int    `json:"frames"`
	}{
		Info:    version.Get(),
		Session: s.session,
		Clients: s.hub.Clients(),
		Frames:  len(s.hub.Frames()),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write response", zap.Error(err))
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error closing listener", zap.Error(err))
	}

	// Hijacked WebSocket connections are not covered by http.Server.Shutdown.
	s.hub.closeAll()

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	return s.hub.Clients()
}
