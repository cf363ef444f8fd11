package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/lookup"
	"github.com/muurk/modelfinder/internal/version"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for in-flight work
const DefaultShutdownTimeout = 10 * time.Second

const maxIdleUpstreamConns = 16

// Config holds the server configuration
type Config struct {
	Host      string
	Port      int
	Endpoint  string        // Product endpoint queried by the server
	Timeout   time.Duration // Per-lookup timeout
	Advertise bool          // Register the service over mDNS
	Instance  string        // mDNS instance name (default: modelfinder-<hostname>)
	LogLevel  string
}

// Server serves lookups over HTTP and WebSocket
type Server struct {
	config     *Config
	client     *lookup.Client
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	mdns       *zeroconf.Server

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = lookup.DefaultEndpoint
	}
	timeout := lookup.DefaultTimeout
	if config.Timeout > 0 {
		timeout = config.Timeout
	}
	client := lookup.NewClientWithURL(endpoint)
	client.SetHTTPClient(newUpstreamClient(timeout))
	client.SetUserAgent("modelfinder-server/" + version.Version)

	s := &Server{
		config:      config,
		client:      client,
		activeConns: make(map[string]*websocket.Conn),
	}
	s.router = s.newRouter()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// newUpstreamClient builds the HTTP client shared by every lookup. Concurrent
// requests all go to one host, so more idle connections are kept than the
// default two.
func newUpstreamClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleUpstreamConns
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Endpoint returns the product endpoint the server queries
func (s *Server) Endpoint() string {
	return s.client.Endpoint
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until a shutdown
// signal arrives or the listener fails.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))

	logging.Info("Starting modelfinder server",
		zap.String("addr", addr),
		zap.String("endpoint", s.client.Endpoint),
		zap.Duration("timeout", s.client.HTTPClient.Timeout),
		zap.String("log_level", s.config.LogLevel),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on listener until Shutdown is called
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
	)

	if s.config.Advertise {
		port := s.config.Port
		if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
			port = tcpAddr.Port
		}
		if err := s.advertise(port); err != nil {
			// Serving still works without mDNS
			logging.Warn("Failed to advertise over mDNS", zap.Error(err))
		}
	}

	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
	s.mu.Unlock()

	// Stop accepting new requests; hijacked WebSocket connections are closed below
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Error("Error shutting down HTTP server", zap.Error(err))
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.mu.Unlock()

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
	}

	logging.Sync()

	return err
}

// GetActiveConnections returns the number of open WebSocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) trackConn(remoteAddr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
}

func (s *Server) untrackConn(remoteAddr string) {
	s.mu.Lock()
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()
}
