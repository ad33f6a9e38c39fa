package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/dossier/dataset"
)

const (
	DefaultAddr            = ":5001"
	defaultShutdownTimeout = 5 * time.Second
)

var (
	ErrManagerRequired    = errors.New("dataset manager is required")
	ErrDispatcherRequired = errors.New("dispatcher is required")
)

// Server serves the dataset API.
type Server struct {
	manager         *dataset.Manager
	dispatcher      *dataset.Dispatcher
	addr            string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

type Option func(*Server) error

func WithAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.shutdownTimeout = d
		return nil
	}
}

func NewServer(manager *dataset.Manager, dispatcher *dataset.Dispatcher, opts ...Option) (*Server, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	s := &Server{
		manager:         manager,
		dispatcher:      dispatcher,
		addr:            DefaultAddr,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "http")
	return s, nil
}

// Handler returns the API with its middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{datasetId}/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/{datasetId}/ask", s.handleAsk)
	mux.HandleFunc("GET /api/{datasetId}/stats", s.handleStats)
	mux.HandleFunc("GET /api/datasets", s.handleDatasets)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return s.recoveryMiddleware(s.loggingMiddleware(corsMiddleware(mux)))
}

// Start listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
