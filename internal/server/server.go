package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strayspot/territories/internal/handler/health"
	"github.com/strayspot/territories/internal/territory"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store     Store
	Estimator *territory.Estimator
	Tokens    *Tokens
	Metrics   *Metrics
	Broker    *Broker
	Checks    map[string]health.Checker

	CORSOrigins   []string
	AuthRateLimit int
	SPADir        string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, d Deps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(logger, d),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the full middleware stack and route table.
func NewRouter(logger *slog.Logger, d Deps) chi.Router {
	if d.Broker == nil {
		d.Broker = NewBroker()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger, d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(d.CORSOrigins))

	addRoutes(r, logger, d)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
