// Package httpapi serves the Orbit auth endpoints over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/dmitrijs2005/orbit/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// AuthService is the business logic behind the /auth routes.
type AuthService interface {
	AuthorizeURL(provider, redirectURI, state string) (string, error)
	OAuthCallback(ctx context.Context, provider, code, redirectURI string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*services.Me, error)
	Unlink(ctx context.Context, userID, provider string) error
	VerifyAccessToken(token string) (string, error)
}

type Server struct {
	address  string
	auth     AuthService
	logger   logging.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
	health   func(context.Context) error
}

type Option func(*Server)

// WithHealthCheck makes /health report 503 while fn fails.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

func NewServer(addr string, l logging.Logger, auth AuthService, reg *prometheus.Registry, opts ...Option) *Server {
	s := &Server{
		address:  addr,
		auth:     auth,
		logger:   l.With("module", "http_server"),
		metrics:  NewMetrics(reg),
		gatherer: reg,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/oauth/callback", s.handleOAuthCallback)
		r.Get("/oauth/{provider}/url", s.handleAuthorizeURL)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/me", s.handleMe)
			r.Delete("/oauth/{provider}", s.handleUnlink)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
