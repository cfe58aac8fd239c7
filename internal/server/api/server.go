// Package api exposes the authentication and user endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is the user management the handlers need.
type UserService interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.UserSummary, error)
	Profile(ctx context.Context, id string) (*models.UserSummary, error)
	List(ctx context.Context) ([]models.UserSummary, error)
	Update(ctx context.Context, id string, in services.UpdateUserInput) (*models.UserSummary, error)
	Delete(ctx context.Context, id string) error
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Authenticate(ctx context.Context, accessToken string) (services.Caller, error)
}

// Admitter decides whether a client may proceed.
type Admitter interface {
	Admit(clientID string) bool
	Window() time.Duration
}

type Options struct {
	Address string
	Logger  logging.Logger

	Users UserService
	Auth  AuthService

	// ProfileThrottle guards the /users/profile routes, AuthThrottle guards
	// login and refresh.
	ProfileThrottle Admitter
	AuthThrottle    Admitter

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	address         string
	logger          logging.Logger
	users           UserService
	auth            AuthService
	profileThrottle Admitter
	authThrottle    Admitter
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

func NewServer(opts Options) (*Server, error) {
	if opts.Users == nil || opts.Auth == nil {
		return nil, errors.New("api: user and auth services are required")
	}
	if opts.ProfileThrottle == nil || opts.AuthThrottle == nil {
		return nil, errors.New("api: throttles are required")
	}
	if opts.Metrics == nil {
		return nil, errors.New("api: metrics are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	return &Server{
		address:         opts.Address,
		logger:          opts.Logger.With("module", "http_server"),
		users:           opts.Users,
		auth:            opts.Auth,
		profileThrottle: opts.ProfileThrottle,
		authThrottle:    opts.AuthThrottle,
		metrics:         opts.Metrics,
		gatherer:        opts.Gatherer,
		requestTimeout:  opts.RequestTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Logging wraps Recover so a panicking request is still logged and timed.
	r.Use(
		RequestID(),
		s.Logging(),
		s.Recover(),
		Timeout(s.requestTimeout),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.createUser)
		r.Get("/", s.listUsers)

		r.Group(func(r chi.Router) {
			r.Use(s.Throttle("auth", s.authThrottle))
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.Throttle("profile", s.profileThrottle))
			r.Get("/profile", s.withCaller(s.getProfile))
			r.Put("/profile", s.withCaller(s.updateProfile))
			r.Delete("/profile", s.withCaller(s.deleteProfile))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{StatusCode: http.StatusNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{StatusCode: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
