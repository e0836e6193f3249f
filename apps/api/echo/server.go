package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
	"github.com/fortytworoma/monitor/metrics"
)

type (
	// ServerDeps groups everything the HTTP layer needs; main wires it up.
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		AnnounceSvc announce.ServiceInterface
		BannerSvc   banner.ServiceInterface
		ClusterSvc  cluster.ServiceInterface
		EventSvc    event.ServiceInterface
		IdentitySvc identity.ServiceInterface
		AuditLog    core.ActionLog
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil) // interface compliance check

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf
	initAuth(conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metrics.EchoMiddleware(httpStatusOf))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer(conf)

	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	jwt := middleware.JWTWithConfig(appJWTConfig)
	registerDashboardAPI(s.app, s.deps)
	registerStaffAPI(s.app, jwt, s.deps)
}

// Start starts the server and reports a failed listener on Errors.
func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
