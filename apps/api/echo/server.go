// Package echoapi serves the school administration HTTP API.
package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		// Reload is called after the remote configuration changed.
		Reload func()
		// Shutdown is called when a handler hits a core.shutdown error.
		Shutdown func()
	}

	Deps struct {
		SchoolSvc *school.Service
		UserSvc   *user.Service
		Local     core.KeyValueStore
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		deps *Deps
		auth *authenticator
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options, deps *Deps) Server {
	s := &server{
		opts: opts,
		deps: deps,
		auth: &authenticator{conf: opts.Conf, users: deps.UserSvc},
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.Shutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))

	registerAuthAPI(v1, jwt, s.auth, s.opts.Validate)
	registerSchoolAPI(v1.Group("", jwt), s.auth, s.deps.SchoolSvc, s.opts.Validate)
	registerStudentAPI(v1.Group("/students", jwt), s.auth, s.deps.SchoolSvc, s.opts.Validate)
	registerRecordAPI(v1.Group("", jwt), s.auth, s.deps.SchoolSvc, s.opts.Validate)
	registerUserAPI(v1.Group("/users", jwt), s.auth, s.deps.UserSvc)
	registerConfigAPI(v1.Group("/config", jwt, s.auth.admins()), s.deps.SchoolSvc, s.deps.Local, s.opts.Validate, s.opts.Reload)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Secundaria API")
}
