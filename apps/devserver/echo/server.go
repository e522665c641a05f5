// Package echoapi is a local stand-in of the EduCloud REST API, used for development and integration tests.
package echoapi

import (
	"context"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/transport"
)

const passwordResetTimeout = 3 * 24 * time.Hour

type (
	Options struct {
		Config         *core.Config
		DB             *memdb.DB
		MailSvc        core.EmailService
		Logger         core.Logger
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		auth       *authenticator
		resets     *memdb.ResetTokens
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	validate, translator := core.NewValidator()
	s := &server{
		opts:       opts,
		app:        echo.New(),
		auth:       newAuthenticator(opts.Config.DevServer),
		resets:     memdb.NewResetTokens(opts.Config.DevServer.SecretKey, passwordResetTimeout),
		validate:   validate,
		translator: translator,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.opts.Config.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.opts.Config.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, transport.HeaderTenant, echo.HeaderXRequestID},
	}))
	if debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.translator)

	s.app.GET("/", home)

	api := s.app.Group("/api")
	api.POST("/auth/register", s.register)

	tg := api.Group("", tenantMiddleware(s.opts.DB))
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)
	authed := []echo.MiddlewareFunc{jwt, tenantTokenMiddleware}

	registerAuthAPI(tg, s, authed...)
	registerSchoolAPI(tg, s, authed...)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Config.DevServer.Addr); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the EduCloud dev API!")
}

// bindAndValidate binds the request body to data and validates it.
func (s *server) bindAndValidate(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return err
	}
	return s.validate.Struct(data)
}
