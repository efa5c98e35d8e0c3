package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	appmw "habitarc/internal/middleware"
	"habitarc/internal/ratelimit"
	httprouters "habitarc/internal/transport/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type RateLimits struct {
	Store ratelimit.Store
	Auth  ratelimit.Policy
	Demo  ratelimit.Policy
}

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	limits  RateLimits
	host    string
	port    string
}

func New(log *slog.Logger, host, port string, routers *httprouters.Routers, limits RateLimits) *Server {
	e := echo.New()
	e.HideBanner = true

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	e.Use(appmw.PrometheusMetrics)

	return &Server{
		log:     log,
		e:       e,
		routers: routers,
		limits:  limits,
		host:    host,
		port:    port,
	}
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(fmt.Sprintf(":%s", s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", op, "http server")

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	authLimit := appmw.RateLimit(s.log, s.limits.Store, s.limits.Auth, "auth", appmw.PerIPAndPath)
	demoLimit := appmw.RateLimit(s.log, s.limits.Store, s.limits.Demo, "demo", appmw.DemoPerIP)

	s.e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.e.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.routers.Register, authLimit)
			authGroup.POST("/login", s.routers.Login, authLimit)
			authGroup.POST("/refresh", s.routers.Refresh, authLimit)
			authGroup.POST("/guest", s.routers.Guest, authLimit)
			authGroup.POST("/logout", s.routers.Logout, s.routers.AuthRequired)
			authGroup.GET("/me", s.routers.Me, s.routers.AuthRequired)
		}

		demoGroup := api.Group("/demo")
		{
			demoGroup.POST("/start", s.routers.DemoStart, demoLimit)
			demoGroup.GET("/status", s.routers.DemoStatus, s.routers.AuthRequired)
			demoGroup.POST("/convert", s.routers.DemoConvert, s.routers.AuthRequired)
		}
	}
}
