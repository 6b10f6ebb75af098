package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps всё, что нужно HTTP серверу
type Deps struct {
	Booking      Booker
	Lifecycle    Lifecycle
	Availability Availability
	Queries      AppointmentQueries
	Accounts     Accounts
	Tokens       Tokens
	DB           Pinger
	Gatherer     prometheus.Gatherer
	Metrics      *metrics.Collector
	Logger       *zap.Logger

	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	echo   *echo.Echo
	addr   string
	logger *zap.Logger
}

// NewServer собирает echo с middleware и маршрутами
func NewServer(addr string, d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(d.Logger)

	e.Use(RequestID())
	e.Use(AccessLog(d.Logger, d.Metrics))
	e.Use(Recovery(d.Logger))

	h := &Handlers{
		booking:      d.Booking,
		lifecycle:    d.Lifecycle,
		availability: d.Availability,
		queries:      d.Queries,
		accounts:     d.Accounts,
		tokens:       d.Tokens,
		logger:       d.Logger,
	}

	e.GET("/healthz", healthz(d.DB))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1")
	if d.RateLimitRPS > 0 {
		v1.Use(NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst).Middleware())
	}

	v1.POST("/auth/register", h.register)
	v1.POST("/auth/login", h.login)

	authed := v1.Group("", Authenticate(d.Tokens))
	authed.GET("/slots", h.listSlots)
	authed.POST("/appointments", h.createAppointment)
	authed.GET("/appointments", h.listMyAppointments)
	authed.GET("/appointments/:id", h.getAppointment)
	authed.POST("/appointments/:id/cancel", h.transition(h.lifecycle.Cancel))

	admin := authed.Group("/admin", RequireStaff())
	admin.GET("/appointments", h.listAllAppointments)
	admin.GET("/appointments/counts", h.statusCounts)
	admin.POST("/appointments/:id/confirm", h.transition(h.lifecycle.Confirm))
	admin.POST("/appointments/:id/cancel", h.transition(h.lifecycle.Cancel))
	admin.POST("/appointments/:id/complete", h.transition(h.lifecycle.Complete))

	return &Server{echo: e, addr: addr, logger: d.Logger}
}

func healthz(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Handler для тестов и встраивания
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start блокируется до остановки сервера
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
