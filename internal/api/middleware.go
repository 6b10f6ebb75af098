package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/auth"
	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	principalKey    = "principal"
)

func requestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// RequestID берёт X-Request-ID клиента или генерирует новый
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(requestIDHeader, id)
			return next(c)
		}
	}
}

// Recovery превращает панику обработчика в 500 и пишет стек в лог
func Recovery(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error("Panic recovered",
						zap.String("request_id", requestID(c)),
						zap.String("panic", fmt.Sprintf("%v", r)),
						zap.ByteString("stack", stack[:n]),
					)

					err = echo.NewHTTPError(http.StatusInternalServerError)
				}
			}()
			return next(c)
		}
	}
}

// AccessLog пишет строку лога на каждый запрос и отдаёт длительность в метрики
func AccessLog(logger *zap.Logger, m *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Статус должен быть записан до логирования
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			m.ObserveHTTP(req.Method, route, strconv.Itoa(status), latency.Seconds())

			fields := []zap.Field{
				zap.String("request_id", requestID(c)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("remote_ip", c.RealIP()),
			}
			if p, ok := principalFrom(c); ok {
				fields = append(fields, zap.Int64("user_id", p.UserID))
			}

			if status >= http.StatusInternalServerError {
				logger.Error("Request", fields...)
			} else {
				logger.Info("Request", fields...)
			}

			return nil
		}
	}
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter ограничение частоты запросов по IP клиента
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if v, ok := rl.visitors[key]; ok {
		v.seen = now
		return v.limiter
	}

	// Заодно чистим давно не появлявшихся клиентов
	for k, v := range rl.visitors {
		if now.Sub(v.seen) > 3*time.Minute {
			delete(rl.visitors, k)
		}
	}

	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{limiter: l, seen: now}
	return l
}

// Middleware отвечает 429, когда клиент исчерпал лимит
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.get(c.RealIP()).AllowN(rl.now(), 1) {
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please slow down.")
			}
			return next(c)
		}
	}
}

// Authenticate проверяет Bearer токен и кладёт участника в контекст запроса
func Authenticate(tokens Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required.")
			}

			p, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				msg := "Invalid token."
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "Session expired, please log in again."
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg)
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// RequireStaff пропускает только сотрудников
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok || !p.IsStaff() {
				return echo.NewHTTPError(http.StatusForbidden, "Staff access required.")
			}
			return next(c)
		}
	}
}

func principalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}
