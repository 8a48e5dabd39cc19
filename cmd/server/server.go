package main

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/router"
	"github.com/iliyamo/seat-booking/internal/service"
)

// newServer builds the echo instance with every route registered.  rdb may
// be nil, in which case the response cache and rate limiter pass through.
func newServer(cfg config.Config, st *stores, broker *queue.Client, inv service.CacheInvalidator, rdb *redis.Client, log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"component": "http",
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("request")
			return nil
		},
	}))

	events := service.NewEventService(st.events, st.seats, st.waitlist, st.history, inv, log)
	producer := service.NewEnqueuer(broker, cfg.BookingQueue, log)

	public := handler.NewPublicHandler(events, log)
	router.RegisterRoutes(e, &handler.HealthHandler{Broker: broker, Ping: st.ping})
	router.RegisterPublic(e, public)
	router.RegisterCustomer(e, handler.NewBookingHandler(producer, log), public, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(events, log), cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))
	return e
}
