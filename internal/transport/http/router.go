package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/metrics"
	"grateful.app/notifier/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, m *metrics.Metrics, viewToken string, allowOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	// Health and metrics (no auth required)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	v1 := e.Group("")
	v1.Use(mw.ViewAuth(viewToken))

	v1.GET("/notifications", h.ListNotifications)
	v1.GET("/notifications/unread-count", h.GetUnreadCount)
	v1.POST("/notifications/read-all", h.MarkAllRead)
	v1.POST("/notifications/refresh", h.Refresh)
	v1.POST("/notifications/:id/read", h.MarkRead)
	v1.POST("/notifications/:id/toggle", h.Toggle)
	v1.POST("/profiles/:userId", h.PublishProfile)

	// SSE endpoint
	v1.GET("/notifications/stream", h.Stream)

	return e
}
