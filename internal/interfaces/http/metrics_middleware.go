package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestMetrics registra cada petición atendida.
type RequestMetrics interface {
	HTTPRequest(method, route, status string, elapsed time.Duration)
}

// MetricsMiddleware mide por ruta registrada (no por path) para acotar la cardinalidad.
func MetricsMiddleware(m RequestMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(c.Method(), route, strconv.Itoa(status), time.Since(start))
		return err
	}
}
