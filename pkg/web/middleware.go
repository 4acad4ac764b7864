package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/internal/log"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestID reuses the caller's X-Request-ID or assigns a fresh UUID.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// RequestIDFrom returns the ID assigned by the request ID middleware.
func RequestIDFrom(c *fiber.Ctx) string {
	id, ok := c.Locals(requestIDKey).(string)
	if !ok || id == "" {
		return "unknown"
	}
	return id
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// Websocket sessions are logged by their handlers.
		if strings.HasPrefix(c.Path(), "/ws") {
			return err
		}

		status := c.Response().StatusCode()
		args := []any{
			"request_id", RequestIDFrom(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= 500:
			log.Error("request", args...)
		case status >= 400:
			log.Warn("request", args...)
		default:
			log.Debug("request", args...)
		}
		return err
	}
}
