package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Veraticus/bloomfi/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	localRequestID  = "request_id"
	localUserID     = "user_id"
)

// requestLogger tags each request with an id and logs one line when it finishes.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		id := c.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(requestIDHeader, id)

		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		slog.Info("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
			"request_id", id)
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// requireUser resolves the caller from the Authorization header.
func requireUser(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		userID, err := verifier.Verify(token)
		if err != nil {
			slog.Debug("Rejected bearer token", "request_id", requestID(c), "error", err)
			return err
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// requireCSRF enforces the double-submit check on mutations.
func requireCSRF() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.CheckCSRF(c.Cookies(auth.CSRFCookieName), c.Get(auth.CSRFHeaderName)); err != nil {
			return err
		}
		return c.Next()
	}
}

func userID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localUserID).(int64)
	return id
}
