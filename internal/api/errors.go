package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/engine"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// errBadQuery marks malformed query or path parameters.
var errBadQuery = errors.New("invalid request parameter")

type errorKind struct {
	sentinel error
	title    string
	status   int
	// detail exposes the wrapped message instead of the sentinel's own text.
	detail bool
}

var errorKinds = []errorKind{
	{sentinel: engine.ErrInvalidInput, status: fiber.StatusBadRequest, title: "invalid_input", detail: true},
	{sentinel: engine.ErrInvalidAmount, status: fiber.StatusBadRequest, title: "invalid_amount"},
	{sentinel: engine.ErrSameAccount, status: fiber.StatusBadRequest, title: "same_account"},
	{sentinel: engine.ErrInsufficientFunds, status: fiber.StatusBadRequest, title: "insufficient_funds"},
	{sentinel: engine.ErrForbidden, status: fiber.StatusForbidden, title: "forbidden"},
	{sentinel: engine.ErrConflict, status: fiber.StatusConflict, title: "conflict"},
	{sentinel: auth.ErrMissingToken, status: fiber.StatusUnauthorized, title: "unauthorized"},
	{sentinel: auth.ErrInvalidToken, status: fiber.StatusUnauthorized, title: "unauthorized"},
	{sentinel: auth.ErrCSRFMissing, status: fiber.StatusForbidden, title: "csrf_failed"},
	{sentinel: auth.ErrCSRFMismatch, status: fiber.StatusForbidden, title: "csrf_failed"},
	{sentinel: common.ErrNotFound, status: fiber.StatusNotFound, title: "not_found"},
	{sentinel: errBadQuery, status: fiber.StatusBadRequest, title: "invalid_input", detail: true},
}

// writeError renders err with the status its kind maps to. Unknown errors
// become a generic 500 and are logged, never echoed.
func writeError(c *fiber.Ctx, err error) error {
	for _, kind := range errorKinds {
		if !errors.Is(err, kind.sentinel) {
			continue
		}
		message := kind.sentinel.Error()
		if kind.detail {
			message = err.Error()
		}
		return respond(c, kind.status, kind.title, message)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return respond(c, fiberErr.Code, "request_failed", fiberErr.Message)
	}

	common.LogError(err, "Request failed", common.Fields{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": requestID(c),
	})
	return respond(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

func respond(c *fiber.Ctx, status int, title, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Code:    strconv.Itoa(status),
		Title:   title,
		Message: message,
	})
}

// errorHandler is installed as the fiber.Config ErrorHandler.
func errorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
