package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
)

// Error is the JSON error body returned by every endpoint.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func badRequest(code, msg string) Error {
	return Error{Status: fiber.StatusBadRequest, Code: code, Message: msg}
}

// classify maps an engine error onto a status and a stable code.
func classify(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return Error{Status: fiberErr.Code, Code: "http_error", Message: fiberErr.Message}
	}

	e := Error{Message: err.Error()}
	switch {
	case errors.Is(err, vesting.ErrInvalidSchedule):
		e.Status, e.Code = fiber.StatusBadRequest, "invalid_schedule"
	case errors.Is(err, vesting.ErrInvalidInput):
		e.Status, e.Code = fiber.StatusBadRequest, "invalid_input"
	case errors.Is(err, vesting.ErrUnauthorized):
		e.Status, e.Code = fiber.StatusForbidden, "unauthorized"
	case errors.Is(err, vesting.ErrAccountNotFound):
		e.Status, e.Code = fiber.StatusNotFound, "account_not_found"
	case errors.Is(err, vesting.ErrClaimNotFound):
		e.Status, e.Code = fiber.StatusNotFound, "claim_not_found"
	case errors.Is(err, vesting.ErrDuplicateAccount):
		e.Status, e.Code = fiber.StatusConflict, "duplicate_account"
	case errors.Is(err, vesting.ErrConcurrentClaim):
		e.Status, e.Code = fiber.StatusConflict, "concurrent_claim"
	case errors.Is(err, vesting.ErrNothingToClaim):
		e.Status, e.Code = fiber.StatusUnprocessableEntity, "nothing_to_claim"
	case errors.Is(err, vesting.ErrInsufficientFunds):
		e.Status, e.Code = fiber.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, vesting.ErrTransferFailed):
		e.Status, e.Code = fiber.StatusBadGateway, "transfer_failed"
	case errors.Is(err, vesting.ErrStoreClosed):
		e.Status, e.Code = fiber.StatusServiceUnavailable, "unavailable"
	default:
		e.Status, e.Code = fiber.StatusInternalServerError, "internal"
		e.Message = "internal server error"
	}
	return e
}

// ErrorHandler renders errors as Error bodies. Server-side failures are
// logged with the request path.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := classify(err)
		if e.Status >= fiber.StatusInternalServerError {
			logger.Error("api: request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", e.Status,
				"error", err,
			)
		}
		return c.Status(e.Status).JSON(e)
	}
}
