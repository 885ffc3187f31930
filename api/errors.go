package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(err error) error {
	return &badRequestError{msg: err.Error()}
}

// statusFor maps domain errors to HTTP status codes. Upstream failures are
// reported as 502 so clients can tell them apart from their own mistakes.
func statusFor(err error) int {
	var (
		bad *badRequestError
		fe  *fiber.Error
	)

	switch {
	case errors.As(err, &bad):
		return fiber.StatusBadRequest
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, bazi.ErrBirthOutOfRange):
		return fiber.StatusBadRequest
	case storage.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, calendar.ErrGateway),
		errors.Is(err, chat.ErrChatRequest),
		errors.Is(err, reading.ErrInvalidChart),
		errors.Is(err, bazi.ErrMalformedPillar),
		errors.Is(err, bazi.ErrUnknownStem):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every handler error as an ErrorResponse.
func errorHandler(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal server error"
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
