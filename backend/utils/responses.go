package utils

import (
	"errors"
	"net/http"

	"cognitory/backend/oops"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SuccessResponse is the envelope for successful answers
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse is the envelope for failures. Error holds either a short
// status text or, for validation failures, the per-field messages.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   interface{} `json:"error"`
}

// Success writes a successful JSON answer
func Success(c *fiber.Ctx, status int, message string, data interface{}, meta ...interface{}) error {
	response := SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	}

	if len(meta) > 0 {
		response.Meta = meta[0]
	}

	return c.Status(status).JSON(response)
}

// OK writes a 200 answer
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusOK, message, data)
}

// Created writes a 201 answer
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusCreated, message, data)
}

// Paginated writes a list together with its pagination meta
func Paginated(c *fiber.Ctx, message string, data interface{}, meta PageMeta) error {
	return Success(c, fiber.StatusOK, message, data, meta)
}

// Error writes a failure envelope
func Error(c *fiber.Ctx, status int, message string, details ...interface{}) error {
	response := ErrorResponse{
		Success: false,
		Message: message,
		Error:   http.StatusText(status),
	}

	if len(details) > 0 && details[0] != nil {
		response.Error = details[0]
	}

	return c.Status(status).JSON(response)
}

// Fail converts any error returned by a handler into the envelope. Only
// unexpected failures are logged; their message is never shown to clients.
func Fail(c *fiber.Ctx, err error) error {
	var asOops *oops.Error
	switch {
	case errors.As(err, &asOops) && asOops.Status < http.StatusInternalServerError:
		if asOops.Fields != nil {
			return Error(c, asOops.Status, asOops.Message, asOops.Fields)
		}
		return Error(c, asOops.Status, asOops.Message)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Error(c, fiber.StatusNotFound, "Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Error(c, fiber.StatusConflict, "Duplicate entry")
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < http.StatusInternalServerError {
		return Error(c, fiberErr.Code, fiberErr.Message)
	}

	log.Error().
		Stack().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("Request failed")
	return Error(c, fiber.StatusInternalServerError, "Internal server error")
}

// ErrorHandler renders errors that escape handlers, e.g. unknown routes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Fail(c, err)
}
