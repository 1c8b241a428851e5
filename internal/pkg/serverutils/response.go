package serverutils

import (
	"errors"

	ierr "chatbot-billing-be/internal/pkg/errors"

	"github.com/gofiber/fiber/v2"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *Response[T] {
	return &Response[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *Response[any] {
	return &Response[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorHandlerMiddleware turns errors returned by later handlers into the
// response envelope. Marked domain errors keep their status; fiber errors keep
// theirs; anything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		resp := &Response[map[string]string]{
			Success: false,
			Code:    fiber.StatusBadRequest,
			Message: ve.Error(),
			Data:    ve.Fields,
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}

	status := ierr.HTTPStatusFromErr(err)
	message := ierr.DisplayMessage(err)
	if status >= fiber.StatusInternalServerError {
		message = "Internal server error"
	}
	return ctx.Status(status).JSON(ErrorResponse(status, message))
}
