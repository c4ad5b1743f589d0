package utils

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	RespondWithStatus(c, http.StatusOK, data, message)
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	RespondWithStatus(c, http.StatusCreated, data, message)
}

func RespondWithStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// statusFor maps a service error onto an HTTP status. The order matters:
// AccountNotFound and NotFound both yield 404 but keep their own message.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidConfirmation),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrCyclicRelationship):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateTransaction), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func HandleServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		if logger, ok := c.Get("logger"); ok {
			logger.(*zap.Logger).Error("request failed",
				zap.String("trace_id", traceID(c)),
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		RespondError(c, code, "Internal server error")
		return
	}
	RespondError(c, code, publicMessage(err))
}

// publicMessage upper-cases the first letter of the wrapped error text,
// e.g. "validation error: points must be >= 0".
func publicMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
