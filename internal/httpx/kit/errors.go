package kit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/logx"
)

var kitLogger = logx.GetScope("httpx")

// APIError is a request-level error raised by handlers before reaching a service.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(httpStatus int, code, msg string, details any) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Message: msg, Details: details}
}

func BadRequest(msg string, details any) error {
	return NewAPIError(http.StatusBadRequest, "E_INVALID_PARAM", msg, details)
}

func NotFound(msg string) error { return NewAPIError(http.StatusNotFound, "E_NOT_FOUND", msg, nil) }

func InternalError(msg string, details any) error {
	return NewAPIError(http.StatusInternalServerError, "E_INTERNAL", msg, details)
}

// ErrorHandler renders every error returned by a handler as a Failure or
// Warning envelope. 5xx responses never carry internal detail.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return failure(c, fe.Code, httpStatusToCode(fe.Code), fe.Message, nil)
		}

		var ae *APIError
		if errors.As(err, &ae) {
			if ae.HTTPStatus >= http.StatusInternalServerError {
				kitLogger.Error("request failed", zap.String("path", c.Path()), zap.String("request_id", RequestID(c)), zap.Error(err))
				return failure(c, ae.HTTPStatus, ae.Code, ae.Message, nil)
			}
			return failure(c, ae.HTTPStatus, ae.Code, ae.Message, ae.Details)
		}

		var w *apperr.Warning
		if errors.As(err, &w) {
			return envelope(c, w.Status, StatusWarning, w.Message, nil, nil, fiber.Map{"code": apperr.Code(err)})
		}

		status := apperr.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			lvl := kitLogger.Warn
			if errors.Is(err, apperr.ErrDataIntegrity) || !errors.Is(err, apperr.ErrTransactionAborted) {
				lvl = kitLogger.Error
			}
			lvl("request failed", zap.String("path", c.Path()), zap.String("request_id", RequestID(c)), zap.Error(err))
			return failure(c, status, apperr.Code(err), "Internal Server Error", nil)
		}
		return failure(c, status, apperr.Code(err), publicMessage(err), nil)
	}
}

// publicMessage is the message of the outermost taxonomy error, with the
// detail services attach after a colon.
func publicMessage(err error) string {
	if errors.Is(err, apperr.ErrInvalidInput) || errors.Is(err, apperr.ErrMissingIdentifyFields) {
		return err.Error()
	}
	for _, e := range []error{apperr.ErrInvalidCredential, apperr.ErrUnauthorized, apperr.ErrNotFound, apperr.ErrConflict} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return err.Error()
}

func failure(c *fiber.Ctx, status int, code, msg string, details any) error {
	e := fiber.Map{"code": code}
	if details != nil {
		e["details"] = details
	}
	return envelope(c, status, StatusFailure, msg, nil, nil, e)
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "E_INVALID_PARAM"
	case http.StatusNotFound:
		return "E_NOT_FOUND"
	case http.StatusUnauthorized:
		return "E_UNAUTHORIZED"
	case http.StatusForbidden:
		return "E_FORBIDDEN"
	case http.StatusTooManyRequests:
		return "E_RATE_LIMITED"
	default:
		if status >= 500 {
			return "E_INTERNAL"
		}
		return "E_UNKNOWN"
	}
}
