// Package apperr defines the domain error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrMissingIdentifyFields = errors.New("at least one of email, phone or client uid is required")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("conflict")
	ErrTransactionAborted    = errors.New("transaction aborted")
	ErrDataIntegrity         = errors.New("data integrity violation")
)

// Warning is an idempotent no-op outcome: the request was understood but nothing changed.
type Warning struct {
	Message string
	Status  int
}

func (w *Warning) Error() string { return w.Message }

// NewWarning returns a Warning rendered with the given HTTP status.
func NewWarning(status int, msg string) *Warning {
	return &Warning{Message: msg, Status: status}
}

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	var w *Warning
	switch {
	case errors.As(err, &w):
		return w.Status
	case errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingIdentifyFields), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for the error.
func Code(err error) string {
	var w *Warning
	switch {
	case errors.As(err, &w):
		return "W_NOOP"
	case errors.Is(err, ErrInvalidCredential):
		return "E_INVALID_CREDENTIAL"
	case errors.Is(err, ErrUnauthorized):
		return "E_FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "E_NOT_FOUND"
	case errors.Is(err, ErrMissingIdentifyFields):
		return "E_MISSING_IDENTIFY_FIELDS"
	case errors.Is(err, ErrInvalidInput):
		return "E_INVALID_PARAM"
	case errors.Is(err, ErrConflict):
		return "E_CONFLICT"
	case errors.Is(err, ErrTransactionAborted):
		return "E_TX_ABORTED"
	default:
		return "E_INTERNAL"
	}
}

// IsDomain reports whether err belongs to the taxonomy.
func IsDomain(err error) bool {
	var w *Warning
	if errors.As(err, &w) {
		return true
	}
	for _, e := range []error{
		ErrInvalidCredential, ErrUnauthorized, ErrNotFound, ErrMissingIdentifyFields,
		ErrInvalidInput, ErrConflict, ErrTransactionAborted, ErrDataIntegrity,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
