package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/Simplici0/margingate/internal/pricing"
	"github.com/Simplici0/margingate/internal/quote"
	"github.com/Simplici0/margingate/internal/store"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// WrapRedis maps Redis errors to AppError with a gateway status; a missing
// key becomes 404.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// FromDomain maps an engine error to the status and message a client sees.
// Unknown errors become a 500 with SystemErrorMessage so internals do not leak.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	var (
		app     *AppError
		valErr  *pricing.ValidationError
		rateErr *pricing.InvalidRateError
		cfgErr  *pricing.ConfigurationError
		stale   *quote.StaleStateError
	)
	switch {
	case errors.As(err, &stale):
		return New(err, http.StatusConflict, stale.Error())
	case errors.As(err, &valErr):
		return New(err, http.StatusUnprocessableEntity, valErr.Error())
	case errors.As(err, &rateErr):
		return New(err, http.StatusUnprocessableEntity, rateErr.Error())
	case errors.As(err, &cfgErr):
		return New(err, http.StatusConflict, cfgErr.Error())
	case errors.Is(err, quote.ErrLineNotFound):
		return New(err, http.StatusNotFound, "line item not found")
	case errors.Is(err, store.ErrNotFound):
		return New(err, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrVersionConflict):
		return New(err, http.StatusConflict, "quote was modified concurrently, reload and retry")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusServiceUnavailable, "request cancelled")
	case errors.As(err, &app):
		return app
	}
	return New(err, http.StatusInternalServerError, SystemErrorMessage)
}
