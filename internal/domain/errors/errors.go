package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrQueueFull          = errors.New("lane at capacity")
	ErrRetryExhausted     = errors.New("retry attempts exhausted")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDispatcherStopped  = errors.New("dispatcher stopped")
)

// QueueFullError is the backpressure signal returned on admission when the
// target lane is at capacity. It matches ErrQueueFull under errors.Is.
type QueueFullError struct {
	Lane string
}

func (e QueueFullError) Error() string {
	return fmt.Sprintf("lane %s at capacity", e.Lane)
}

func (e QueueFullError) Is(target error) bool {
	return target == ErrQueueFull
}
