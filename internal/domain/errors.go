package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested data does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPoint marks a point rejected by server-side validation.
	ErrInvalidPoint = errors.New("invalid point")
	// ErrClientClosed is returned by a telemetry client after Close.
	ErrClientClosed = errors.New("telemetry client closed")
	// ErrDuplicateBatch is returned by a repository for a batch id it has already stored.
	ErrDuplicateBatch = errors.New("duplicate batch")
	// ErrUnauthorized is returned when ingestion credentials are missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorKind classifies delivery failures.
type ErrorKind string

const (
	KindConfig        ErrorKind = "config"
	KindNetwork       ErrorKind = "network"
	KindTimeout       ErrorKind = "timeout"
	KindSerialization ErrorKind = "serialization"
	KindServer        ErrorKind = "server"
	KindOther         ErrorKind = "other"
)

// DeliveryError is returned by transports when a batch could not be delivered.
type DeliveryError struct {
	Err        error
	Kind       ErrorKind
	Body       string
	StatusCode int
}

func (e *DeliveryError) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Body != "" {
			return fmt.Sprintf("server error: status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	case KindTimeout:
		if e.Err != nil {
			return fmt.Sprintf("timeout: %v", e.Err)
		}
		return "timeout"
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NewDeliveryError wraps err with the given kind.
func NewDeliveryError(kind ErrorKind, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Err: err}
}

// IsKind reports whether err carries a DeliveryError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
