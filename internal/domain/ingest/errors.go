package ingest

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-level error with a stable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common ingestion errors
var (
	// ErrSourceUnavailable is returned when the reference source fails and no
	// last-good reference set exists. The whole batch is rejected.
	ErrSourceUnavailable = NewDomainError("SOURCE_UNAVAILABLE", "Reference source unavailable and no cached data exists")

	// ErrUnknownDataKind is returned for a data_type the service does not ingest
	ErrUnknownDataKind = NewDomainError("UNKNOWN_DATA_KIND", "Unknown data kind")
)

// TransientError marks a persistence failure as retryable (timeout,
// connection reset). The coordinator retries these; everything else fails
// the affected rows only.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient persistence failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried by the persistence
// coordinator. Context deadline expiry on the write path counts as
// transient; caller cancellation does not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
