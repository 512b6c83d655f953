package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrGateway     = errors.New("payment gateway request failed")
	ErrPersistence = errors.New("failed to persist order")
)

// ValidationError reports missing or inconsistent checkout input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
