package resync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-resync/pkg/transport"
)

var (
	// ErrNoEvaluator is returned when no expression evaluator could be built.
	ErrNoEvaluator = errors.New("resync: evaluator not configured")

	// ErrSuperseded is returned by Refresh when the stale response guard is
	// enabled and a newer refresh was issued before this one resolved. The
	// response was discarded.
	ErrSuperseded = errors.New("resync: refresh superseded by a newer one")

	// ErrSubmitInFlight is returned by Submit when the submit guard is
	// enabled and another create has not resolved yet.
	ErrSubmitInFlight = errors.New("resync: a submission is already in flight")
)

// FieldError is one local validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// ValidationError blocks a submission before any network call.
type ValidationError struct {
	Resource string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the first message recorded for field.
func (e *ValidationError) Field(field string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message, true
		}
	}
	return "", false
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ErrorMessage renders err as the single human readable message stored in a
// state slot.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return fmt.Sprintf("could not compute %s: %v", evalErr.Subject, evalErr.Err)
	}
	switch {
	case errors.Is(err, ErrSuperseded):
		return "superseded by a newer refresh"
	case errors.Is(err, ErrSubmitInFlight):
		return "a submission is already in progress"
	}
	return transport.Message(err)
}
