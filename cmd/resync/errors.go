package main

import (
	"fmt"
	"strings"
)

// cliError is a user facing failure with optional suggestions.
type cliError struct {
	Operation   string
	Cause       string
	Suggestions []string
	Underlying  error
}

func (e *cliError) Error() string {
	var msg strings.Builder
	if e.Operation != "" {
		fmt.Fprintf(&msg, "failed to %s", e.Operation)
	} else {
		msg.WriteString("operation failed")
	}
	if e.Cause != "" {
		fmt.Fprintf(&msg, ": %s", e.Cause)
	}
	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, s := range e.Suggestions {
			fmt.Fprintf(&msg, "\n  %d. %s", i+1, s)
		}
	}
	return msg.String()
}

func (e *cliError) Unwrap() error {
	return e.Underlying
}

func newConfigError(operation, issue string, suggestions ...string) *cliError {
	return &cliError{
		Operation:   operation,
		Cause:       "configuration error: " + issue,
		Suggestions: suggestions,
	}
}
