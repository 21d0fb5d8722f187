package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBaseURLRequired is returned by New when no base URL is supplied.
var ErrBaseURLRequired = errors.New("transport: base url is required")

// Kind tags the outcome of a request.
type Kind string

const (
	KindOK      Kind = "ok"
	KindHTTP    Kind = "http"
	KindNetwork Kind = "network"
	KindDecode  Kind = "decode"
	KindUnknown Kind = "unknown"
)

// HTTPError reports a response received with a non-2xx status.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transport: %s %s: HTTP %d", e.Method, e.URL, e.Status)
}

// Detail extracts a server supplied message from the raw body when it is a
// JSON object carrying a string "detail", "error" or "message" field.
func (e *HTTPError) Detail() string {
	if e == nil || strings.TrimSpace(e.Body) == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(e.Body), &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// NetworkError reports a request that produced no usable response.
type NetworkError struct {
	Method string
	URL    string
	Cause  error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// DecodeError reports a 2xx response whose body could not be interpreted.
type DecodeError struct {
	Method string
	URL    string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transport: %s %s: decode: %v", e.Method, e.URL, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Classify maps err onto the request outcome taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return KindHTTP
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return KindDecode
	}
	return KindUnknown
}

// Message renders err as a single human readable line suitable for a UI
// status slot.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if detail := httpErr.Detail(); detail != "" {
			return fmt.Sprintf("HTTP %d: %s", httpErr.Status, detail)
		}
		return fmt.Sprintf("HTTP %d", httpErr.Status)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return fmt.Sprintf("network error: %v", netErr.Cause)
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return fmt.Sprintf("invalid response: %v", decErr.Cause)
	}
	return err.Error()
}
