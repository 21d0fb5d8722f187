// Package transport performs JSON requests against a configured base URL and
// normalizes every outcome into either a parsed body or one of three typed
// failures: HTTPError, NetworkError or DecodeError.
//
//	t, err := transport.New("https://api.example.com/")
//	resp, err := t.Request(ctx, http.MethodGet, "/api/employees", nil)
//	switch transport.Classify(err) { ... }
//
// Nothing is retried or cached at this layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseBody caps how much of a response body is read (10 MiB).
const maxResponseBody int64 = 10 << 20

// ErrResponseTooLarge is the DecodeError cause for a 2xx body over the read
// limit.
var ErrResponseTooLarge = errors.New("response body exceeds 10 MiB")

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// Response is a successfully received and parsed 2xx response. Body is nil
// when the server returned an empty body. JSON numbers are kept as
// json.Number so no precision is lost before callers interpret them.
type Response struct {
	Status    int
	Body      any
	Raw       []byte
	RequestID string
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.headers.Set(key, value)
	}
}

// WithObserver registers an observer notified after every request.
func WithObserver(observer Observer) Option {
	return func(t *Transport) {
		t.observer = observer
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(gen func() string) Option {
	return func(t *Transport) {
		if gen != nil {
			t.requestID = gen
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Transport issues JSON requests relative to a base URL. It is safe for
// concurrent use.
type Transport struct {
	base      string
	client    *http.Client
	headers   http.Header
	observer  Observer
	requestID func() string
	logger    *slog.Logger
}

// New constructs a Transport for baseURL.
func New(baseURL string, opts ...Option) (*Transport, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	t := &Transport{
		base:      base,
		client:    http.DefaultClient,
		headers:   http.Header{},
		requestID: uuid.NewString,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

// BaseURL returns the configured base URL.
func (t *Transport) BaseURL() string {
	return t.base
}

// URL returns the absolute URL for path.
func (t *Transport) URL(path string) string {
	return JoinURL(t.base, path)
}

// Request sends method to path with an optional JSON body.
func (t *Transport) Request(ctx context.Context, method, path string, body any) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target := t.URL(path)
	requestID := t.requestID()
	start := time.Now()

	resp, err := t.do(ctx, method, target, requestID, body)

	obs := Observation{
		Method:    method,
		Path:      path,
		Status:    resp.Status,
		Kind:      Classify(err),
		Duration:  time.Since(start),
		RequestID: requestID,
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		obs.Status = httpErr.Status
	}
	if t.observer != nil {
		t.observer.ObserveRequest(ctx, obs)
	}
	if err != nil {
		t.logger.DebugContext(ctx, "request failed",
			"method", method, "url", target, "kind", obs.Kind, "request_id", requestID, "err", err)
		return Response{}, err
	}
	t.logger.DebugContext(ctx, "request completed",
		"method", method, "url", target, "status", resp.Status, "duration", obs.Duration, "request_id", requestID)
	return resp, nil
}

func (t *Transport) do(ctx context.Context, method, target, requestID string, body any) (Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("transport: encode %s %s body: %w", method, target, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Response{}, fmt.Errorf("transport: create request: %w", err)
	}
	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return Response{}, &NetworkError{Method: method, URL: target, Cause: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody+1))
	if err != nil {
		return Response{}, &NetworkError{Method: method, URL: target, Cause: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(raw)) > maxResponseBody {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return Response{}, &HTTPError{Method: method, URL: target, Status: res.StatusCode, Body: string(raw[:maxResponseBody])}
		}
		return Response{}, &DecodeError{Method: method, URL: target, Cause: ErrResponseTooLarge}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Response{}, &HTTPError{Method: method, URL: target, Status: res.StatusCode, Body: string(raw)}
	}

	out := Response{Status: res.StatusCode, Raw: raw, RequestID: requestID}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	parsed, err := parseJSON(raw)
	if err != nil {
		return Response{}, &DecodeError{Method: method, URL: target, Cause: err}
	}
	out.Body = parsed
	return out, nil
}

func parseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return value, nil
}
