// Package resource exposes typed operations over one remote REST collection:
// listing it, creating records in it and probing the service's health.
//
// A Definition carries everything resource specific (endpoints, aliasing
// between UI and wire field names, draft defaults, derived fields), so the
// same Client serves "employees", "holdings" or any other collection.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-resync/internal/hydrate"
	"github.com/goliatone/go-resync/pkg/transport"
)

// Requester is the transport contract the client is built on.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (transport.Response, error)
}

// HealthStatus reports the remote service's health. Detail carries the
// failure message when OK is false.
type HealthStatus struct {
	OK         bool      `json:"ok"`
	ServerTime string    `json:"server_time,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CheckedAt  time.Time `json:"-"`
}

// Client performs List, Create and Health against one resource.
type Client struct {
	requester Requester
	def       Definition
	health    *hydrate.Decoder[HealthStatus]
	now       func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock overrides the clock used to stamp health checks.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Client for def on top of requester.
func NewClient(requester Requester, def Definition, opts ...ClientOption) *Client {
	c := &Client{
		requester: requester,
		def:       def.WithDefaults(),
		health:    hydrate.NewDecoder(hydrate.WithPreHook[HealthStatus](normalizeHealth)),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Definition returns the client's resource definition.
func (c *Client) Definition() Definition {
	return c.def
}

// List fetches the collection. A missing or non-sequence items envelope
// yields an empty collection; records with diverging field sets are a
// protocol violation reported as a DecodeError.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	resp, err := c.requester.Request(ctx, http.MethodGet, c.def.Collection, nil)
	if err != nil {
		return nil, err
	}
	envelope, ok := resp.Body.(map[string]any)
	if !ok {
		return []Record{}, nil
	}
	items, ok := envelope[c.def.ItemsKey].([]any)
	if !ok {
		return []Record{}, nil
	}
	records, err := checkFieldSets(items)
	if err != nil {
		return nil, &transport.DecodeError{
			Method: http.MethodGet,
			URL:    c.def.Collection,
			Cause:  err,
		}
	}
	return records, nil
}

// Create posts draft, translated to wire field names, and returns the
// server's record unchanged.
func (c *Client) Create(ctx context.Context, draft map[string]any) (Record, error) {
	body := c.def.ToWire(draft)
	resp, err := c.requester.Request(ctx, http.MethodPost, c.def.Collection, body)
	if err != nil {
		return nil, err
	}
	obj, ok := resp.Body.(map[string]any)
	if !ok {
		return nil, &transport.DecodeError{
			Method: http.MethodPost,
			URL:    c.def.Collection,
			Cause:  errors.New("expected created record object"),
		}
	}
	return Record(obj).Clone(), nil
}

// Health probes the health endpoint. Failures are reported in the returned
// status, never as an error.
func (c *Client) Health(ctx context.Context) HealthStatus {
	checkedAt := c.now()
	resp, err := c.requester.Request(ctx, http.MethodGet, c.def.Health, nil)
	if err != nil {
		return HealthStatus{OK: false, Detail: transport.Message(err), CheckedAt: checkedAt}
	}
	status, err := c.health.Decode(hydrate.Context{Resource: c.def.Name, Endpoint: "health"}, resp.Body)
	if err != nil {
		return HealthStatus{OK: false, Detail: err.Error(), CheckedAt: checkedAt}
	}
	status.CheckedAt = checkedAt
	return status
}

// normalizeHealth accepts {"status": "ok"} style payloads alongside
// {"ok": true}.
func normalizeHealth(_ hydrate.Context, in map[string]any) (map[string]any, error) {
	if _, ok := in["ok"]; !ok {
		if s, ok := in["status"].(string); ok {
			in["ok"] = s == "ok" || s == "healthy" || s == "up"
		}
	}
	out := make(map[string]any, 3)
	for _, key := range []string{"ok", "server_time", "detail"} {
		if v, ok := in[key]; ok {
			out[key] = v
		}
	}
	if v, ok := out["server_time"]; ok && v != nil {
		out["server_time"] = stringifyServerTime(v)
	}
	return out, nil
}

// stringifyServerTime keeps server_time opaque: epoch numbers and other
// scalars are reported verbatim rather than rejected.
func stringifyServerTime(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
