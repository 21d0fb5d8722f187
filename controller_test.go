package resync_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	resync "github.com/goliatone/go-resync"
	"github.com/goliatone/go-resync/pkg/activity"
	"github.com/goliatone/go-resync/pkg/resource"
	"github.com/goliatone/go-resync/pkg/transport"
)

type fakeClient struct {
	list   func(context.Context) ([]resource.Record, error)
	create func(context.Context, map[string]any) (resource.Record, error)
	health func(context.Context) resource.HealthStatus

	mu      sync.Mutex
	creates []map[string]any
	lists   int
	healths int
}

func (f *fakeClient) List(ctx context.Context) ([]resource.Record, error) {
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	if f.list == nil {
		return []resource.Record{}, nil
	}
	return f.list(ctx)
}

func (f *fakeClient) Create(ctx context.Context, draft map[string]any) (resource.Record, error) {
	f.mu.Lock()
	f.creates = append(f.creates, draft)
	f.mu.Unlock()
	if f.create == nil {
		return resource.Record{"id": "1"}, nil
	}
	return f.create(ctx, draft)
}

func (f *fakeClient) Health(ctx context.Context) resource.HealthStatus {
	f.mu.Lock()
	f.healths++
	f.mu.Unlock()
	if f.health == nil {
		return resource.HealthStatus{OK: true}
	}
	return f.health(ctx)
}

func (f *fakeClient) createCalls() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any{}, f.creates...)
}

func newController(t *testing.T, client resync.ResourceClient, def resource.Definition, opts ...resync.Option) *resync.Controller {
	t.Helper()
	ctrl, err := resync.NewController(client, def, opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl
}

func rec(id string) resource.Record {
	return resource.Record{"id": id}
}

func ids(records []resource.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func holdingDraft(extra map[string]any) map[string]any {
	draft := map[string]any{
		"ticker":   "ACME",
		"amount":   10.0,
		"price":    2.5,
		"currency": "EUR",
		"date":     "2024-05-01",
	}
	for k, v := range extra {
		draft[k] = v
	}
	return draft
}

func TestFailedRefreshPreservesRecords(t *testing.T) {
	var fail atomic.Bool
	client := &fakeClient{list: func(context.Context) ([]resource.Record, error) {
		if fail.Load() {
			return nil, &transport.HTTPError{Method: http.MethodGet, URL: "/api/employees", Status: 500}
		}
		return []resource.Record{rec("a"), rec("b"), rec("c")}, nil
	}}
	ctrl := newController(t, client, resource.Employees())

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fail.Store(true)
	if err := ctrl.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}

	s := ctrl.Snapshot()
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(s.Records)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if s.Error != "HTTP 500" || s.Loading {
		t.Fatalf("unexpected load state error=%q loading=%v", s.Error, s.Loading)
	}

	fail.Store(false)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s := ctrl.Snapshot(); s.Error != "" {
		t.Fatalf("expected successful refresh to clear error, got %q", s.Error)
	}
}

func TestSubmitPrependsAndResetsNumericFields(t *testing.T) {
	client := &fakeClient{
		list: func(context.Context) ([]resource.Record, error) {
			return []resource.Record{rec("A"), rec("B")}, nil
		},
		create: func(context.Context, map[string]any) (resource.Record, error) {
			return resource.Record{"id": "C", "created_at": "2024-05-01T10:00:00"}, nil
		},
	}
	ctrl := newController(t, client, resource.Holdings())
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ctrl.UpdateDraft(holdingDraft(nil))

	record, err := ctrl.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.ID() != "C" {
		t.Fatalf("expected server record, got %+v", record)
	}

	s := ctrl.Snapshot()
	if diff := cmp.Diff([]string{"C", "A", "B"}, ids(s.Records)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	wantDraft := map[string]any{
		"ticker":   "ACME",
		"amount":   0,
		"price":    0,
		"value":    0,
		"currency": "EUR",
		"date":     "2024-05-01",
	}
	if diff := cmp.Diff(wantDraft, s.Draft); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
	if s.Submitting != 0 || s.SubmitError != "" {
		t.Fatalf("unexpected submit slot %d %q", s.Submitting, s.SubmitError)
	}
}

func TestSubmitDerivesValueOnlyAtZeroSentinel(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  float64
	}{
		{name: "zero", value: 0, want: 25},
		{name: "zero string", value: "0", want: 25},
		{name: "empty", value: "", want: 25},
		{name: "absent", value: nil, want: 25},
		{name: "explicit", value: 99, want: 99},
		{name: "explicit string", value: "99.5", want: 99.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{}
			ctrl := newController(t, client, resource.Holdings())
			ctrl.UpdateDraft(holdingDraft(map[string]any{"value": tc.value}))

			if _, err := ctrl.Submit(context.Background()); err != nil {
				t.Fatalf("submit: %v", err)
			}
			calls := client.createCalls()
			if len(calls) != 1 {
				t.Fatalf("expected one create, got %d", len(calls))
			}
			if calls[0]["value"] != tc.want {
				t.Fatalf("expected value %v, got %#v", tc.want, calls[0]["value"])
			}
		})
	}
}

func TestSubmitRoundsDerivedValue(t *testing.T) {
	client := &fakeClient{}
	ctrl := newController(t, client, resource.Holdings())
	ctrl.UpdateDraft(holdingDraft(map[string]any{"amount": "3", "price": "0.125"}))

	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	body := client.createCalls()[0]
	if body["value"] != 0.38 || body["amount"] != 3.0 || body["price"] != 0.125 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSubmitValidationBlocksNetwork(t *testing.T) {
	cases := map[string]map[string]any{
		"missing ticker":  {"ticker": ""},
		"blank price":     {"price": " "},
		"price not a num": {"price": "abc"},
		"negative amount": {"amount": -1.0},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			client := &fakeClient{}
			ctrl := newController(t, client, resource.Holdings())
			ctrl.UpdateDraft(holdingDraft(override))
			before := ctrl.Snapshot().Draft

			_, err := ctrl.Submit(context.Background())
			var verr *resync.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(client.createCalls()) != 0 {
				t.Fatalf("validation failure must not reach the network")
			}
			s := ctrl.Snapshot()
			if s.SubmitError == "" || s.Error != "" {
				t.Fatalf("expected submit error slot only, got submit=%q error=%q", s.SubmitError, s.Error)
			}
			if diff := cmp.Diff(before, s.Draft); diff != "" {
				t.Fatalf("draft changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestSubmitRejectsNonFiniteDerivedValue(t *testing.T) {
	client := &fakeClient{}
	ctrl := newController(t, client, resource.Holdings())
	ctrl.UpdateDraft(holdingDraft(map[string]any{"ticker": "A", "amount": "1e200", "price": "1e200"}))

	_, err := ctrl.Submit(context.Background())
	var verr *resync.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if msg, ok := verr.Field("value"); !ok || msg != "result is not a finite number" {
		t.Fatalf("expected value field error, got %q %v", msg, ok)
	}
	if len(client.createCalls()) != 0 {
		t.Fatalf("non-finite value must not reach the network")
	}
	if got := ctrl.Snapshot().SubmitError; got != "validation failed: value result is not a finite number" {
		t.Fatalf("unexpected submit error %q", got)
	}
}

func TestSubmitRequiredNumericAcceptsZero(t *testing.T) {
	client := &fakeClient{}
	ctrl := newController(t, client, resource.Holdings())
	ctrl.UpdateDraft(holdingDraft(map[string]any{"amount": 0}))

	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := client.createCalls()[0]["value"]; got != 0.0 {
		t.Fatalf("expected derived zero value, got %#v", got)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	client := &fakeClient{create: func(context.Context, map[string]any) (resource.Record, error) {
		return nil, &transport.NetworkError{Method: http.MethodPost, URL: "/api/holdings", Cause: errors.New("connection refused")}
	}}
	ctrl := newController(t, client, resource.Holdings())
	ctrl.UpdateDraft(holdingDraft(nil))
	before := ctrl.Snapshot().Draft

	if _, err := ctrl.Submit(context.Background()); transport.Classify(err) != transport.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	s := ctrl.Snapshot()
	if s.SubmitError != "network error: connection refused" {
		t.Fatalf("unexpected submit error %q", s.SubmitError)
	}
	if diff := cmp.Diff(before, s.Draft); diff != "" {
		t.Fatalf("draft changed (-before +after):\n%s", diff)
	}
	if len(s.Records) != 0 {
		t.Fatalf("failed create must not add records")
	}
}

func TestCheckHealthTouchesOnlyHealthSlot(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{
		list: func(context.Context) ([]resource.Record, error) {
			return []resource.Record{rec("a")}, nil
		},
		health: func(context.Context) resource.HealthStatus {
			return resource.HealthStatus{OK: false, Detail: "network error: refused", CheckedAt: fixed}
		},
	}
	ctrl := newController(t, client, resource.Employees())
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := ctrl.Snapshot()

	status := ctrl.CheckHealth(context.Background())
	if status.OK || status.Detail != "network error: refused" {
		t.Fatalf("unexpected status %+v", status)
	}
	after := ctrl.Snapshot()
	if !after.Health.Known || after.Health.OK || !after.Health.CheckedAt.Equal(fixed) {
		t.Fatalf("unexpected health slot %+v", after.Health)
	}
	if diff := cmp.Diff(ids(before.Records), ids(after.Records)); diff != "" {
		t.Fatalf("records changed (-before +after):\n%s", diff)
	}
	if after.Phase() != before.Phase() || after.Error != before.Error {
		t.Fatalf("health check changed load state")
	}
}

func TestStartRunsOnceWithHealth(t *testing.T) {
	client := &fakeClient{list: func(context.Context) ([]resource.Record, error) {
		return []resource.Record{rec("a")}, nil
	}}
	ctrl := newController(t, client, resource.Employees())

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	client.mu.Lock()
	lists, healths := client.lists, client.healths
	client.mu.Unlock()
	if lists != 1 || healths != 1 {
		t.Fatalf("expected one list and one health call, got %d and %d", lists, healths)
	}
	if s := ctrl.Snapshot(); !s.Health.Known || len(s.Records) != 1 {
		t.Fatalf("unexpected state after start %+v", s)
	}
}

func overlappingRefreshes(t *testing.T, opts ...resync.Option) ([]string, error) {
	t.Helper()
	release := make(chan struct{})
	var calls atomic.Int32
	client := &fakeClient{list: func(context.Context) ([]resource.Record, error) {
		if calls.Add(1) == 1 {
			<-release
			return []resource.Record{rec("old")}, nil
		}
		return []resource.Record{rec("new")}, nil
	}}
	ctrl := newController(t, client, resource.Employees(), opts...)

	errc := make(chan error, 1)
	go func() { errc <- ctrl.Refresh(context.Background()) }()
	waitFor(t, func() bool { return calls.Load() == 1 })

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	firstErr := <-errc
	return ids(ctrl.Snapshot().Records), firstErr
}

func TestOverlappingRefreshLastResponseWins(t *testing.T) {
	got, err := overlappingRefreshes(t)
	if err != nil {
		t.Fatalf("expected late response to be applied, got %v", err)
	}
	if diff := cmp.Diff([]string{"old"}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleResponseGuardDiscardsSuperseded(t *testing.T) {
	got, err := overlappingRefreshes(t, resync.WithStaleResponseGuard(true))
	if !errors.Is(err, resync.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if diff := cmp.Diff([]string{"new"}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleResponseGuardKeepsNewerRefreshLoading(t *testing.T) {
	releaseOld := make(chan struct{})
	releaseNew := make(chan struct{})
	var calls atomic.Int32
	client := &fakeClient{list: func(context.Context) ([]resource.Record, error) {
		if calls.Add(1) == 1 {
			<-releaseOld
			return []resource.Record{rec("old")}, nil
		}
		<-releaseNew
		return []resource.Record{rec("new")}, nil
	}}
	ctrl := newController(t, client, resource.Employees(), resync.WithStaleResponseGuard(true))

	oldErr := make(chan error, 1)
	go func() { oldErr <- ctrl.Refresh(context.Background()) }()
	waitFor(t, func() bool { return calls.Load() == 1 })
	newErr := make(chan error, 1)
	go func() { newErr <- ctrl.Refresh(context.Background()) }()
	waitFor(t, func() bool { return calls.Load() == 2 })

	close(releaseOld)
	if err := <-oldErr; !errors.Is(err, resync.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if s := ctrl.Snapshot(); !s.Loading || len(s.Records) != 0 {
		t.Fatalf("superseded response must not settle the load, got loading=%v records=%v", s.Loading, ids(s.Records))
	}

	close(releaseNew)
	if err := <-newErr; err != nil {
		t.Fatalf("newer refresh: %v", err)
	}
	s := ctrl.Snapshot()
	if s.Loading || !cmp.Equal([]string{"new"}, ids(s.Records)) {
		t.Fatalf("expected newer snapshot applied, got loading=%v records=%v", s.Loading, ids(s.Records))
	}
}

func TestSubmitGuardRejectsConcurrentSubmit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{create: func(context.Context, map[string]any) (resource.Record, error) {
		close(started)
		<-release
		return rec("1"), nil
	}}
	ctrl := newController(t, client, resource.Employees(), resync.WithSubmitGuard(true))
	ctrl.UpdateDraft(map[string]any{"name": "Ada"})

	errc := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background())
		errc <- err
	}()
	<-started

	if _, err := ctrl.Submit(context.Background()); !errors.Is(err, resync.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n := len(client.createCalls()); n != 1 {
		t.Fatalf("expected one create, got %d", n)
	}
}

func TestConcurrentSubmitsAreNotDeduplicated(t *testing.T) {
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	var seq atomic.Int32
	client := &fakeClient{create: func(context.Context, map[string]any) (resource.Record, error) {
		arrived <- struct{}{}
		<-release
		return rec(string(rune('0' + seq.Add(1)))), nil
	}}
	ctrl := newController(t, client, resource.Employees())
	ctrl.UpdateDraft(map[string]any{"name": "Ada"})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ctrl.Submit(context.Background()); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	<-arrived
	<-arrived
	if s := ctrl.Snapshot(); s.Submitting != 2 {
		t.Fatalf("expected two submits in flight, got %d", s.Submitting)
	}
	close(release)
	wg.Wait()

	if s := ctrl.Snapshot(); len(s.Records) != 2 || s.Submitting != 0 {
		t.Fatalf("expected two records and nothing in flight, got %d and %d", len(s.Records), s.Submitting)
	}
}

func TestControllerWithCELEvaluator(t *testing.T) {
	client := &fakeClient{}
	cache := resync.NewMemoryProgramCache()
	ctrl := newController(t, client, resource.Holdings(),
		resync.WithEvaluator(resync.NewCELEvaluator(resync.CELWithProgramCache(cache))))
	ctrl.UpdateDraft(holdingDraft(nil))

	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := client.createCalls()[0]["value"]; got != 25.0 {
		t.Fatalf("expected value 25, got %#v", got)
	}
	if cache.Len() == 0 {
		t.Fatalf("expected CEL programs to be cached")
	}

	ctrl.UpdateDraft(map[string]any{"price": -2.0})
	_, err := ctrl.Submit(context.Background())
	var verr *resync.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if msg, ok := verr.Field("price"); !ok || msg != "price must not be negative" {
		t.Fatalf("unexpected price error %q", msg)
	}
}

func TestNewControllerRejectsBadExpressions(t *testing.T) {
	def := resource.Holdings()
	def.Derived = []resource.DerivedField{{Field: "value", Expr: "amount *"}}
	if _, err := resync.NewController(&fakeClient{}, def); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := resync.NewController(nil, resource.Holdings()); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func TestControllerEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	client := &fakeClient{
		create: func(context.Context, map[string]any) (resource.Record, error) {
			return resource.Record{"id": json.Number("7")}, nil
		},
	}
	ctrl := newController(t, client, resource.Holdings(),
		resync.WithActivityHooks(activity.Hooks{capture}),
		resync.WithActor("alice", "acme"))

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.UpdateDraft(holdingDraft(nil))
	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	verbs := map[string]bool{}
	for _, v := range capture.Verbs() {
		verbs[v] = true
	}
	for _, want := range []string{activity.VerbCollectionLoaded, activity.VerbHealthChecked, activity.VerbRecordCreated} {
		if !verbs[want] {
			t.Fatalf("expected %s in %v", want, capture.Verbs())
		}
	}
	last := capture.Events[len(capture.Events)-1]
	if last.ObjectID != "7" || last.ActorID != "alice" || last.TenantID != "acme" || last.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected created event %+v", last)
	}
}

func TestControllerEndToEnd(t *testing.T) {
	var mu sync.Mutex
	items := []map[string]any{{"id": 1, "symbol": "OLD", "amount": 1, "price": 1, "value": 1, "currency": "USD", "purchased_on": "2024-01-01", "created_at": "2024-01-01T00:00:00"}}
	var lastBody map[string]any

	r := chi.NewRouter()
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"server_time":"2024-05-01 12:00:00"}`)
	})
	r.Get("/api/holdings", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	r.Post("/api/holdings", func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(req.Body).Decode(&lastBody)
		created := map[string]any{"id": len(items) + 1, "created_at": "2024-05-01T12:00:00"}
		for k, v := range lastBody {
			created[k] = v
		}
		items = append([]map[string]any{created}, items...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	tr, err := transport.New(srv.URL + "/")
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	ctrl := newController(t, resource.NewClient(tr, resource.Holdings()), resource.Holdings())
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s := ctrl.Snapshot(); len(s.Records) != 1 || s.Health.ServerTime != "2024-05-01 12:00:00" {
		t.Fatalf("unexpected state after start %+v", s)
	}

	ctrl.UpdateDraft(holdingDraft(map[string]any{"value": 0}))
	record, err := ctrl.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	mu.Lock()
	body := lastBody
	mu.Unlock()
	want := map[string]any{
		"symbol":       "ACME",
		"purchased_on": "2024-05-01",
		"amount":       10.0,
		"price":        2.5,
		"value":        25.0,
		"currency":     "EUR",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("wire body mismatch (-want +got):\n%s", diff)
	}
	if record.ID() != "2" {
		t.Fatalf("expected server id 2, got %q", record.ID())
	}
	if got := ids(ctrl.Snapshot().Records); got[0] != "2" || got[1] != "1" {
		t.Fatalf("expected created record first, got %v", got)
	}
}
