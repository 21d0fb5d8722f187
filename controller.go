package resync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-resync/pkg/activity"
	"github.com/goliatone/go-resync/pkg/resource"
	"github.com/goliatone/go-resync/pkg/state"
)

// ResourceClient is the resource contract the controller drives.
// *resource.Client satisfies it.
type ResourceClient interface {
	List(ctx context.Context) ([]resource.Record, error)
	Create(ctx context.Context, draft map[string]any) (resource.Record, error)
	Health(ctx context.Context) resource.HealthStatus
}

// Controller orchestrates one synchronized collection: it loads and
// refreshes the snapshot, submits drafts and probes health, applying every
// outcome to its Store. All methods are safe for concurrent use.
type Controller struct {
	client    ResourceClient
	def       resource.Definition
	store     *state.Store
	cfg       config
	evaluator Evaluator
	derived   []compiledDerived
	rules     []compiledRule
	emitter   *activity.Emitter
	logger    *slog.Logger

	startOnce  sync.Once
	startErr   error
	generation atomic.Uint64
	inFlight   atomic.Int64
}

// NewController validates def, compiles its derived fields and rules, and
// returns a controller with a fresh store seeded with the draft defaults.
func NewController(client ResourceClient, def resource.Definition, opts ...Option) (*Controller, error) {
	if client == nil {
		return nil, errors.New("resync: resource client is required")
	}
	def = def.WithDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}

	c := &Controller{
		client:    client,
		def:       def,
		store:     state.NewStore(def.Defaults),
		cfg:       cfg,
		evaluator: evaluator,
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled:  len(cfg.activityHooks) > 0,
			Channel:  cfg.channel,
			ActorID:  cfg.actorID,
			TenantID: cfg.tenantID,
		}),
		logger: cfg.logger.With(slog.String("resource", def.Name)),
	}
	for _, d := range def.Derived {
		rule, err := evaluator.Compile(d.Expr)
		if err != nil {
			return nil, fmt.Errorf("resync: derived field %q: %w", d.Field, err)
		}
		c.derived = append(c.derived, compiledDerived{field: d, rule: rule})
	}
	for _, r := range def.Rules {
		compiled, err := evaluator.Compile(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("resync: rule for %q: %w", r.Field, err)
		}
		c.rules = append(c.rules, compiledRule{rule: r, compiled: compiled})
	}
	return c, nil
}

// Store returns the controller's view state store.
func (c *Controller) Store() *state.Store {
	return c.store
}

// Snapshot is shorthand for Store().Snapshot().
func (c *Controller) Snapshot() state.State {
	return c.store.Snapshot()
}

// Definition returns the resolved resource definition.
func (c *Controller) Definition() resource.Definition {
	return c.def
}

// Start performs the initial load once per controller, running a health
// check alongside it. Later calls return the first call's result.
func (c *Controller) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.CheckHealth(ctx)
		}()
		c.startErr = c.Refresh(ctx)
		wg.Wait()
	})
	return c.startErr
}

// Refresh reloads the collection. On success the snapshot is replaced; on
// failure the error message is stored and the previous records stay.
func (c *Controller) Refresh(ctx context.Context) error {
	gen := c.generation.Add(1)
	c.store.Dispatch(state.LoadStarted{})
	c.logger.Debug("refresh started", slog.Uint64("generation", gen))

	records, err := c.client.List(ctx)
	if err != nil {
		msg := ErrorMessage(err)
		if !c.applyRefresh(gen, state.ErrorSet{Message: msg}) {
			return ErrSuperseded
		}
		c.logger.Warn("refresh failed", slog.String("error", msg))
		c.emit(ctx, activity.BuildCollectionFailedEvent(c.eventInput(), msg))
		return err
	}
	if !c.applyRefresh(gen, state.SnapshotSet{Records: records}) {
		return ErrSuperseded
	}
	c.logger.Debug("refresh applied", slog.Int("count", len(records)))
	c.emit(ctx, activity.BuildCollectionLoadedEvent(c.eventInput(), len(records)))
	return nil
}

// applyRefresh dispatches the outcome of refresh gen. With the stale
// response guard the generation is compared inside the store's critical
// section, so a refresh issued meanwhile always wins.
func (c *Controller) applyRefresh(gen uint64, ev state.Event) bool {
	if !c.cfg.staleGuard {
		c.store.Dispatch(ev)
		return true
	}
	_, applied := c.store.DispatchIf(ev, func(state.State) bool {
		return c.generation.Load() == gen
	})
	if !applied {
		c.logger.Debug("refresh response discarded", slog.Uint64("generation", gen))
	}
	return applied
}

// UpdateDraft merges user input into the draft and returns the new state.
func (c *Controller) UpdateDraft(fields map[string]any) state.State {
	return c.store.Dispatch(state.DraftSet{Fields: fields})
}

// Submit validates the draft, fills derived fields and creates the record.
// A ValidationError is returned without any network call. On success the
// server's record is prepended and the definition's reset fields return to
// their defaults; on failure the draft is left untouched.
func (c *Controller) Submit(ctx context.Context) (resource.Record, error) {
	if c.cfg.submitGuard {
		if !c.inFlight.CompareAndSwap(0, 1) {
			return nil, ErrSubmitInFlight
		}
	} else {
		c.inFlight.Add(1)
	}
	defer c.inFlight.Add(-1)

	current := c.store.Dispatch(state.SubmitStarted{})
	body, err := c.prepareDraft(current.Draft)
	if err != nil {
		return nil, c.failSubmit(ctx, err)
	}

	record, err := c.client.Create(ctx, body)
	if err != nil {
		return nil, c.failSubmit(ctx, err)
	}

	c.store.Dispatch(state.SubmitSucceeded{Record: record, Reset: c.def.ResetAfterCreate})
	input := c.eventInput()
	if record.ID() == "" {
		input.ObjectID = uuid.NewString()
	}
	c.logger.Info("record created", slog.String("id", record.ID()))
	c.emit(ctx, activity.BuildRecordCreatedEvent(input, record))
	return record.Clone(), nil
}

func (c *Controller) failSubmit(ctx context.Context, err error) error {
	msg := ErrorMessage(err)
	c.store.Dispatch(state.SubmitFailed{Message: msg})
	var validation *ValidationError
	if errors.As(err, &validation) {
		c.logger.Debug("submit rejected", slog.String("error", msg))
		return err
	}
	c.logger.Warn("submit failed", slog.String("error", msg))
	c.emit(ctx, activity.BuildRecordCreateFailedEvent(c.eventInput(), msg))
	return err
}

// CheckHealth probes the service and stores the result in the health slot.
// It never fails; problems are reported in the returned status.
func (c *Controller) CheckHealth(ctx context.Context) resource.HealthStatus {
	status := c.client.Health(ctx)
	c.store.Dispatch(state.HealthSet{Health: state.Health{
		OK:         status.OK,
		Detail:     status.Detail,
		ServerTime: status.ServerTime,
		CheckedAt:  status.CheckedAt,
	}})
	c.emit(ctx, activity.BuildHealthCheckedEvent(c.eventInput(), status.OK, status.Detail))
	return status
}

func (c *Controller) eventInput() activity.SyncEventInput {
	return activity.SyncEventInput{
		Resource:   c.def.Name,
		OccurredAt: c.cfg.now(),
	}
}

// emit forwards an event to the activity hooks. Hook failures are logged,
// never surfaced to the caller.
func (c *Controller) emit(ctx context.Context, event activity.Event) {
	if err := c.emitter.Emit(ctx, event); err != nil {
		c.logger.Warn("activity hook failed", slog.String("verb", event.Verb), slog.Any("error", err))
	}
}
