package resync

import (
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-resync/pkg/activity"
)

// Option configures a Controller.
type Option func(*config)

type config struct {
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	evalLogger    EvaluatorLogger
	logger        *slog.Logger
	activityHooks activity.Hooks
	channel       string
	actorID       string
	tenantID      string
	staleGuard    bool
	submitGuard   bool
	now           func() time.Time
}

func applyOptions(opts []Option) config {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = noopEvaluatorLogger{}
	}
	return cfg
}

// WithEvaluator sets the expression evaluator for derived fields and rules.
// A nil evaluator selects the expr based default.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares compiled programs with the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches an evaluator logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithActivityHooks attaches hooks that receive lifecycle events. Nil hooks
// are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.channel = channel
	}
}

// WithActor identifies who drives the controller in emitted events.
func WithActor(actorID, tenantID string) Option {
	return func(cfg *config) {
		cfg.actorID = actorID
		cfg.tenantID = tenantID
	}
}

// WithStaleResponseGuard discards refresh responses that resolve after a
// newer refresh was issued. Off by default: the last response to arrive
// wins.
func WithStaleResponseGuard(enabled bool) Option {
	return func(cfg *config) {
		cfg.staleGuard = enabled
	}
}

// WithSubmitGuard rejects Submit while another create is in flight. Off by
// default: concurrent submits each reach the server.
func WithSubmitGuard(enabled bool) Option {
	return func(cfg *config) {
		cfg.submitGuard = enabled
	}
}

// WithClock overrides the clock used for evaluation timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		if now != nil {
			cfg.now = now
		}
	}
}
