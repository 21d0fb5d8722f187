package resync

import (
	"time"
)

// RuleContext carries the inputs of one expression evaluation: the draft
// values being submitted plus optional arguments and metadata.
type RuleContext struct {
	Values   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Resource string
	Field    string
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// subject names what is being evaluated, e.g. "holdings.value".
func (ctx RuleContext) subject() string {
	switch {
	case ctx.Resource != "" && ctx.Field != "":
		return ctx.Resource + "." + ctx.Field
	case ctx.Field != "":
		return ctx.Field
	case ctx.Resource != "":
		return ctx.Resource
	default:
		return "unknown"
	}
}

func (ctx RuleContext) resourceBinding() map[string]any {
	if ctx.Resource == "" && ctx.Field == "" {
		return nil
	}
	return map[string]any{
		"name":  ctx.Resource,
		"field": ctx.Field,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}
