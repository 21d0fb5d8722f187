package resync

import (
	"time"
)

func (cfg config) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if name, ok := e.(interface{ Engine() string }); ok {
			return name.Engine()
		}
		return "custom"
	}
}

// evaluate runs one compiled expression against the draft values and logs
// the attempt.
func (c *Controller) evaluate(rule CompiledRule, expr, field string, values map[string]any) (any, error) {
	now := c.cfg.now()
	ctx := RuleContext{
		Values:   values,
		Now:      &now,
		Resource: c.def.Name,
		Field:    field,
	}
	engine := evaluatorEngineName(c.evaluator)
	start := time.Now()
	value, err := rule.Evaluate(ctx)
	err = wrapEvaluationError(engine, expr, ctx.subject(), err)
	c.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Subject:  ctx.subject(),
		Duration: time.Since(start),
		Err:      err,
	})
	return value, err
}
