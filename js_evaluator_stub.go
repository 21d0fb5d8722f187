//go:build !js_eval

package resync

// NewJSEvaluator is unavailable without the js_eval build tag and returns
// nil. Controllers given a nil evaluator fall back to expr.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return false
}
