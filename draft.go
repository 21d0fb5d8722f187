package resync

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/goliatone/go-resync/pkg/resource"
)

// compiledDerived pairs a derived field with its compiled expression.
type compiledDerived struct {
	field resource.DerivedField
	rule  CompiledRule
}

type compiledRule struct {
	rule     resource.Rule
	compiled CompiledRule
}

// prepareDraft turns the store's draft into the body handed to the resource
// client: numeric fields are coerced, required fields checked, derived fields
// computed and rules evaluated. Any failure happens before the network.
func (c *Controller) prepareDraft(draft map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(draft))
	for k, v := range draft {
		out[k] = v
	}

	verr := &ValidationError{Resource: c.def.Name}
	for _, field := range c.def.Numeric {
		v, present := out[field]
		if !present || isBlank(v) {
			continue
		}
		n, ok := toNumber(v)
		if !ok {
			verr.add(field, "must be a number")
			continue
		}
		out[field] = n
	}

	for _, field := range c.def.Required {
		if _, already := verr.Field(field); already {
			continue
		}
		if msg, ok := checkRequired(out[field], c.def.IsNumeric(field)); !ok {
			verr.add(field, msg)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	for _, d := range c.derived {
		if !isZeroSentinel(out[d.field.Field]) {
			continue
		}
		value, err := c.evaluate(d.rule, d.field.Expr, d.field.Field, out)
		if err != nil {
			return nil, err
		}
		if !isFiniteResult(value) {
			verr.add(d.field.Field, "result is not a finite number")
			continue
		}
		if n, ok := toNumber(value); ok {
			value = RoundHalfAway(n, d.field.Places())
		}
		out[d.field.Field] = value
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	for _, r := range c.rules {
		value, err := c.evaluate(r.compiled, r.rule.Expr, r.rule.Field, out)
		if err != nil {
			return nil, err
		}
		passed, ok := value.(bool)
		if !ok {
			return nil, wrapEvaluationError(evaluatorEngineName(c.evaluator), r.rule.Expr, c.def.Name+"."+r.rule.Field,
				fmt.Errorf("rule returned %T, want bool", value))
		}
		if !passed {
			msg := r.rule.Message
			if msg == "" {
				msg = fmt.Sprintf("failed check %q", r.rule.Expr)
			}
			verr.add(r.rule.Field, msg)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkRequired(v any, numeric bool) (string, bool) {
	if isBlank(v) {
		return "is required", false
	}
	if numeric {
		n, ok := v.(float64)
		if !ok || math.IsNaN(n) {
			return "must be a number", false
		}
		return "", true
	}
	switch typed := v.(type) {
	case float64:
		if math.IsNaN(typed) {
			return "must be a number", false
		}
	case float32:
		if math.IsNaN(float64(typed)) {
			return "must be a number", false
		}
	}
	return "", true
}

// isFiniteResult reports false for NaN and infinite floats, which cannot be
// encoded as JSON.
func isFiniteResult(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		f := float64(n)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return true
}

// isZeroSentinel reports whether a derived field was left for the
// controller to compute: absent, nil, a numeric zero, "" or "0".
func isZeroSentinel(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		return s == "" || s == "0"
	}
	n, ok := toNumber(v)
	return ok && n == 0
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// toNumber coerces JSON and user input numbers to float64. Strings are parsed
// after trimming; NaN and infinities are rejected.
func toNumber(v any) (float64, bool) {
	var n float64
	switch typed := v.(type) {
	case float64:
		n = typed
	case float32:
		n = float64(typed)
	case int:
		n = float64(typed)
	case int8:
		n = float64(typed)
	case int16:
		n = float64(typed)
	case int32:
		n = float64(typed)
	case int64:
		n = float64(typed)
	case uint:
		n = float64(typed)
	case uint8:
		n = float64(typed)
	case uint16:
		n = float64(typed)
	case uint32:
		n = float64(typed)
	case uint64:
		n = float64(typed)
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// RoundHalfAway rounds x to places decimal places, halves away from zero.
// Rounding works on the shortest decimal representation of x, so 1.005
// rounds to 1.01 even though its binary value is slightly below 1.005.
func RoundHalfAway(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || places < 0 {
		return x
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(x, 'g', -1, 64))
	if !ok {
		return x
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	twice := new(big.Int).Mul(new(big.Int).Abs(m), big.NewInt(2))
	if twice.Cmp(r.Denom()) >= 0 {
		if r.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	out, _ := new(big.Rat).SetFrac(q, scale).Float64()
	return out
}
