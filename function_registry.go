package resync

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by lower-cased name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewDefaultFunctionRegistry returns a registry preloaded with the numeric
// helpers derived fields commonly need: round(x, places) and num(x).
func NewDefaultFunctionRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("round", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("round expects 2 arguments, got %d", len(args))
		}
		x, ok := toNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("round: %v is not a number", args[0])
		}
		places, ok := toNumber(args[1])
		if !ok || places < 0 {
			return nil, fmt.Errorf("round: invalid precision %v", args[1])
		}
		return RoundHalfAway(x, int(places)), nil
	})
	_ = r.Register("num", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("num expects 1 argument, got %d", len(args))
		}
		x, ok := toNumber(args[0])
		if !ok {
			return 0.0, nil
		}
		return x, nil
	})
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("resync: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("resync: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("resync: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("resync: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("resync: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
