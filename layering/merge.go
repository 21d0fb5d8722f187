// Package layering merges configuration values ordered strongest to weakest.
//
// A layer "sets" a field when the field is non-zero: strings, numbers and
// bools fall through to weaker layers when left at their zero value, slices
// are replaced wholesale by the first non-empty layer, and maps are merged
// key by key with stronger keys winning. Resource definitions use this to
// sit a user supplied YAML file on top of built-in defaults.
package layering

import "reflect"

// Merge composes layers ordered from strongest to weakest and returns a new
// value. None of the inputs are mutated.
func Merge[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := reflect.ValueOf(layers[len(layers)-1])
	merged = clone(merged)
	for i := len(layers) - 2; i >= 0; i-- {
		merged = merge(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() {
		return zero
	}
	out, ok := merged.Interface().(T)
	if !ok {
		return zero
	}
	return out
}

// MergeMaps overlays strong on weak, recursing into nested map[string]any
// values. The result is a fresh map.
func MergeMaps(strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(strong)+len(weak))
	for k, v := range weak {
		out[k] = cloneAny(v)
	}
	for k, v := range strong {
		if sv, ok := v.(map[string]any); ok {
			if wv, ok := out[k].(map[string]any); ok {
				out[k] = MergeMaps(sv, wv)
				continue
			}
		}
		out[k] = cloneAny(v)
	}
	return out
}

func merge(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return clone(weak)
	}
	if !weak.IsValid() || weak.Type() != strong.Type() {
		return clone(strong)
	}

	switch strong.Kind() {
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(merge(strong.Field(i), weak.Field(i)))
		}
		return out
	case reflect.Map:
		if strong.IsNil() || strong.Len() == 0 {
			return clone(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len()+weak.Len())
		iter := weak.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		iter = strong.MapRange()
		for iter.Next() {
			existing := out.MapIndex(iter.Key())
			if existing.IsValid() {
				out.SetMapIndex(iter.Key(), merge(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if strong.IsNil() {
			return clone(weak)
		}
		if weak.IsNil() {
			return clone(strong)
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(merge(strong.Elem(), weak.Elem()))
		return out
	case reflect.Interface:
		if strong.IsNil() {
			return clone(weak)
		}
		if weak.IsNil() {
			return clone(strong)
		}
		inner := merge(strong.Elem(), weak.Elem())
		out := reflect.New(strong.Type()).Elem()
		out.Set(inner)
		return out
	case reflect.Slice:
		if strong.Len() == 0 {
			return clone(weak)
		}
		return clone(strong)
	default:
		if strong.IsZero() {
			return clone(weak)
		}
		return clone(strong)
	}
}

func clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(clone(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(clone(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(clone(v.Elem()))
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}

func cloneAny(v any) any {
	if v == nil {
		return nil
	}
	return clone(reflect.ValueOf(v)).Interface()
}
