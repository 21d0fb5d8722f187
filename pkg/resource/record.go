package resource

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is one entity as returned by the remote service, keyed by wire
// field names. Records placed in a snapshot are treated as immutable; use
// Clone before modifying one.
type Record map[string]any

// Clone returns a copy of r, deep-copying nested objects and arrays.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Fields returns the record's field names sorted alphabetically.
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// ID renders the server assigned identifier, or "" when absent.
func (r Record) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// FieldSetError reports a collection whose records do not share one field
// set.
type FieldSetError struct {
	Index    int
	Missing  []string
	Extra    []string
	NotAnObj bool
}

func (e *FieldSetError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.NotAnObj {
		return fmt.Sprintf("item %d is not an object", e.Index)
	}
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("item %d field set differs from item 0: %s", e.Index, strings.Join(parts, "; "))
}

// checkFieldSets converts raw items into records and verifies that every
// record carries exactly the field names of the first one.
func checkFieldSets(items []any) ([]Record, error) {
	records := make([]Record, 0, len(items))
	var reference map[string]struct{}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &FieldSetError{Index: i, NotAnObj: true}
		}
		record := Record(obj).Clone()
		if reference == nil {
			reference = make(map[string]struct{}, len(record))
			for k := range record {
				reference[k] = struct{}{}
			}
			records = append(records, record)
			continue
		}
		var missing, extra []string
		for k := range reference {
			if _, ok := record[k]; !ok {
				missing = append(missing, k)
			}
		}
		for k := range record {
			if _, ok := reference[k]; !ok {
				extra = append(extra, k)
			}
		}
		if len(missing) > 0 || len(extra) > 0 {
			sort.Strings(missing)
			sort.Strings(extra)
			return nil, &FieldSetError{Index: i, Missing: missing, Extra: extra}
		}
		records = append(records, record)
	}
	return records, nil
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, inner := range typed {
			out[k] = cloneValue(inner)
		}
		return out
	case Record:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
