package state

import (
	"github.com/goliatone/go-resync/pkg/resource"
)

// Event is a state transition. The set of events is closed.
type Event interface {
	isEvent()
}

// LoadingSet toggles the loading flag.
type LoadingSet struct{ Loading bool }

// ErrorSet records a collection error and clears Loading. An empty Message
// clears the error.
type ErrorSet struct{ Message string }

// LoadStarted marks the start of a load: Loading on, previous error cleared.
type LoadStarted struct{}

// SnapshotSet replaces the collection after a successful load.
type SnapshotSet struct{ Records []resource.Record }

// RecordPrepended inserts one confirmed record at the head of the collection.
type RecordPrepended struct{ Record resource.Record }

// DraftSet merges fields into the draft.
type DraftSet struct{ Fields map[string]any }

// DraftFieldsReset returns fields to their draft defaults. Fields without a
// default are removed from the draft.
type DraftFieldsReset struct{ Fields []string }

// SubmitStarted counts a create in flight and clears the previous submit
// error.
type SubmitStarted struct{}

// SubmitFailed ends an in-flight create with an error message. The draft is
// left as it is.
type SubmitFailed struct{ Message string }

// SubmitSucceeded ends an in-flight create: the record is prepended and the
// listed draft fields are reset.
type SubmitSucceeded struct {
	Record resource.Record
	Reset  []string
}

// HealthSet replaces the health slot.
type HealthSet struct{ Health Health }

func (LoadingSet) isEvent()       {}
func (ErrorSet) isEvent()         {}
func (LoadStarted) isEvent()      {}
func (SnapshotSet) isEvent()      {}
func (RecordPrepended) isEvent()  {}
func (DraftSet) isEvent()         {}
func (DraftFieldsReset) isEvent() {}
func (SubmitStarted) isEvent()    {}
func (SubmitFailed) isEvent()     {}
func (SubmitSucceeded) isEvent()  {}
func (HealthSet) isEvent()        {}

// Reduce applies ev to prev and returns the next state. prev is not
// modified; unknown events return prev unchanged.
func Reduce(prev State, ev Event) State {
	next := prev
	switch e := ev.(type) {
	case LoadingSet:
		next.Loading = e.Loading
	case ErrorSet:
		next.Error = e.Message
		next.Loading = false
	case LoadStarted:
		next.Loading = true
		next.Error = ""
	case SnapshotSet:
		next.Records = cloneRecords(e.Records)
		next.Loading = false
		next.Error = ""
		next.Loaded = true
	case RecordPrepended:
		next.Records = prepend(prev.Records, e.Record)
	case DraftSet:
		next.Draft = cloneMap(prev.Draft)
		for k, v := range cloneMap(e.Fields) {
			next.Draft[k] = v
		}
	case DraftFieldsReset:
		next.Draft = resetFields(prev.Draft, prev.DraftDefaults, e.Fields)
	case SubmitStarted:
		next.Submitting++
		next.SubmitError = ""
	case SubmitFailed:
		next.Submitting = decrement(prev.Submitting)
		next.SubmitError = e.Message
	case SubmitSucceeded:
		next.Submitting = decrement(prev.Submitting)
		next.SubmitError = ""
		next.Records = prepend(prev.Records, e.Record)
		next.Draft = resetFields(prev.Draft, prev.DraftDefaults, e.Reset)
	case HealthSet:
		next.Health = e.Health
		next.Health.Known = true
	default:
		return prev
	}
	next.Version = prev.Version + 1
	return next
}

func prepend(records []resource.Record, record resource.Record) []resource.Record {
	out := make([]resource.Record, 0, len(records)+1)
	out = append(out, record.Clone())
	return append(out, records...)
}

func resetFields(draft, defaults map[string]any, fields []string) map[string]any {
	out := cloneMap(draft)
	for _, field := range fields {
		if v, ok := defaults[field]; ok {
			out[field] = cloneValue(v)
			continue
		}
		delete(out, field)
	}
	return out
}

func cloneValue(v any) any {
	wrapped := resource.Record{"v": v}.Clone()
	return wrapped["v"]
}

func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
