package state

import (
	"time"

	"github.com/goliatone/go-resync/pkg/resource"
)

// Phase is the coarse load state of the collection.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// Health is the health slot. Known stays false until the first check lands.
type Health struct {
	Known      bool
	OK         bool
	Detail     string
	ServerTime string
	CheckedAt  time.Time
}

// State is an immutable view of the store. Values returned by Store are deep
// copies and may be kept by the caller.
type State struct {
	Records []resource.Record
	Loading bool
	Error   string
	Loaded  bool

	Draft         map[string]any
	DraftDefaults map[string]any
	SubmitError   string
	Submitting    int

	Health Health

	// Version increases by one with every applied event.
	Version uint64
}

// New returns the initial state with the draft seeded from defaults.
func New(defaults map[string]any) State {
	return State{
		Records:       []resource.Record{},
		Draft:         cloneMap(defaults),
		DraftDefaults: cloneMap(defaults),
	}
}

// Phase derives the load phase. An error wins over a stale loaded snapshot.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != "":
		return PhaseError
	case s.Loaded:
		return PhaseLoaded
	default:
		return PhaseIdle
	}
}

// Empty reports a successful load that returned no records.
func (s State) Empty() bool {
	return s.Phase() == PhaseLoaded && len(s.Records) == 0
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Records = cloneRecords(s.Records)
	out.Draft = cloneMap(s.Draft)
	out.DraftDefaults = cloneMap(s.DraftDefaults)
	return out
}

func cloneRecords(in []resource.Record) []resource.Record {
	out := make([]resource.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return map[string]any(resource.Record(in).Clone())
}
