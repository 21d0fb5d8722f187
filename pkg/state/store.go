package state

import (
	"sync"

	"github.com/goliatone/go-resync/pkg/resource"
)

// Listener observes every applied transition. It receives a private copy of
// the new state. Listeners run outside the store lock and may be invoked
// concurrently when events are dispatched from several goroutines; use
// State.Version to discard out-of-order deliveries.
type Listener func(State)

// Store is a mutex-guarded holder of State. The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore returns a store whose draft starts at, and resets to, defaults.
func NewStore(defaults map[string]any) *Store {
	return &Store{
		state:     New(defaults),
		listeners: map[uint64]Listener{},
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dispatch applies ev and notifies listeners. It returns the new state.
func (s *Store) Dispatch(ev Event) State {
	current, _ := s.DispatchIf(ev, nil)
	return current
}

// DispatchIf applies ev only when cond, evaluated under the store lock,
// reports true. It returns the resulting state and whether ev was applied.
func (s *Store) DispatchIf(ev Event, cond func(State) bool) (State, bool) {
	s.mu.Lock()
	if cond != nil && !cond(s.state) {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, false
	}
	s.state = Reduce(s.state, ev)
	current := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(current.Clone())
	}
	return current.Clone(), true
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) SetLoading(loading bool) { s.Dispatch(LoadingSet{Loading: loading}) }

// SetError records message and clears Loading. An empty message clears the
// error.
func (s *Store) SetError(message string) { s.Dispatch(ErrorSet{Message: message}) }

// SetSnapshot replaces the collection and clears Loading and Error.
func (s *Store) SetSnapshot(records []resource.Record) { s.Dispatch(SnapshotSet{Records: records}) }

// Prepend inserts record at index 0 without touching the load state.
func (s *Store) Prepend(record resource.Record) { s.Dispatch(RecordPrepended{Record: record}) }

func (s *Store) SetDraft(partial map[string]any) { s.Dispatch(DraftSet{Fields: partial}) }

// ResetDraftFields returns fields to the store's draft defaults and keeps
// every other draft field.
func (s *Store) ResetDraftFields(fields ...string) { s.Dispatch(DraftFieldsReset{Fields: fields}) }
