// Package status carries the loading/success/error signals a UI layer shows
// for ledger operations. Messages are user-facing text, not error values.
package status

import "sync"

// Sink receives status transitions keyed by feature (e.g. "points").
type Sink interface {
	SetLoading(key string, loading bool)
	SetSuccess(key, message string)
	SetError(key, message string)
}

// Nop discards every signal.
type Nop struct{}

func (Nop) SetLoading(string, bool)   {}
func (Nop) SetSuccess(string, string) {}
func (Nop) SetError(string, string)   {}

// Func adapts a plain function to Sink. Each signal arrives as an Event.
type Func func(Event)

// SetLoading implements Sink.
func (f Func) SetLoading(key string, loading bool) {
	kind := KindIdle
	if loading {
		kind = KindLoading
	}
	f(Event{Key: key, Kind: kind})
}

// SetSuccess implements Sink.
func (f Func) SetSuccess(key, message string) {
	f(Event{Key: key, Kind: KindSuccess, Message: message})
}

// SetError implements Sink.
func (f Func) SetError(key, message string) {
	f(Event{Key: key, Kind: KindError, Message: message})
}

// Kind labels a recorded signal.
type Kind string

const (
	KindLoading Kind = "loading"
	KindIdle    Kind = "idle"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Event is one recorded signal.
type Event struct {
	Key     string
	Kind    Kind
	Message string
}

// State is the latest status for a key.
type State struct {
	Loading bool
	Success string
	Error   string
}

// Recorder is an in-memory Sink that keeps the latest State per key and the
// full event history. It is safe for concurrent use.
type Recorder struct {
	mu     sync.RWMutex
	states map[string]State
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{states: make(map[string]State)}
}

// SetLoading implements Sink.
func (r *Recorder) SetLoading(key string, loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.states[key]
	st.Loading = loading
	if loading {
		st.Success, st.Error = "", ""
	}
	r.states[key] = st

	kind := KindIdle
	if loading {
		kind = KindLoading
	}
	r.events = append(r.events, Event{Key: key, Kind: kind})
}

// SetSuccess implements Sink.
func (r *Recorder) SetSuccess(key, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.states[key]
	st.Success, st.Error = message, ""
	r.states[key] = st
	r.events = append(r.events, Event{Key: key, Kind: KindSuccess, Message: message})
}

// SetError implements Sink.
func (r *Recorder) SetError(key, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.states[key]
	st.Error, st.Success = message, ""
	r.states[key] = st
	r.events = append(r.events, Event{Key: key, Kind: KindError, Message: message})
}

// State returns the latest state for key.
func (r *Recorder) State(key string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[key]
}

// Events returns a copy of every recorded signal in order.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded kinds for key in order.
func (r *Recorder) Kinds(key string) []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Kind
	for _, e := range r.events {
		if e.Key == key {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Reset clears all recorded state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = make(map[string]State)
	r.events = nil
}
