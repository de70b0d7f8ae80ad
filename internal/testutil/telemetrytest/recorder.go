// Package telemetrytest provides an in-memory telemetry.Tracker for tests.
package telemetrytest

import "sync"

// Event is one recorded track call.
type Event struct {
	Step     string
	State    string
	Progress int
	Name     string
	UserID   string
}

// Recorder keeps every event it receives. Err is returned from every call when set.
type Recorder struct {
	mu         sync.Mutex
	events     []Event
	identifies int

	Err error
}

// SendTrack records the event.
func (r *Recorder) SendTrack(step, state string, progress int, name, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		Step:     step,
		State:    state,
		Progress: progress,
		Name:     name,
		UserID:   userID,
	})

	return r.Err
}

// SendIdentify counts the call.
func (r *Recorder) SendIdentify() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identifies++

	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return Event{}
	}

	return r.events[len(r.events)-1]
}

// Identifies returns how many identify calls were made.
func (r *Recorder) Identifies() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.identifies
}
