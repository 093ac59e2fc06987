// Package notify carries store change events to presentation layers.
//
// The store publishes an Event after each effective change. Publishers never
// block on subscribers: the WebSocket server queues events and drops them
// when its buffer is full, and the Discard notifier ignores them.
package notify

import (
	"sync"
	"time"
)

// EventType names a kind of change.
type EventType string

const (
	// ProjectListChanged means the set of projects or their summaries changed.
	ProjectListChanged EventType = "project_list_changed"

	// ProjectChanged means a project record was saved.
	ProjectChanged EventType = "project_changed"

	// SceneChanged means one scene was edited in an open session.
	SceneChanged EventType = "scene_changed"

	// Hello is sent once to each WebSocket client on connect.
	Hello EventType = "hello"
)

// Event is one change notification. Project and scene ids are set when
// they apply.
type Event struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"projectId,omitempty"`
	SceneID   string    `json:"sceneId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives events.
type Notifier interface {
	Publish(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Publish implements Notifier.
func (f NotifierFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(Event) {})

// Multi fans an event out to several notifiers in order.
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(e Event) {
		for _, n := range ns {
			if n != nil {
				n.Publish(e)
			}
		}
	})
}

// Recorder keeps every published event. Useful in tests and for --json
// output of what a command changed.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Notifier.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
