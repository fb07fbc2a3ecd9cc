// Package tlmt defines the anonymous usage telemetry interface.
package tlmt

import "context"

// Event is a single telemetry event.
type Event struct {
	Name       string
	Properties map[string]any
}

// NewEvent creates an Event.
func NewEvent(name string, properties map[string]any) Event {
	return Event{Name: name, Properties: properties}
}

// Telemetry sends events to a backend. Implementations must be safe
// for concurrent use.
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
