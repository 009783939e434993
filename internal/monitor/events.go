package monitor

import (
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

// EventType tags an Event.
type EventType string

const (
	EventStable EventType = "stable"
	EventScroll EventType = "scroll"
	EventStatus EventType = "status"
)

// Detection is a stable event placed on screen.
type Detection struct {
	stability.StableEvent
	Region  screen.Region `json:"region"`
	ScreenX int           `json:"screen_x"`
	ScreenY int           `json:"screen_y"`
}

// ScrollProgress reports a running or finished scroll search.
type ScrollProgress struct {
	State string `json:"state"`
	Step  int    `json:"step"`
	Max   int    `json:"max"`
}

// Event is published to subscribers of Manager.Events.
type Event struct {
	Type      EventType       `json:"type"`
	Detection *Detection      `json:"detection,omitempty"`
	Scroll    *ScrollProgress `json:"scroll,omitempty"`
	Status    *Status         `json:"status,omitempty"`
}

// publish sends without blocking; a full buffer drops the event.
func (m *Manager) publish(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.dropped.Add(1)
	}
}

// Events returns the event channel.
func (m *Manager) Events() <-chan Event {
	return m.events
}
