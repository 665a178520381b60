// Package gesture turns raw button edges into short and long presses.
package gesture

import (
	"fmt"
	"time"

	"github.com/jrockway/wordclock/control/mode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

// Event is what the classifier made of an edge.
type Event int

const (
	// Press is a clean press edge.  It only starts the timer.
	Press Event = iota
	// ShortPress is a release within LongPress of the press.
	ShortPress
	// LongPress is a release more than LongPress after the press.
	LongPress
	// Bounce is an edge too close to the previous one; it's ignored.
	Bounce
	// Malformed is a press while already pressed, or a release without a press.  The stray edge
	// is dropped.
	Malformed
)

func (e Event) String() string {
	switch e {
	case Press:
		return "press"
	case ShortPress:
		return "short"
	case LongPress:
		return "long"
	case Bounce:
		return "bounce"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

var buttonEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "button_events_total",
	Help: "count of button edges, by how they were classified",
}, []string{"event"})

const (
	DefaultLongPress = 500 * time.Millisecond
	DefaultDebounce  = 20 * time.Millisecond
)

// Classifier debounces edges and applies presses to the shared mode state.  Edge must only be
// called from one goroutine.
type Classifier struct {
	shared    *mode.Shared
	longPress time.Duration
	debounce  time.Duration
	l         trace.EventLog

	pressed   bool
	pressedAt time.Time
	lastEdge  time.Time
}

// New returns a classifier.  Zero durations select the defaults.
func New(s *mode.Shared, longPress, debounce time.Duration) *Classifier {
	if longPress == 0 {
		longPress = DefaultLongPress
	}
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	return &Classifier{
		shared:    s,
		longPress: longPress,
		debounce:  debounce,
		l:         trace.NewEventLog("button", "gesture"),
	}
}

// Close releases the event log.
func (c *Classifier) Close() {
	c.l.Finish()
}

// Edge handles one transition of the button.  at must come from a monotonic clock.
func (c *Classifier) Edge(pressed bool, at time.Time) Event {
	e := c.classify(pressed, at)
	buttonEvents.WithLabelValues(e.String()).Inc()
	return e
}

func (c *Classifier) classify(pressed bool, at time.Time) Event {
	if !c.lastEdge.IsZero() && at.Sub(c.lastEdge) < c.debounce {
		return Bounce
	}
	c.lastEdge = at

	if pressed {
		if c.pressed {
			c.l.Errorf("press while already pressed; discarding press from %s ago", at.Sub(c.pressedAt))
			c.pressedAt = at
			return Malformed
		}
		c.pressed = true
		c.pressedAt = at
		return Press
	}

	if !c.pressed {
		c.l.Errorf("release without a press")
		return Malformed
	}
	c.pressed = false
	d := at.Sub(c.pressedAt)
	if d > c.longPress {
		if c.shared.EnterSetHour() {
			c.l.Printf("long press (%s): setting hour", d)
		} else {
			c.l.Printf("long press (%s): ignored in %v", d, c.shared.Load().Mode)
		}
		return LongPress
	}
	if c.shared.ShortPress() {
		c.l.Printf("short press (%s): showing temperature", d)
	} else {
		c.l.Printf("short press (%s): queued for editor", d)
	}
	return ShortPress
}
