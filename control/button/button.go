// Package button watches the clock's push button on a GPIO line.
package button

import (
	"context"
	"fmt"
	"time"

	"github.com/jrockway/wordclock/control/gesture"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// EdgeHandler receives raw edges; pressed means the button went down.
type EdgeHandler interface {
	Edge(pressed bool, at time.Time) gesture.Event
}

// Watcher feeds the edges of one GPIO line to an EdgeHandler.
type Watcher struct {
	pin        gpio.PinIn
	handler    EdgeHandler
	activeHigh bool

	// Now timestamps edges; it's time.Now outside of tests.
	Now func() time.Time
	// Poll is how often Run wakes up to check for cancellation.
	Poll time.Duration
}

// New returns a watcher.  A button that pulls the line low when pressed (the usual wiring, with the
// internal pull-up enabled) is activeHigh=false.
func New(pin gpio.PinIn, h EdgeHandler, activeHigh bool) *Watcher {
	return &Watcher{
		pin:        pin,
		handler:    h,
		activeHigh: activeHigh,
		Now:        time.Now,
		Poll:       100 * time.Millisecond,
	}
}

// Open returns a watcher for the pin registered under name.  Call it before anything is drawn; a
// missing pin is a configuration error.
func Open(name string, h EdgeHandler, activeHigh bool) (*Watcher, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return New(pin, h, activeHigh), nil
}

func (w *Watcher) pressed(l gpio.Level) bool {
	return l == gpio.Level(w.activeHigh)
}

// Run watches the pin until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	pull := gpio.PullUp
	if w.activeHigh {
		pull = gpio.PullDown
	}
	if err := w.pin.In(pull, gpio.BothEdges); err != nil {
		return fmt.Errorf("configure button pin %s: %w", w.pin, err)
	}
	logger := log.WithFields(log.Fields{"component": "button", "pin": w.pin.String()})
	last := w.pressed(w.pin.Read())
	logger.WithField("pressed", last).Info("watching button")
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watch button: %w", ctx.Err())
		default:
		}
		if !w.pin.WaitForEdge(w.Poll) {
			continue
		}
		p := w.pressed(w.pin.Read())
		if p == last {
			// A press and release both happened before we could read the line.
			continue
		}
		last = p
		e := w.handler.Edge(p, w.Now())
		logger.WithFields(log.Fields{"pressed": p, "event": e}).Debug("edge")
	}
}
