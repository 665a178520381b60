// Package clock runs the display loop: tick the mode machine, paint what it asks for, sleep, repeat.
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/layout"
	"github.com/jrockway/wordclock/control/mode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"
)

var (
	ticksCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_total",
		Help: "count of ticks run, by the mode they ran in",
	}, []string{"mode"})

	tickErrorsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tick_errors_total",
		Help: "count of ticks where reading the clock, light sensor or display failed",
	})

	lateTicksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "late_ticks_total",
		Help: "count of ticks whose work took longer than the tick interval",
	})

	tickDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tick_duration",
		Help:    "time spent ticking the state machine and painting the frame, in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	modeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "operating_mode",
		Help: "current operating mode; 0 time, 1 temperature, 2 set hour, 3 set minute",
	})
)

// Ticker produces one frame per call.  *mode.Machine is the real one.
type Ticker interface {
	Tick() (mode.Frame, error)
}

// Clock draws the frames of a Ticker on a Surface.
type Clock struct {
	ticker   Ticker
	surface  frame.Surface
	renderer *frame.Renderer
	events   trace.EventLog
	logger   *log.Entry

	// Sleep waits between ticks.  It returns early with an error when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// Observe, if set, is called after every tick with the frame and the first error of the tick.
	Observe func(f mode.Frame, err error)
}

// New returns a Clock that paints on s using l.
func New(t Ticker, s frame.Surface, l *layout.Layout) *Clock {
	return &Clock{
		ticker:   t,
		surface:  s,
		renderer: &frame.Renderer{Layout: l},
		events:   trace.NewEventLog("clock", l.Name),
		logger:   log.WithField("component", "clock"),
		Sleep:    sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the clock's event log.
func (c *Clock) Close() {
	c.events.Finish()
}

// Step runs one tick.  Failures of the time source, light sensor or strip are logged and the clock
// keeps going; the returned error is only set when the frame can't be drawn on this display at
// all.
func (c *Clock) Step() (mode.Frame, error) {
	f, err := c.ticker.Tick()
	ticksCounter.WithLabelValues(f.Mode.String()).Inc()
	modeGauge.Set(float64(f.Mode))
	if err != nil {
		tickErrorsCounter.Inc()
		c.events.Errorf("tick in %v: %v", f.Mode, err)
		c.logger.WithError(err).WithField("mode", f.Mode).Warn("tick failed")
	}
	if f.SetBrightness {
		c.surface.SetBrightness(f.Brightness)
	}
	fatal := c.paint(f, &err)
	if c.Observe != nil {
		c.Observe(f, err)
	}
	return f, fatal
}

// paint draws the frame.  A failure to show it is stored in errp if nothing failed earlier in the
// tick; only geometry errors are returned.
func (c *Clock) paint(f mode.Frame, errp *error) error {
	if len(f.Directives) == 0 {
		// Keep whatever is on the display.
		return nil
	}
	err := c.renderer.Paint(c.surface, f.Directives)
	if err == nil {
		c.events.Printf("%v: %d directives", f.Mode, len(f.Directives))
		return nil
	}
	c.events.Errorf("paint: %v", err)
	if *errp == nil {
		*errp = err
	}
	var gerr *frame.GeometryError
	if errors.As(err, &gerr) {
		return fmt.Errorf("paint: %w", err)
	}
	tickErrorsCounter.Inc()
	c.logger.WithError(err).Warn("paint failed")
	return nil
}

// Run runs the clock until the context is cancelled or a frame can't be drawn.  A tick that runs
// long is not skipped; the next one just starts late.
func (c *Clock) Run(ctx context.Context) error {
	c.logger.Info("clock running")
	for {
		start := time.Now()
		f, err := c.Step()
		if err != nil {
			return err
		}
		took := time.Since(start)
		tickDurationMetric.Observe(took.Seconds())
		if took > f.Interval {
			lateTicksCounter.Inc()
			c.logger.WithFields(log.Fields{"took": took, "interval": f.Interval}).Debug("late tick")
		}
		if err := c.Sleep(ctx, f.Interval); err != nil {
			return fmt.Errorf("waiting for next tick: %w", err)
		}
	}
}
