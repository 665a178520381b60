package mode

import (
	"fmt"
	"time"

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/phrase"
	log "github.com/sirupsen/logrus"
)

// TimeSource is the clock chip.
type TimeSource interface {
	Now() (time.Time, error)
	// Temperature returns degrees Celsius.
	Temperature() (float64, error)
	// Adjust sets the time of day.  What happens to the date is up to the source.
	Adjust(hour, minute int) error
}

// LightSensor reports ambient light as a percentage, 0-100.
type LightSensor interface {
	Read() (int, error)
}

// Timing holds the tick intervals and the menu timeout.
type Timing struct {
	// Standard is the tick interval of ShowTime and ShowTemperature.
	Standard time.Duration
	// Fast is the tick interval of the edit modes.
	Fast time.Duration
	// Menu is how long ShowTemperature stays up, and how long the editors wait for a press.
	Menu time.Duration
}

// DefaultTiming is a 1s clock, a 200ms editor, and 5s menus.
var DefaultTiming = Timing{
	Standard: time.Second,
	Fast:     200 * time.Millisecond,
	Menu:     5 * time.Second,
}

// Refresh returns the tick interval of a mode.
func (t Timing) Refresh(m Mode) time.Duration {
	if m.Editing() {
		return t.Fast
	}
	return t.Standard
}

// Expiry returns the number of ticks after which a mode times out, or 0 if it never does.
func (t Timing) Expiry(m Mode) int {
	if m == ShowTime {
		return 0
	}
	r := t.Refresh(m)
	if r <= 0 {
		return 1
	}
	return int(t.Menu / r)
}

// EditBuffer is the time being edited.  It belongs to the tick goroutine.
type EditBuffer struct {
	Hour, Minute int
}

// Frame is the result of one tick.
type Frame struct {
	// Mode is the mode the tick ran in.
	Mode Mode
	// Directives is what to draw.  Empty when nothing could be read; the display should keep the
	// previous frame.
	Directives []frame.Directive
	// Brightness is the new display brightness, valid if SetBrightness is true.
	Brightness    uint8
	SetBrightness bool
	// Interval is how long to wait before the next tick.
	Interval time.Duration
}

// Machine decides what to draw on each tick.  It must only be used from one goroutine; the button
// goroutine talks to it through Shared.
type Machine struct {
	shared     *Shared
	clock      TimeSource
	light      LightSensor
	brightness func(pct int) uint8
	timing     Timing
	colors     phrase.Colors
	logger     *log.Entry

	edit     EditBuffer
	lastHour int
	prev     Mode
}

// Options configures a Machine.  Light and Brightness may be nil, in which case the brightness is
// never changed.
type Options struct {
	Light      LightSensor
	Brightness func(pct int) uint8
	Timing     Timing
	Colors     phrase.Colors
}

// New returns a machine that shares state with the button goroutine through s.
func New(s *Shared, clock TimeSource, opts Options) *Machine {
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming
	}
	if opts.Colors == (phrase.Colors{}) {
		opts.Colors = phrase.DefaultColors
	}
	return &Machine{
		shared:     s,
		clock:      clock,
		light:      opts.Light,
		brightness: opts.Brightness,
		timing:     opts.Timing,
		colors:     opts.Colors,
		logger:     log.WithField("component", "mode"),
		prev:       s.Load().Mode,
	}
}

// Edit returns the current edit buffer.
func (m *Machine) Edit() EditBuffer {
	return m.edit
}

// Tick runs one step of the state machine.  An error means a collaborator failed; the returned
// Frame is still valid and the mode has still advanced.
func (m *Machine) Tick() (Frame, error) {
	st := m.shared.Load()
	f := Frame{Mode: st.Mode, Interval: m.timing.Refresh(st.Mode)}
	next := st
	var err error

	if st.Mode == SetHour && m.prev != SetHour {
		m.edit = EditBuffer{Hour: m.lastHour}
		m.logger.WithField("hour", m.edit.Hour).Debug("editing hour")
	}

	switch st.Mode {
	case ShowTime:
		err = m.showTime(&f)
	case ShowTemperature:
		c, terr := m.clock.Temperature()
		if terr != nil {
			err = fmt.Errorf("read temperature: %w", terr)
		} else {
			f.Directives = phrase.Temperature(c, m.colors)
		}
		next = m.count(next)
	case SetHour:
		if st.Pending {
			m.edit.Hour = (m.edit.Hour + 1) % 24
			next.Pending = false
			next.MenuTimer = 0
		}
		f.Directives = phrase.SetHour(m.edit.Hour, m.colors)
		next = m.count(next)
		if next.Mode == SetMinute {
			now, nerr := m.clock.Now()
			if nerr != nil {
				err = fmt.Errorf("seed minute editor: %w", nerr)
			} else {
				m.edit.Minute = now.Minute()
			}
		}
	case SetMinute:
		if st.Pending {
			m.edit.Minute = (m.edit.Minute + 1) % 60
			next.Pending = false
			next.MenuTimer = 0
		}
		f.Directives = phrase.SetMinute(m.edit.Minute, m.colors)
		next = m.count(next)
		if next.Mode == ShowTime {
			if aerr := m.clock.Adjust(m.edit.Hour, m.edit.Minute); aerr != nil {
				err = fmt.Errorf("adjust clock to %02d:%02d: %w", m.edit.Hour, m.edit.Minute, aerr)
			} else {
				m.logger.WithField("time", fmt.Sprintf("%02d:%02d", m.edit.Hour, m.edit.Minute)).Info("clock adjusted")
			}
		}
	default:
		next = State{Mode: ShowTime}
		err = fmt.Errorf("unknown mode %v", st.Mode)
	}

	m.prev = m.publish(st, next)
	return f, err
}

func (m *Machine) showTime(f *Frame) error {
	now, err := m.clock.Now()
	if err != nil {
		return fmt.Errorf("read time: %w", err)
	}
	m.lastHour = now.Hour()
	f.Directives = phrase.Time(now.Hour(), now.Minute(), m.colors)
	if m.light == nil || m.brightness == nil {
		return nil
	}
	pct, err := m.light.Read()
	if err != nil {
		return fmt.Errorf("read light sensor: %w", err)
	}
	f.Brightness = m.brightness(pct)
	f.SetBrightness = true
	return nil
}

// count advances the menu timer and fires the mode's timeout.
func (m *Machine) count(s State) State {
	s.MenuTimer++
	if s.MenuTimer < m.timing.Expiry(s.Mode) {
		return s
	}
	switch s.Mode {
	case ShowTemperature, SetMinute:
		// Presses queued during the last tick of the editor are dropped with it.
		return State{Mode: ShowTime}
	case SetHour:
		return State{Mode: SetMinute}
	}
	return s
}

// publish writes next if the button goroutine didn't change the state during the tick, and returns
// the mode the machine should consider itself to be in.
func (m *Machine) publish(old, next State) Mode {
	for {
		if m.shared.CompareAndSwap(old, next) {
			if next.Mode != old.Mode {
				m.logger.WithFields(log.Fields{"from": old.Mode, "to": next.Mode}).Debug("mode change")
			}
			return next.Mode
		}
		cur := m.shared.Load()
		if cur.Mode != old.Mode || cur.MenuTimer != old.MenuTimer {
			// A press changed the mode; it wins, and the next tick sees it.
			m.logger.WithFields(log.Fields{"tick": next.Mode, "button": cur.Mode}).Debug("button overrode tick")
			return old.Mode
		}
		// Only a new pending press arrived.  Keep it for the next tick unless the editor is
		// closing.
		if next.Mode.Editing() {
			next.Pending = next.Pending || cur.Pending
		}
		old = cur
	}
}
