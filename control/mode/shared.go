// Package mode is the clock's operating-mode state machine.
//
// Two goroutines touch the mode: the button goroutine, which reacts to presses, and the tick
// goroutine, which draws frames and runs the menu timers.  Everything they share lives in one
// packed atomic word inside Shared; the tick goroutine works on a snapshot and publishes its result
// with a compare-and-swap.
package mode

import (
	"fmt"
	"sync/atomic"
)

// Mode is what the clock face is currently doing.
type Mode uint8

const (
	// ShowTime spells the time.  It's the initial mode and has no timeout.
	ShowTime Mode = iota
	// ShowTemperature shows the RTC's temperature for a few seconds.
	ShowTemperature
	// SetHour edits the hour; each short press adds one.
	SetHour
	// SetMinute edits the minute and commits the edit when it times out.
	SetMinute
)

func (m Mode) String() string {
	switch m {
	case ShowTime:
		return "time"
	case ShowTemperature:
		return "temperature"
	case SetHour:
		return "set-hour"
	case SetMinute:
		return "set-minute"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Editing is true for the modes where short presses are queued instead of changing the mode.
func (m Mode) Editing() bool {
	return m == SetHour || m == SetMinute
}

// State is one consistent view of the shared state.
type State struct {
	Mode Mode
	// MenuTimer counts the ticks spent in the current mode since it was entered or last touched.
	MenuTimer int
	// Pending is set by a short press in an edit mode and consumed by the next tick.
	Pending bool
}

func (s State) String() string {
	return fmt.Sprintf("%v timer=%d pending=%v", s.Mode, s.MenuTimer, s.Pending)
}

const (
	modeMask    = 0xff
	pendingBit  = 1 << 8
	timerShift  = 16
	maxMenuTime = 0xffff
)

func pack(s State) uint32 {
	t := s.MenuTimer
	if t < 0 {
		t = 0
	}
	if t > maxMenuTime {
		t = maxMenuTime
	}
	v := uint32(s.Mode) | uint32(t)<<timerShift
	if s.Pending {
		v |= pendingBit
	}
	return v
}

func unpack(v uint32) State {
	return State{
		Mode:      Mode(v & modeMask),
		MenuTimer: int(v >> timerShift),
		Pending:   v&pendingBit != 0,
	}
}

// Shared is the state the button and tick goroutines share.  The zero value is ShowTime with a
// cleared timer.
type Shared struct {
	v atomic.Uint32
}

// Load returns a snapshot of the shared state.
func (s *Shared) Load() State {
	return unpack(s.v.Load())
}

// Store unconditionally replaces the state.  Only for initialization and tests.
func (s *Shared) Store(st State) {
	s.v.Store(pack(st))
}

// CompareAndSwap replaces old with new if nobody changed the state since old was loaded.
func (s *Shared) CompareAndSwap(old, new State) bool {
	return s.v.CompareAndSwap(pack(old), pack(new))
}

// EnterSetHour starts the time editor.  It only works from ShowTime and reports whether it did
// anything.
func (s *Shared) EnterSetHour() bool {
	for {
		old := s.v.Load()
		if unpack(old).Mode != ShowTime {
			return false
		}
		if s.v.CompareAndSwap(old, pack(State{Mode: SetHour})) {
			return true
		}
	}
}

// ShortPress applies a short press.  From ShowTime or ShowTemperature it (re)starts the
// temperature display and returns true.  In the edit modes it leaves a pending press for the tick
// goroutine and returns false.
func (s *Shared) ShortPress() bool {
	for {
		old := s.v.Load()
		st := unpack(old)
		var next State
		if st.Mode.Editing() {
			next = st
			next.Pending = true
		} else {
			next = State{Mode: ShowTemperature}
		}
		if s.v.CompareAndSwap(old, pack(next)) {
			return !st.Mode.Editing()
		}
	}
}
