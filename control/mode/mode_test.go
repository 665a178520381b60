package mode

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/layout"
	"github.com/jrockway/wordclock/control/phrase"
)

type fakeClock struct {
	now       time.Time
	temp      float64
	nowErr    error
	tempErr   error
	adjustErr error
	adjusted  []EditBuffer

	// Hooks run in the middle of a tick, to simulate a button press racing with it.
	onNow  func()
	onTemp func()
}

func (c *fakeClock) Now() (time.Time, error) {
	if c.onNow != nil {
		c.onNow()
	}
	return c.now, c.nowErr
}

func (c *fakeClock) Temperature() (float64, error) {
	if c.onTemp != nil {
		c.onTemp()
	}
	return c.temp, c.tempErr
}

func (c *fakeClock) Adjust(hour, minute int) error {
	c.adjusted = append(c.adjusted, EditBuffer{Hour: hour, Minute: minute})
	return c.adjustErr
}

type fakeLight struct {
	pct   int
	err   error
	reads int
}

func (l *fakeLight) Read() (int, error) {
	l.reads++
	return l.pct, l.err
}

func at(h, m int) time.Time {
	return time.Date(2021, 3, 14, h, m, 0, 0, time.UTC)
}

func mustTick(t *testing.T, m *Machine) Frame {
	t.Helper()
	f, err := m.Tick()
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	return f
}

func TestPack(t *testing.T) {
	for _, st := range []State{
		{},
		{Mode: SetMinute, MenuTimer: 24, Pending: true},
		{Mode: ShowTemperature, MenuTimer: 4},
		{Mode: SetHour, Pending: true},
	} {
		if got, want := unpack(pack(st)), st; got != want {
			t.Errorf("round trip:\n  got: %v\n want: %v", got, want)
		}
	}
}

func TestShortPress(t *testing.T) {
	testData := []struct {
		name       string
		start      State
		wantSwitch bool
		want       State
	}{
		{
			name:       "time shows temperature",
			start:      State{Mode: ShowTime},
			wantSwitch: true,
			want:       State{Mode: ShowTemperature},
		},
		{
			name:       "temperature restarts its timer",
			start:      State{Mode: ShowTemperature, MenuTimer: 3},
			wantSwitch: true,
			want:       State{Mode: ShowTemperature},
		},
		{
			name:  "set hour queues a press",
			start: State{Mode: SetHour, MenuTimer: 7},
			want:  State{Mode: SetHour, MenuTimer: 7, Pending: true},
		},
		{
			name:  "set minute queues a press",
			start: State{Mode: SetMinute, MenuTimer: 2},
			want:  State{Mode: SetMinute, MenuTimer: 2, Pending: true},
		},
		{
			name:  "presses merge until consumed",
			start: State{Mode: SetMinute, Pending: true},
			want:  State{Mode: SetMinute, Pending: true},
		},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			var s Shared
			s.Store(test.start)
			if got, want := s.ShortPress(), test.wantSwitch; got != want {
				t.Errorf("switched:\n  got: %v\n want: %v", got, want)
			}
			if got, want := s.Load(), test.want; got != want {
				t.Errorf("state:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestEnterSetHour(t *testing.T) {
	var s Shared
	if !s.EnterSetHour() {
		t.Error("long press from time: expected to enter set hour")
	}
	if got, want := s.Load(), (State{Mode: SetHour}); got != want {
		t.Errorf("state:\n  got: %v\n want: %v", got, want)
	}
	for _, m := range []Mode{ShowTemperature, SetHour, SetMinute} {
		start := State{Mode: m, MenuTimer: 3}
		s.Store(start)
		if s.EnterSetHour() {
			t.Errorf("long press from %v: expected no effect", m)
		}
		if got, want := s.Load(), start; got != want {
			t.Errorf("long press from %v:\n  got: %v\n want: %v", m, got, want)
		}
	}
}

func TestTiming(t *testing.T) {
	if got, want := DefaultTiming.Expiry(ShowTemperature), 5; got != want {
		t.Errorf("temperature expiry:\n  got: %v\n want: %v", got, want)
	}
	if got, want := DefaultTiming.Expiry(SetHour), 25; got != want {
		t.Errorf("set hour expiry:\n  got: %v\n want: %v", got, want)
	}
	if got, want := DefaultTiming.Expiry(ShowTime), 0; got != want {
		t.Errorf("time expiry:\n  got: %v\n want: %v", got, want)
	}
	if got, want := DefaultTiming.Refresh(SetMinute), 200*time.Millisecond; got != want {
		t.Errorf("set minute refresh:\n  got: %v\n want: %v", got, want)
	}
	if got, want := DefaultTiming.Refresh(ShowTemperature), time.Second; got != want {
		t.Errorf("temperature refresh:\n  got: %v\n want: %v", got, want)
	}
}

func TestShowTime(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(14, 7)}
	light := &fakeLight{pct: 50}
	m := New(&s, clock, Options{
		Light:      light,
		Brightness: func(pct int) uint8 { return uint8(pct * 2) },
	})
	f := mustTick(t, m)
	if got, want := f.Directives, phrase.Time(14, 7, phrase.DefaultColors); !reflect.DeepEqual(got, want) {
		t.Errorf("directives:\n  got: %v\n want: %v", got, want)
	}
	if !f.SetBrightness || f.Brightness != 100 {
		t.Errorf("brightness: got %v (set=%v), want 100", f.Brightness, f.SetBrightness)
	}
	if got, want := f.Interval, time.Second; got != want {
		t.Errorf("interval:\n  got: %v\n want: %v", got, want)
	}
	if got, want := s.Load(), (State{Mode: ShowTime}); got != want {
		t.Errorf("state:\n  got: %v\n want: %v", got, want)
	}

	light.err = errors.New("i2c is sad")
	f, err := m.Tick()
	if err == nil {
		t.Error("expected light sensor error")
	}
	if len(f.Directives) == 0 {
		t.Error("time should still be drawn when the light sensor fails")
	}
	if f.SetBrightness {
		t.Error("brightness should not change when the light sensor fails")
	}

	clock.nowErr = errors.New("rtc is sad")
	f, err = m.Tick()
	if err == nil {
		t.Error("expected clock error")
	}
	if len(f.Directives) != 0 {
		t.Errorf("nothing should be drawn without a time, got %v", f.Directives)
	}
}

func TestTemperatureTimeout(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(10, 0), temp: 21.5}
	light := &fakeLight{pct: 100}
	m := New(&s, clock, Options{Light: light, Brightness: func(int) uint8 { return 255 }})
	if !s.ShortPress() {
		t.Fatal("short press didn't switch to temperature")
	}
	for i := 1; i <= 5; i++ {
		f := mustTick(t, m)
		if got, want := f.Mode, ShowTemperature; got != want {
			t.Fatalf("tick %d: mode:\n  got: %v\n want: %v", i, got, want)
		}
		if got, want := f.Directives, phrase.Temperature(21.5, phrase.DefaultColors); !reflect.DeepEqual(got, want) {
			t.Errorf("tick %d: directives:\n  got: %v\n want: %v", i, got, want)
		}
		if f.SetBrightness {
			t.Errorf("tick %d: brightness changed outside of time mode", i)
		}
	}
	if got, want := light.reads, 0; got != want {
		t.Errorf("light reads:\n  got: %v\n want: %v", got, want)
	}
	if got, want := s.Load(), (State{Mode: ShowTime}); got != want {
		t.Errorf("after 5 ticks:\n  got: %v\n want: %v", got, want)
	}
}

func TestTemperatureError(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(10, 0), tempErr: errors.New("no sensor")}
	m := New(&s, clock, Options{})
	s.ShortPress()
	for i := 0; i < 5; i++ {
		f, err := m.Tick()
		if err == nil {
			t.Errorf("tick %d: expected error", i)
		}
		if len(f.Directives) != 0 {
			t.Errorf("tick %d: expected no directives", i)
		}
	}
	if got, want := s.Load().Mode, ShowTime; got != want {
		t.Errorf("mode after timeout:\n  got: %v\n want: %v", got, want)
	}
}

func TestEditSession(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(5, 30)}
	m := New(&s, clock, Options{})

	mustTick(t, m)
	if !s.EnterSetHour() {
		t.Fatal("long press didn't enter set hour")
	}

	f := mustTick(t, m)
	if got, want := f.Interval, 200*time.Millisecond; got != want {
		t.Errorf("interval:\n  got: %v\n want: %v", got, want)
	}
	if got, want := m.Edit().Hour, 5; got != want {
		t.Errorf("seeded hour:\n  got: %v\n want: %v", got, want)
	}
	for i := 0; i < 3; i++ {
		s.ShortPress()
		mustTick(t, m)
	}
	if got, want := m.Edit().Hour, 8; got != want {
		t.Errorf("hour after three presses:\n  got: %v\n want: %v", got, want)
	}
	if got, want := s.Load(), (State{Mode: SetHour, MenuTimer: 1}); got != want {
		t.Errorf("state after press:\n  got: %v\n want: %v", got, want)
	}

	// 24 more ticks without a press move on to the minutes.
	clock.now = at(5, 41)
	for i := 0; i < 23; i++ {
		if f := mustTick(t, m); f.Mode != SetHour {
			t.Fatalf("tick %d: left set hour early", i)
		}
	}
	if s.Load().Mode != SetHour {
		t.Fatal("left set hour early")
	}
	mustTick(t, m)
	if got, want := s.Load(), (State{Mode: SetMinute}); got != want {
		t.Errorf("after hour timeout:\n  got: %v\n want: %v", got, want)
	}
	if len(clock.adjusted) != 0 {
		t.Errorf("clock adjusted before the minute editor finished: %v", clock.adjusted)
	}
	if got, want := m.Edit(), (EditBuffer{Hour: 8, Minute: 41}); got != want {
		t.Errorf("edit buffer:\n  got: %v\n want: %v", got, want)
	}

	s.ShortPress()
	f = mustTick(t, m)
	want := []frame.Directive{
		{Group: layout.MinuteLabel, Index: 0, Offset: frame.NoRow, Color: frame.Blue},
		{Group: layout.Digit, Index: 4, Offset: frame.Row(6), Color: frame.Green},
		{Group: layout.Digit, Index: 2, Offset: frame.Row(0), Color: frame.Green},
	}
	if got := f.Directives; !reflect.DeepEqual(got, want) {
		t.Errorf("minute editor:\n  got: %v\n want: %v", got, want)
	}

	for i := 0; i < 24; i++ {
		mustTick(t, m)
	}
	if got, want := clock.adjusted, []EditBuffer{{Hour: 8, Minute: 42}}; !reflect.DeepEqual(got, want) {
		t.Errorf("adjustments:\n  got: %v\n want: %v", got, want)
	}
	if got, want := s.Load(), (State{Mode: ShowTime}); got != want {
		t.Errorf("after commit:\n  got: %v\n want: %v", got, want)
	}
}

func TestWraparound(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(23, 59)}
	m := New(&s, clock, Options{})
	mustTick(t, m)
	s.EnterSetHour()
	mustTick(t, m)
	s.ShortPress()
	mustTick(t, m)
	if got, want := m.Edit().Hour, 0; got != want {
		t.Errorf("hour after 23:\n  got: %v\n want: %v", got, want)
	}
	s.Store(State{Mode: SetMinute})
	mustTick(t, m)
	m.edit.Minute = 59
	s.ShortPress()
	mustTick(t, m)
	if got, want := m.Edit().Minute, 0; got != want {
		t.Errorf("minute after 59:\n  got: %v\n want: %v", got, want)
	}
}

func TestPendingConsumedOnce(t *testing.T) {
	var s Shared
	m := New(&s, &fakeClock{now: at(3, 0)}, Options{})
	mustTick(t, m)
	s.EnterSetHour()
	mustTick(t, m)
	s.ShortPress()
	s.ShortPress()
	mustTick(t, m)
	mustTick(t, m)
	mustTick(t, m)
	if got, want := m.Edit().Hour, 4; got != want {
		t.Errorf("hour:\n  got: %v\n want: %v", got, want)
	}
	if s.Load().Pending {
		t.Error("pending press was not consumed")
	}
}

func TestAdjustError(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(9, 15), adjustErr: errors.New("i2c nack")}
	m := New(&s, clock, Options{})
	s.Store(State{Mode: SetMinute, MenuTimer: 24, Pending: false})
	_, err := m.Tick()
	if err == nil {
		t.Fatal("expected adjust error")
	}
	if !errors.Is(err, clock.adjustErr) {
		t.Errorf("error should wrap the adjust error: %v", err)
	}
	if got, want := s.Load(), (State{Mode: ShowTime}); got != want {
		t.Errorf("state after failed commit:\n  got: %v\n want: %v", got, want)
	}
}

func TestLeavingEditorDropsPending(t *testing.T) {
	var s Shared
	clock := &fakeClock{now: at(9, 15)}
	// The press lands during the commit tick.
	m := New(&s, &racingAdjust{fakeClock: clock, press: func() { s.ShortPress() }}, Options{})
	s.Store(State{Mode: SetMinute, MenuTimer: 24})
	mustTick(t, m)
	if got, want := len(clock.adjusted), 1; got != want {
		t.Errorf("adjustments:\n  got: %v\n want: %v", got, want)
	}
	if got, want := s.Load(), (State{Mode: ShowTime}); got != want {
		t.Errorf("after commit:\n  got: %v\n want: %v", got, want)
	}
}

type racingAdjust struct {
	*fakeClock
	press func()
}

func (r *racingAdjust) Adjust(hour, minute int) error {
	r.press()
	return r.fakeClock.Adjust(hour, minute)
}

func TestButtonWinsRace(t *testing.T) {
	t.Run("long press during a time tick", func(t *testing.T) {
		var s Shared
		clock := &fakeClock{now: at(17, 20)}
		m := New(&s, clock, Options{})
		clock.onNow = func() { s.EnterSetHour() }
		mustTick(t, m)
		clock.onNow = nil
		if got, want := s.Load(), (State{Mode: SetHour}); got != want {
			t.Fatalf("state:\n  got: %v\n want: %v", got, want)
		}
		mustTick(t, m)
		if got, want := m.Edit().Hour, 17; got != want {
			t.Errorf("seeded hour:\n  got: %v\n want: %v", got, want)
		}
	})

	t.Run("short press during a temperature tick", func(t *testing.T) {
		var s Shared
		clock := &fakeClock{now: at(17, 20), temp: 20}
		m := New(&s, clock, Options{})
		s.Store(State{Mode: ShowTemperature, MenuTimer: 4})
		m.prev = ShowTemperature
		clock.onTemp = func() { s.ShortPress() }
		mustTick(t, m)
		if got, want := s.Load(), (State{Mode: ShowTemperature}); got != want {
			t.Errorf("state:\n  got: %v\n want: %v", got, want)
		}
	})

	t.Run("short press during the hour timeout carries into minutes", func(t *testing.T) {
		var s Shared
		clock := &fakeClock{now: at(17, 20)}
		m := New(&s, clock, Options{})
		s.Store(State{Mode: SetHour, MenuTimer: 24})
		m.prev = SetHour
		clock.onNow = func() { s.ShortPress() }
		mustTick(t, m)
		clock.onNow = nil
		if got, want := s.Load(), (State{Mode: SetMinute, Pending: true}); got != want {
			t.Fatalf("state:\n  got: %v\n want: %v", got, want)
		}
		mustTick(t, m)
		if got, want := m.Edit().Minute, 21; got != want {
			t.Errorf("minute:\n  got: %v\n want: %v", got, want)
		}
	})
}

func TestConcurrentPresses(t *testing.T) {
	var s Shared
	m := New(&s, &fakeClock{now: at(0, 0)}, Options{})
	s.Store(State{Mode: SetHour})
	m.prev = SetHour

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.ShortPress()
		}
	}()
	for i := 0; i < 20; i++ {
		before := m.Edit().Hour
		mustTick(t, m)
		if step := (m.Edit().Hour - before + 24) % 24; step > 1 {
			t.Errorf("tick %d: hour moved by %d", i, step)
		}
	}
	wg.Wait()
	if got, want := s.Load().Mode, SetHour; got != want {
		t.Errorf("mode:\n  got: %v\n want: %v", got, want)
	}
}
