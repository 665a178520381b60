package rtc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTemperatureFile is where the kernel's rtc driver exports the chip temperature, when it
// has one.
const DefaultTemperatureFile = "/sys/class/rtc/rtc0/device/hwmon/hwmon0/temp1_input"

// System keeps time with the host clock.  Adjusting it moves an offset instead of the host clock.
type System struct {
	// TemperatureFile is read for the temperature, in millidegrees Celsius.
	TemperatureFile string
	// Host returns the host time; time.Now if nil.
	Host func() time.Time

	mu     sync.Mutex
	offset time.Duration
}

// NewSystem returns a System reading the kernel's rtc temperature.
func NewSystem() *System {
	return &System{TemperatureFile: DefaultTemperatureFile}
}

func (s *System) host() time.Time {
	if s.Host != nil {
		return s.Host()
	}
	return time.Now()
}

// Now returns the adjusted host time.
func (s *System) Now() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host().Add(s.offset), nil
}

// Temperature reads TemperatureFile.
func (s *System) Temperature() (float64, error) {
	bytes, err := os.ReadFile(s.TemperatureFile)
	if err != nil {
		return 0, fmt.Errorf("read rtc temperature: %w", err)
	}
	str := strings.TrimSpace(string(bytes))
	t, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parse rtc temperature %q: %w", str, err)
	}
	return float64(t) / 1000, nil
}

// Adjust moves the offset so that the current time reads hour:minute:00 today.
func (s *System) Adjust(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("system clock: invalid time of day %02d:%02d", hour, minute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	host := s.host()
	now := host.Add(s.offset)
	want := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	s.offset = want.Sub(host)
	return nil
}
