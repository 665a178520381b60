// Package rtc provides the clock's time and temperature: a Maxim DS3231 on I2C, or the host's own
// clock for running without the hardware.
package rtc

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the DS3231's fixed I2C address.
const DefaultAddr = 0x68

type register uint8

const (
	regSeconds register = 0x00
	regStatus  register = 0x0F
	regTempMSB register = 0x11
)

const (
	statusOSF    = 1 << 7 // Oscillator stopped; the time is garbage.
	hour12       = 1 << 6
	hourPM       = 1 << 5
	monthCentury = 1 << 7
)

// ErrNotDetected means nothing answered at the RTC's address.
var ErrNotDetected = errors.New("ds3231 not detected")

// DS3231 is a temperature-compensated RTC.  It keeps local wall-clock time in loc.
type DS3231 struct {
	dev i2c.Dev
	loc *time.Location

	// Placeholder, if set, is the date that Adjust writes along with the new time of day.  If
	// unset, Adjust keeps the chip's current date.
	Placeholder time.Time
}

// New probes for a DS3231 at addr.  It returns an error wrapping ErrNotDetected if the chip doesn't
// answer.
func New(b i2c.Bus, addr uint16, loc *time.Location) (*DS3231, error) {
	if loc == nil {
		loc = time.Local
	}
	d := &DS3231{dev: i2c.Dev{Bus: b, Addr: addr}, loc: loc}
	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return nil, fmt.Errorf("ds3231 at %#x: %w: %w", addr, ErrNotDetected, err)
	}
	return d, nil
}

func (d *DS3231) String() string {
	return fmt.Sprintf("DS3231{%s}", &d.dev)
}

func (d *DS3231) readReg(r register, buf []byte) error {
	return d.dev.Tx([]byte{byte(r)}, buf)
}

func (d *DS3231) writeReg(r register, data ...byte) error {
	return d.dev.Tx(append([]byte{byte(r)}, data...), nil)
}

func bcdToDec(x byte) int {
	return int(x>>4)*10 + int(x&0x0f)
}

func decToBCD(x int) byte {
	return byte(x/10)<<4 | byte(x%10)
}

// decodeHour handles both the 12 and 24 hour register formats.
func decodeHour(x byte) int {
	if x&hour12 == 0 {
		return bcdToDec(x & 0x3f)
	}
	h := bcdToDec(x & 0x1f)
	if h == 12 {
		h = 0
	}
	if x&hourPM != 0 {
		h += 12
	}
	return h
}

// Now reads the current time.
func (d *DS3231) Now() (time.Time, error) {
	var buf [7]byte
	if err := d.readReg(regSeconds, buf[:]); err != nil {
		return time.Time{}, fmt.Errorf("ds3231: read time: %w", err)
	}
	sec := bcdToDec(buf[0] & 0x7f)
	min := bcdToDec(buf[1] & 0x7f)
	hour := decodeHour(buf[2])
	day := bcdToDec(buf[4] & 0x3f)
	month := bcdToDec(buf[5] & 0x1f)
	year := 2000 + bcdToDec(buf[6])
	if buf[5]&monthCentury != 0 {
		year += 100
	}
	if sec > 59 || min > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("ds3231: invalid time registers % x", buf[:])
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, d.loc), nil
}

// Set sets the time and clears the oscillator-stopped flag.
func (d *DS3231) Set(t time.Time) error {
	t = t.In(d.loc)
	year := t.Year() - 2000
	if year < 0 || year > 199 {
		return fmt.Errorf("ds3231: year %d out of range 2000-2199", t.Year())
	}
	month := decToBCD(int(t.Month()))
	if year >= 100 {
		year -= 100
		month |= monthCentury
	}
	if err := d.writeReg(regSeconds,
		decToBCD(t.Second()),
		decToBCD(t.Minute()),
		decToBCD(t.Hour()), // Always 24 hour mode.
		decToBCD(int(t.Weekday())+1),
		decToBCD(t.Day()),
		month,
		decToBCD(year),
	); err != nil {
		return fmt.Errorf("ds3231: write time: %w", err)
	}
	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return fmt.Errorf("ds3231: read status: %w", err)
	}
	if status[0]&statusOSF == 0 {
		return nil
	}
	if err := d.writeReg(regStatus, status[0]&^statusOSF); err != nil {
		return fmt.Errorf("ds3231: clear oscillator stop flag: %w", err)
	}
	return nil
}

// LostPower reports whether the oscillator stopped since the time was last set.
func (d *DS3231) LostPower() (bool, error) {
	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return false, fmt.Errorf("ds3231: read status: %w", err)
	}
	return status[0]&statusOSF != 0, nil
}

// Temperature returns the die temperature in degrees Celsius, in 0.25 degree steps.  The chip
// updates it every 64 seconds.
func (d *DS3231) Temperature() (float64, error) {
	var buf [2]byte
	if err := d.readReg(regTempMSB, buf[:]); err != nil {
		return 0, fmt.Errorf("ds3231: read temperature: %w", err)
	}
	return float64(int8(buf[0])) + float64(buf[1]>>6)*0.25, nil
}

// Adjust sets the time of day to hour:minute:00.
func (d *DS3231) Adjust(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("ds3231: invalid time of day %02d:%02d", hour, minute)
	}
	date := d.Placeholder
	if date.IsZero() {
		now, err := d.Now()
		if err != nil {
			return fmt.Errorf("read date to keep: %w", err)
		}
		date = now
	}
	return d.Set(time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, d.loc))
}
