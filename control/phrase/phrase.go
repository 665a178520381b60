// Package phrase turns times and numbers into the drawing directives that spell them on the mask.
package phrase

import (
	"math"

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/layout"
)

const (
	// AdvanceAfter is the last minute that is read against the current hour.  From minute 40 the
	// mask says "<next hour> meno venti", so the hour phrase moves ahead.
	AdvanceAfter = 39

	// TensRow and UnitsRow are the rows two-digit numbers are drawn at.
	TensRow  = 6
	UnitsRow = 0
)

// Colors are the colors each kind of directive is drawn in.
type Colors struct {
	Time        frame.Color `yaml:"time" toml:"time"`
	Temperature frame.Color `yaml:"temperature" toml:"temperature"`
	Label       frame.Color `yaml:"label" toml:"label"`
	Digits      frame.Color `yaml:"digits" toml:"digits"`
}

// DefaultColors matches the paint job on my clock: white words, red temperature, and a blue label
// over green digits while setting the time.
var DefaultColors = Colors{
	Time:        frame.White,
	Temperature: frame.Red,
	Label:       frame.Blue,
	Digits:      frame.Green,
}

// Hour12 converts a 24-hour value into 1-12.  Midnight is 12.
func Hour12(h int) int {
	h %= 12
	if h < 0 {
		h += 12
	}
	if h == 0 {
		return 12
	}
	return h
}

// DisplayHour returns the hour phrase to show at h:minute.
func DisplayHour(h, minute int) int {
	h12 := Hour12(h)
	if minute > AdvanceAfter {
		return h12%12 + 1
	}
	return h12
}

// SplitMinute splits a minute into its five-minute phrase bucket and the dots past it.
func SplitMinute(minute int) (bucket, dots int) {
	bucket = minute / 5
	return bucket, minute - bucket*5
}

// Digits splits a number in 0-99 into its tens and units.
func Digits(n int) (tens, units int) {
	return n / 10, n % 10
}

// RoundTemperature rounds half up and clamps to what two digits can show.
func RoundTemperature(celsius float64) int {
	if math.IsNaN(celsius) {
		return 0
	}
	t := math.Floor(celsius + 0.5)
	switch {
	case t < 0:
		return 0
	case t > 99:
		return 99
	}
	return int(t)
}

func word(g layout.Group, i int, c frame.Color) frame.Directive {
	return frame.Directive{Group: g, Index: i, Offset: frame.NoRow, Color: c}
}

// Time spells h:minute.
func Time(h, minute int, colors Colors) []frame.Directive {
	hour := DisplayHour(h, minute)
	bucket, dots := SplitMinute(minute)
	var result []frame.Directive
	// "Sono le ore" reads wrong before "è l'una".
	if hour != 1 {
		result = append(result, word(layout.HourPhrase, 0, colors.Time))
	}
	return append(result,
		word(layout.HourPhrase, hour, colors.Time),
		word(layout.MinutePhrase, bucket, colors.Time),
		word(layout.Dots, dots, colors.Time),
	)
}

// Number draws n (0-99) as two digit glyphs, tens above units.
func Number(n int, c frame.Color) []frame.Directive {
	tens, units := Digits(n)
	return []frame.Directive{
		{Group: layout.Digit, Index: tens, Offset: frame.Row(TensRow), Color: c},
		{Group: layout.Digit, Index: units, Offset: frame.Row(UnitsRow), Color: c},
	}
}

// Temperature draws a temperature in degrees Celsius.
func Temperature(celsius float64, colors Colors) []frame.Directive {
	return Number(RoundTemperature(celsius), colors.Temperature)
}

// SetHour draws the hour editor: the "ore" label and the hour being edited.
func SetHour(hour int, colors Colors) []frame.Directive {
	return append([]frame.Directive{word(layout.HourLabel, 0, colors.Label)}, Number(hour, colors.Digits)...)
}

// SetMinute draws the minute editor.
func SetMinute(minute int, colors Colors) []frame.Directive {
	return append([]frame.Directive{word(layout.MinuteLabel, 0, colors.Label)}, Number(minute, colors.Digits)...)
}
