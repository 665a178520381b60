// Package config loads the clock's configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // Minimal board images ship without a zoneinfo database.

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/gesture"
	"github.com/jrockway/wordclock/control/layout"
	"github.com/jrockway/wordclock/control/light"
	"github.com/jrockway/wordclock/control/mode"
	"github.com/jrockway/wordclock/control/phrase"
	"github.com/jrockway/wordclock/control/rtc"
	"github.com/jrockway/wordclock/control/screen"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"
)

// Duration is a time.Duration written as a string, like "200ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// PowerLossLayout is the format of RTC.PowerLossTime, in the RTC's time zone.
const PowerLossLayout = "2006-01-02T15:04:05"

// Display configures the LED strip.
type Display struct {
	// Driver is one of screen.Drivers.
	Driver string `yaml:"driver" toml:"driver"`
	// Port is the SPI port: a periph port name, or a spidev path for dotstar.
	Port string `yaml:"port" toml:"port"`
	// PowerLimit caps the estimated draw of the LEDs, in watts.  0 is unlimited.
	PowerLimit float64 `yaml:"power_limit" toml:"power_limit"`
}

// RTC configures the DS3231.
type RTC struct {
	// Bus is the periph I2C bus name; empty picks the first one.
	Bus  string `yaml:"bus" toml:"bus"`
	Addr uint16 `yaml:"addr" toml:"addr"`
	// TimeZone is the zone the chip keeps time in.
	TimeZone string `yaml:"time_zone" toml:"time_zone"`
	// PowerLossTime is written to the chip when it reports that it lost power.
	PowerLossTime string `yaml:"power_loss_time" toml:"power_loss_time"`
	// PlaceholderDate, if set, is the date written along with a time set from the buttons.
	// Otherwise the chip's date is kept.
	PlaceholderDate string `yaml:"placeholder_date" toml:"placeholder_date"`
}

// Light configures the TSL2591.
type Light struct {
	Bus          string  `yaml:"bus" toml:"bus"`
	Addr         uint16  `yaml:"addr" toml:"addr"`
	FullScaleLux float64 `yaml:"full_scale_lux" toml:"full_scale_lux"`
	// Disabled runs without a sensor, at maximum brightness.
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

// Button configures the push button.
type Button struct {
	// Pin is a periph GPIO pin name.
	Pin        string   `yaml:"pin" toml:"pin"`
	ActiveHigh bool     `yaml:"active_high" toml:"active_high"`
	LongPress  Duration `yaml:"long_press" toml:"long_press"`
	Debounce   Duration `yaml:"debounce" toml:"debounce"`
}

// Timing configures the tick intervals.
type Timing struct {
	Standard Duration `yaml:"standard" toml:"standard"`
	Fast     Duration `yaml:"fast" toml:"fast"`
	Menu     Duration `yaml:"menu" toml:"menu"`
}

// Mode returns the timing in the form the mode machine takes.
func (t Timing) Mode() mode.Timing {
	return mode.Timing{
		Standard: time.Duration(t.Standard),
		Fast:     time.Duration(t.Fast),
		Menu:     time.Duration(t.Menu),
	}
}

// HTTP configures the debug server.
type HTTP struct {
	Bind string `yaml:"bind" toml:"bind"`
}

// Console configures the serial log console.
type Console struct {
	// Port is a serial device path; empty disables the console.
	Port string `yaml:"port" toml:"port"`
	Baud int    `yaml:"baud" toml:"baud"`
}

// Config is the whole configuration file.
type Config struct {
	Layout     string           `yaml:"layout" toml:"layout"`
	Display    Display          `yaml:"display" toml:"display"`
	RTC        RTC              `yaml:"rtc" toml:"rtc"`
	Light      Light            `yaml:"light" toml:"light"`
	Button     Button           `yaml:"button" toml:"button"`
	Timing     Timing           `yaml:"timing" toml:"timing"`
	Brightness light.Brightness `yaml:"brightness" toml:"brightness"`
	Colors     phrase.Colors    `yaml:"colors" toml:"colors"`
	HTTP       HTTP             `yaml:"http" toml:"http"`
	Console    Console          `yaml:"console" toml:"console"`
}

// Default returns the configuration of my clock.
func Default() *Config {
	c := new(Config)
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every zero field.
func (c *Config) ApplyDefaults() {
	setString := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	setDuration := func(d *Duration, v time.Duration) {
		if *d == 0 {
			*d = Duration(v)
		}
	}
	setColor := func(c *frame.Color, v frame.Color) {
		if *c == frame.Black {
			*c = v
		}
	}

	setString(&c.Layout, layout.Italian.Name)
	setString(&c.Display.Driver, "ws2812")
	setString(&c.Display.Port, "SPI0.0")
	if c.RTC.Addr == 0 {
		c.RTC.Addr = rtc.DefaultAddr
	}
	setString(&c.RTC.TimeZone, "Local")
	setString(&c.RTC.PowerLossTime, "2017-10-30T10:25:00")
	if c.Light.Addr == 0 {
		c.Light.Addr = light.DefaultAddr
	}
	if c.Light.FullScaleLux == 0 {
		c.Light.FullScaleLux = light.DefaultOpts.FullScaleLux
	}
	setString(&c.Button.Pin, "GPIO17")
	setDuration(&c.Button.LongPress, gesture.DefaultLongPress)
	setDuration(&c.Button.Debounce, gesture.DefaultDebounce)
	setDuration(&c.Timing.Standard, mode.DefaultTiming.Standard)
	setDuration(&c.Timing.Fast, mode.DefaultTiming.Fast)
	setDuration(&c.Timing.Menu, mode.DefaultTiming.Menu)
	if c.Brightness == (light.Brightness{}) {
		c.Brightness = light.DefaultBrightness
	}
	setColor(&c.Colors.Time, phrase.DefaultColors.Time)
	setColor(&c.Colors.Temperature, phrase.DefaultColors.Temperature)
	setColor(&c.Colors.Label, phrase.DefaultColors.Label)
	setColor(&c.Colors.Digits, phrase.DefaultColors.Digits)
	setString(&c.HTTP.Bind, ":8080")
	if c.Console.Baud == 0 {
		c.Console.Baud = 115200
	}
}

// Location returns the RTC's time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.RTC.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	return loc, nil
}

// PowerLossTime returns the time to set after a power loss.
func (c *Config) PowerLossTime() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(PowerLossLayout, c.RTC.PowerLossTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse power loss time: %w", err)
	}
	return t, nil
}

// PlaceholderDate returns the date to write along with button-set times, or the zero time to keep
// the chip's date.
func (c *Config) PlaceholderDate() (time.Time, error) {
	if c.RTC.PlaceholderDate == "" {
		return time.Time{}, nil
	}
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", c.RTC.PlaceholderDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse placeholder date: %w", err)
	}
	return t, nil
}

// Validate checks that the configuration makes sense.
func (c *Config) Validate() error {
	var errs []error
	if _, err := layout.ByName(c.Layout); err != nil {
		errs = append(errs, err)
	}
	known := false
	for _, d := range screen.Drivers {
		if c.Display.Driver == d {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("display: unknown driver %q (have %v)", c.Display.Driver, screen.Drivers))
	}
	if c.Display.PowerLimit < 0 {
		errs = append(errs, fmt.Errorf("display: negative power limit %v", c.Display.PowerLimit))
	}
	if _, err := c.PowerLossTime(); err != nil {
		errs = append(errs, fmt.Errorf("rtc: %w", err))
	}
	if _, err := c.PlaceholderDate(); err != nil {
		errs = append(errs, fmt.Errorf("rtc: %w", err))
	}
	if c.Light.FullScaleLux < 0 {
		errs = append(errs, fmt.Errorf("light: negative full scale %v", c.Light.FullScaleLux))
	}
	if c.Button.LongPress <= c.Button.Debounce {
		errs = append(errs, fmt.Errorf("button: long press %v must be longer than debounce %v", time.Duration(c.Button.LongPress), time.Duration(c.Button.Debounce)))
	}
	t := c.Timing
	if t.Standard <= 0 || t.Fast <= 0 {
		errs = append(errs, fmt.Errorf("timing: intervals must be positive"))
	} else if t.Menu < t.Standard || t.Menu < t.Fast {
		errs = append(errs, fmt.Errorf("timing: menu timeout %v is shorter than a tick", time.Duration(t.Menu)))
	}
	if c.Brightness.Min > c.Brightness.Max {
		errs = append(errs, fmt.Errorf("brightness: min %d > max %d", c.Brightness.Min, c.Brightness.Max))
	}
	if c.Console.Baud < 0 {
		errs = append(errs, fmt.Errorf("console: negative baud rate %d", c.Console.Baud))
	}
	return errors.Join(errs...)
}

// Parse decodes a configuration in the given format, "yaml" or "toml", applies defaults and
// validates it.
func Parse(data []byte, format string) (*Config, error) {
	c := new(Config)
	switch format {
	case "yaml":
		if err := yaml.UnmarshalStrict(data, c); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("unmarshal toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return c, nil
}

// Load reads a configuration file.  Files ending in .toml are TOML; everything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	format := "yaml"
	if filepath.Ext(path) == ".toml" {
		format = "toml"
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}
