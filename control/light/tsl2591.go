// Package light reads the ambient light level and maps it to a display brightness.
package light

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the TSL2591's fixed I2C address.
const DefaultAddr = 0x29

// Register is a TSL2591 register address.
type Register uint8

const (
	RegisterEnable   Register = 0x00
	RegisterControl  Register = 0x01
	RegisterDeviceID Register = 0x12
	RegisterChan0Low Register = 0x14
	RegisterChan1Low Register = 0x16
)

// Gain is the analog gain, as written to the control register.
type Gain uint8

const (
	LowGain    Gain = 0x00
	MediumGain Gain = 0x10
	HighGain   Gain = 0x20
	MaxGain    Gain = 0x30
)

func (g Gain) multiplier() float64 {
	switch g {
	case MediumGain:
		return 25.0
	case HighGain:
		return 428.0
	case MaxGain:
		return 9876.0
	default:
		return 1.0
	}
}

// IntegrationTime is the ADC integration time, as written to the control register.
type IntegrationTime uint8

const (
	IntegrationTime100ms IntegrationTime = iota
	IntegrationTime200ms
	IntegrationTime300ms
	IntegrationTime400ms
	IntegrationTime500ms
	IntegrationTime600ms
)

// Duration returns the integration time as a time.Duration.
func (it IntegrationTime) Duration() time.Duration {
	return time.Duration(it+1) * 100 * time.Millisecond
}

const (
	commandBit    = 0xA0
	enablePowerOn = 0x01
	enableAEN     = 0x02
	deviceID      = 0x50
)

// Opts configures the sensor.
type Opts struct {
	Gain            Gain
	IntegrationTime IntegrationTime
	// FullScaleLux is the illuminance that reads as 100%.
	FullScaleLux float64
}

// DefaultOpts suit an indoor clock: medium gain, fast readings, and 500 lux (a bright office) as
// full scale.
var DefaultOpts = Opts{
	Gain:            MediumGain,
	IntegrationTime: IntegrationTime100ms,
	FullScaleLux:    500,
}

// TSL2591 is an ams TSL2591 light-to-digital converter.
type TSL2591 struct {
	dev       i2c.Dev
	gain      Gain
	it        IntegrationTime
	fullScale float64
}

func wrap(err error) error {
	return fmt.Errorf("tsl2591: %w", err)
}

// NewTSL2591 checks that a TSL2591 is on the bus, powers it up, and configures it.
func NewTSL2591(b i2c.Bus, addr uint16, opts *Opts) (*TSL2591, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	t := &TSL2591{dev: i2c.Dev{Bus: b, Addr: addr}, fullScale: opts.FullScaleLux}
	if t.fullScale <= 0 {
		t.fullScale = DefaultOpts.FullScaleLux
	}
	id, err := t.DeviceID()
	if err != nil {
		return nil, wrap(fmt.Errorf("get device id: %w", err))
	}
	if got, want := id, uint8(deviceID); got != want {
		return nil, wrap(fmt.Errorf("device at %#x is not a TSL2591 (got: %#x, want: %#x)", addr, got, want))
	}
	if err := t.Enable(); err != nil {
		return nil, wrap(err)
	}
	if err := t.SetGain(opts.Gain); err != nil {
		return nil, wrap(err)
	}
	if err := t.SetIntegrationTime(opts.IntegrationTime); err != nil {
		return nil, wrap(err)
	}
	return t, nil
}

func (t *TSL2591) String() string {
	return fmt.Sprintf("TSL2591{%s}", &t.dev)
}

// ReadRegister reads a little-endian value the size of out.
func (t *TSL2591) ReadRegister(r Register, out interface{}) error {
	buf := make([]byte, binary.Size(out))
	if err := t.dev.Tx([]byte{byte(commandBit | r)}, buf); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, out); err != nil {
		return fmt.Errorf("binary.Read: %w", err)
	}
	return nil
}

// WriteRegister writes data starting at register r.
func (t *TSL2591) WriteRegister(r Register, data ...byte) error {
	w := make([]byte, 1, len(data)+1)
	w[0] = byte(commandBit | r)
	w = append(w, data...)
	if err := t.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return nil
}

// DeviceID returns the contents of the ID register, 0x50 for a TSL2591.
func (t *TSL2591) DeviceID() (uint8, error) {
	var result uint8
	if err := t.ReadRegister(RegisterDeviceID, &result); err != nil {
		return 0, fmt.Errorf("read register: %w", err)
	}
	return result, nil
}

// Enable powers on the oscillator and the ALS.
func (t *TSL2591) Enable() error {
	if err := t.WriteRegister(RegisterEnable, enablePowerOn|enableAEN); err != nil {
		return fmt.Errorf("write enable register: %w", err)
	}
	return nil
}

// Halt powers the sensor down.
func (t *TSL2591) Halt() error {
	if err := t.WriteRegister(RegisterEnable, 0); err != nil {
		return wrap(fmt.Errorf("write enable register: %w", err))
	}
	return nil
}

// SetGain changes the analog gain.
func (t *TSL2591) SetGain(gain Gain) error {
	var control uint8
	if err := t.ReadRegister(RegisterControl, &control); err != nil {
		return fmt.Errorf("read control register: %w", err)
	}
	control &= 0b11001111
	control |= uint8(gain)
	if err := t.WriteRegister(RegisterControl, control); err != nil {
		return fmt.Errorf("write control register: %w", err)
	}
	t.gain = gain
	return nil
}

// SetIntegrationTime changes the ADC integration time.
func (t *TSL2591) SetIntegrationTime(it IntegrationTime) error {
	var control uint8
	if err := t.ReadRegister(RegisterControl, &control); err != nil {
		return fmt.Errorf("read control register: %w", err)
	}
	control &= 0b11111000
	control |= uint8(it)
	if err := t.WriteRegister(RegisterControl, control); err != nil {
		return fmt.Errorf("write control register: %w", err)
	}
	t.it = it
	return nil
}

// Luminosity returns the raw full-spectrum and infrared channel counts.
func (t *TSL2591) Luminosity() (full, ir uint16, err error) {
	if err := t.ReadRegister(RegisterChan0Low, &full); err != nil {
		return 0, 0, fmt.Errorf("read chan0: %w", err)
	}
	if err := t.ReadRegister(RegisterChan1Low, &ir); err != nil {
		return 0, 0, fmt.Errorf("read chan1: %w", err)
	}
	return full, ir, nil
}

// Lux converts channel counts to lux with the current gain and integration time.  It returns 0
// for readings with no visible light in them.
func (t *TSL2591) Lux(full, ir uint16) float64 {
	if full == 0 || ir >= full {
		return 0
	}
	// Nobody likes this calculation apparently:
	// https://github.com/adafruit/Adafruit_TSL2591_Library/issues/14
	cpl := (t.gain.multiplier() * float64(t.it.Duration()/time.Millisecond)) / 408.0
	return float64(full-ir) * (1.0 - float64(ir)/float64(full)) / cpl
}

// Read returns the ambient light as a percentage of the full scale illuminance.
func (t *TSL2591) Read() (int, error) {
	full, ir, err := t.Luminosity()
	if err != nil {
		return 0, wrap(err)
	}
	if full == math.MaxUint16 {
		// Saturated.
		return 100, nil
	}
	return Percent(t.Lux(full, ir), t.fullScale), nil
}

// Percent scales lux to 0-100 against fullScale.
func Percent(lux, fullScale float64) int {
	p := math.Round(lux / fullScale * 100)
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
