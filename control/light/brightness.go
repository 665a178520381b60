package light

// Brightness maps light percentages linearly onto display brightness.
type Brightness struct {
	Min uint8 `yaml:"min" toml:"min"`
	Max uint8 `yaml:"max" toml:"max"`
}

// DefaultBrightness never turns the display fully off.
var DefaultBrightness = Brightness{Min: 10, Max: 255}

// Level returns the brightness for pct percent ambient light.  Out of range input is clamped.
func (b Brightness) Level(pct int) uint8 {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return uint8(int(b.Min) + pct*(int(b.Max)-int(b.Min))/100)
}

// Fixed is a light sensor that always reads the same.  It stands in for builds without a sensor.
type Fixed int

// Read implements mode.LightSensor.
func (f Fixed) Read() (int, error) {
	return int(f), nil
}
