package screen

import (
	"fmt"

	"github.com/goiot/devices/dotstar"
	xspi "golang.org/x/exp/io/spi"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/apa102"
	"periph.io/x/devices/v3/nrzled"
)

// Drivers lists the strip drivers OpenStrip understands.
var Drivers = []string{"ws2812", "apa102", "dotstar", "none"}

// OpenStrip opens n LEDs of the named driver on an SPI port.  For the periph drivers port is a
// periph SPI port name like "SPI0.0"; for dotstar it's a spidev path like "/dev/spidev0.0".  The
// "none" driver returns a nil Strip.
func OpenStrip(driver, port string, n int) (Strip, error) {
	switch driver {
	case "none":
		return nil, nil
	case "dotstar":
		d, err := dotstar.Open(&xspi.Devfs{Dev: port, Mode: xspi.Mode3}, n)
		if err != nil {
			return nil, fmt.Errorf("open dotstar on %s: %w", port, err)
		}
		return &dotstarStrip{leds: d, n: n}, nil
	case "ws2812", "apa102":
	default:
		return nil, fmt.Errorf("unknown strip driver %q (have %v)", driver, Drivers)
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}
	var s Strip
	if driver == "ws2812" {
		opts := nrzled.DefaultOpts
		opts.NumPixels = n
		opts.Channels = 3
		s, err = nrzled.NewSPI(p, &opts)
	} else {
		opts := apa102.DefaultOpts
		opts.NumPixels = n
		opts.Intensity = 255
		opts.Temperature = apa102.NeutralTemp
		opts.DisableGlobalPWM = true
		s, err = apa102.New(p, &opts)
	}
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("init %s: %w", driver, err)
	}
	return &periphStrip{Strip: s, port: p}, nil
}

// periphStrip closes the SPI port along with the strip.
type periphStrip struct {
	Strip
	port spi.PortCloser
}

func (s *periphStrip) Close() error {
	return s.port.Close()
}

// dotstarStrip adapts the goiot driver, which sets one LED at a time.
type dotstarStrip struct {
	leds *dotstar.LEDs
	n    int
}

func (s *dotstarStrip) Write(pixels []byte) (int, error) {
	if len(pixels) != 3*s.n {
		return 0, fmt.Errorf("dotstar: got %d bytes for %d leds", len(pixels), s.n)
	}
	for i := 0; i < s.n; i++ {
		// Brightness is applied to the colors; keep the 5-bit global brightness at full.
		s.leds.SetRGBA(i, dotstar.RGBA{R: pixels[3*i], G: pixels[3*i+1], B: pixels[3*i+2], A: 31})
	}
	if err := s.leds.Draw(); err != nil {
		return 0, fmt.Errorf("dotstar: draw: %w", err)
	}
	return len(pixels), nil
}

func (s *dotstarStrip) Halt() error {
	_, err := s.Write(make([]byte, 3*s.n))
	return err
}

func (s *dotstarStrip) Close() error {
	if err := s.leds.Close(); err != nil {
		return fmt.Errorf("dotstar: close: %w", err)
	}
	return nil
}
