// Package screen drives the clock's LED strip, and retains the last frame for debugging the rest
// of the program without the display attached.
package screen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/jrockway/wordclock/control/frame"
	"github.com/jrockway/wordclock/control/layout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	previewScale = 20 // Size of one cell in the rendered image.

	// The datasheets say a fully lit pixel draws 60mA, 20mA per color, at 5V.
	wattsPerChannel = 0.020 * 5
)

var powerGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "display_power_watts",
	Help: "estimated power drawn by the lit LEDs of the last frame, in watts",
})

// Strip is an LED strip that takes 3 bytes (R, G, B) per LED.
type Strip interface {
	Write(pixels []byte) (int, error)
	Halt() error
}

// Screen is a frame.Surface backed by an LED strip.  Cells are collected with SetCell and sent to
// the strip by Show.
//
// The wiring of a clock is rarely good for the full 60mA per LED; with a PowerLimit set, Show
// scales every frame down so that its estimated draw stays under the limit.
type Screen struct {
	strip  Strip // nil when running without hardware.
	layout *layout.Layout

	// PowerLimit is the maximum estimated draw of the lit LEDs, in watts.  0 means no limit.
	PowerLimit float64

	cells      []frame.Color
	brightness uint8

	shownMu sync.Mutex
	shown   []frame.Color // Last committed frame, unscaled; must hold shownMu.
}

// New returns a Screen with one cell per LED of l.  A nil strip keeps frames for the preview only.
func New(s Strip, l *layout.Layout) *Screen {
	return &Screen{
		strip:      s,
		layout:     l,
		cells:      make([]frame.Color, l.NumCells),
		brightness: 255,
		shown:      make([]frame.Color, l.NumCells),
	}
}

// Len implements frame.Surface.
func (s *Screen) Len() int {
	return len(s.cells)
}

// Clear implements frame.Surface.
func (s *Screen) Clear() {
	for i := range s.cells {
		s.cells[i] = frame.Black
	}
}

// SetCell implements frame.Surface.
func (s *Screen) SetCell(i int, c frame.Color) error {
	if i < 0 || i >= len(s.cells) {
		return fmt.Errorf("cell %d out of range [0, %d)", i, len(s.cells))
	}
	s.cells[i] = c
	return nil
}

// SetBrightness implements frame.Surface.  It takes effect at the next Show.
func (s *Screen) SetBrightness(b uint8) {
	s.brightness = b
}

// Show implements frame.Surface.
func (s *Screen) Show() error {
	s.shownMu.Lock()
	copy(s.shown, s.cells)
	s.shownMu.Unlock()

	pixels, watts := s.pixels()
	powerGauge.Set(watts)
	if s.strip == nil {
		return nil
	}
	if _, err := s.strip.Write(pixels); err != nil {
		return fmt.Errorf("write to strip: %w", err)
	}
	return nil
}

// powerFor returns the watts that showing channel values summing to sum will use.
func powerFor(sum int) float64 {
	return wattsPerChannel * float64(sum) / 255
}

// pixels converts the cells to strip bytes, scaled by the brightness and then by the power limit.
// It returns the estimated draw after scaling, which never exceeds a set limit.
func (s *Screen) pixels() ([]byte, float64) {
	result := make([]byte, 3*len(s.cells))
	var sum int
	for i, c := range s.cells {
		r, g, b := c.RGB()
		result[3*i] = scale(r, s.brightness)
		result[3*i+1] = scale(g, s.brightness)
		result[3*i+2] = scale(b, s.brightness)
		sum += int(result[3*i]) + int(result[3*i+1]) + int(result[3*i+2])
	}
	power := powerFor(sum)
	if s.PowerLimit <= 0 || power <= s.PowerLimit {
		return result, power
	}
	// Scale in channel units so truncation can only lower the total.
	budget := int(math.Floor(s.PowerLimit * 255 / wattsPerChannel))
	scaled := 0
	for i, v := range result {
		result[i] = uint8(int(v) * budget / sum)
		scaled += int(result[i])
	}
	return result, math.Min(powerFor(scaled), s.PowerLimit)
}

func scale(c, brightness uint8) uint8 {
	return uint8(uint16(c) * uint16(brightness) / 255)
}

// Blank turns every LED off immediately.
func (s *Screen) Blank() error {
	s.Clear()
	if err := s.Show(); err != nil {
		return fmt.Errorf("blank display: %w", err)
	}
	return nil
}

// Close blanks the display and releases the strip.
func (s *Screen) Close() error {
	var errs []error
	if err := s.Blank(); err != nil {
		errs = append(errs, err)
	}
	if s.strip != nil {
		if err := s.strip.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt strip: %w", err))
		}
		if c, ok := s.strip.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close strip: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

var unlit = color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}

// Preview draws the mask with the last committed frame lit up.
func (s *Screen) Preview() *image.NRGBA {
	s.shownMu.Lock()
	shown := make([]frame.Color, len(s.shown))
	copy(shown, s.shown)
	s.shownMu.Unlock()

	l := s.layout
	img := image.NewNRGBA(image.Rect(0, 0, l.Width*previewScale, (l.Height+1)*previewScale))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 0xff
		}
	}
	face := basicfont.Face7x13
	for i, c := range shown {
		x, y := l.Position(i)
		var src color.Color = unlit
		if c != frame.Black {
			r, g, b := c.RGB()
			src = color.NRGBA{R: r, G: g, B: b, A: 0xff}
		}
		letter := l.Letter(i)
		if letter == 0 {
			// Minute dots.
			inset := previewScale / 3
			for dx := inset; dx < previewScale-inset; dx++ {
				for dy := inset; dy < previewScale-inset; dy++ {
					img.Set(x*previewScale+dx, y*previewScale+dy, src)
				}
			}
			continue
		}
		(&font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(src),
			Face: face,
			Dot:  fixed.P(x*previewScale+(previewScale-face.Width)/2, y*previewScale+(previewScale+face.Ascent)/2),
		}).DrawString(string(rune(letter)))
	}
	return img
}

// ServeHTTP serves the last committed frame as a PNG.
func (s *Screen) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, s.Preview()); err != nil {
		log.WithError(err).Debug("encoding preview")
	}
}
