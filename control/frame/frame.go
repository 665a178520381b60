// Package frame turns a list of semantic drawing directives into lit cells on a display surface.
//
// Every frame is a full redraw: the surface is cleared, each directive is looked up in the word
// table, and the result is committed in one Show.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jrockway/wordclock/control/layout"
)

// Color is a packed 0x00RRGGBB color.  The top byte is unused.
type Color uint32

const (
	Black Color = 0x00000000
	Red   Color = 0x00FF0000
	Green Color = 0x0000FF00
	Blue  Color = 0x000000FF
	White Color = 0x00FFFFFF
)

// RGB unpacks the color.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) String() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses "#RRGGBB" (the # is optional).
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "#")
	if len(s) != 6 {
		return fmt.Errorf("color %q: want #RRGGBB", string(text))
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("color %q: %w", string(text), err)
	}
	*c = Color(v)
	return nil
}

// Offset says whether a directive is shifted down the mask by whole rows.  Word phrases use NoRow;
// digit glyphs are drawn at Row(n).
type Offset struct {
	row   int
	valid bool
}

// NoRow is the offset of directives that are drawn where the table puts them.
var NoRow = Offset{}

// Row returns an offset of n rows.  Row(0) is distinct from NoRow even though it draws in the same
// place.
func Row(n int) Offset {
	return Offset{row: n, valid: true}
}

// Rows returns the row count and whether the offset is a row offset at all.
func (o Offset) Rows() (int, bool) {
	return o.row, o.valid
}

func (o Offset) String() string {
	if !o.valid {
		return "no-row"
	}
	return fmt.Sprintf("row(%d)", o.row)
}

// Directive asks for entry Index of a layout group to be drawn in a color.
type Directive struct {
	Group  layout.Group
	Index  int
	Offset Offset
	Color  Color
}

func (d Directive) String() string {
	return fmt.Sprintf("%v[%d]@%v %v", d.Group, d.Index, d.Offset, d.Color)
}

// Surface is an addressable array of color cells.
type Surface interface {
	// Clear turns every cell off.
	Clear()
	// SetCell sets one cell; indices outside [0, Len()) are an error.
	SetCell(i int, c Color) error
	// SetBrightness sets the global brightness, 0-255.
	SetBrightness(b uint8)
	// Show commits the cells to the hardware.
	Show() error
	// Len returns the number of cells.
	Len() int
}

// GeometryError means a directive resolved to a cell the surface doesn't have.  The word table and
// the hardware disagree, and nothing sensible can be drawn.
type GeometryError struct {
	Directive Directive
	Cell      int
	Len       int
	// Err is set when the directive's index isn't in the table at all.
	Err error
}

func (e *GeometryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directive %v: %v", e.Directive, e.Err)
	}
	return fmt.Sprintf("directive %v resolves to cell %d, outside surface of %d cells", e.Directive, e.Cell, e.Len)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// Renderer paints directives using a layout.
type Renderer struct {
	Layout *layout.Layout
}

type litCell struct {
	index int
	color Color
}

// resolve returns the cells and colors the directives light up, in order.  A later directive
// overwrites an earlier one on the same cell.
func (r *Renderer) resolve(ds []Directive, n int) ([]litCell, error) {
	var result []litCell
	for _, d := range ds {
		cells, err := r.Layout.Lookup(d.Group, d.Index)
		if err != nil {
			return nil, &GeometryError{Directive: d, Cell: -1, Len: n, Err: err}
		}
		shift := 0
		if rows, ok := d.Offset.Rows(); ok {
			shift = rows * r.Layout.Width
		}
		for _, c := range cells {
			i := c + shift
			if i < 0 || i >= n {
				return nil, &GeometryError{Directive: d, Cell: i, Len: n}
			}
			result = append(result, litCell{index: i, color: d.Color})
		}
	}
	return result, nil
}

// Paint clears the surface, draws every directive and commits the frame.  If any directive is out
// of range nothing is drawn and the surface is left untouched.
func (r *Renderer) Paint(s Surface, ds []Directive) error {
	cells, err := r.resolve(ds, s.Len())
	if err != nil {
		return err
	}
	s.Clear()
	for _, c := range cells {
		if err := s.SetCell(c.index, c.color); err != nil {
			return fmt.Errorf("set cell %d: %w", c.index, err)
		}
	}
	if err := s.Show(); err != nil {
		return fmt.Errorf("show frame: %w", err)
	}
	return nil
}
