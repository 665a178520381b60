// Package layout describes the physical word mask of a clock: which LED cells light up each word,
// minute dot and digit glyph.
//
// Tables are fixed-size arrays so that the number of entries is checked by the compiler; the cells
// inside each entry are checked against the strip length by Validate.
package layout

import (
	"fmt"
	"sort"
)

// Cells is a list of LED strip indices that make up one word or glyph.
type Cells []int

// Group selects one of the tables of a Layout.
type Group int

const (
	// HourPhrase is indexed 0-12. Index 0 is the connective "it is" prefix.
	HourPhrase Group = iota
	// MinutePhrase is indexed by the five-minute bucket, 0-11.
	MinutePhrase
	// Dots is indexed by the minutes past the bucket, 0-4.
	Dots
	// Digit is indexed 0-9. Digits are row-addressed.
	Digit
	// HourLabel is the single "hours" word shown while setting the hour.
	HourLabel
	// MinuteLabel is the single "minutes" word shown while setting the minute.
	MinuteLabel
)

func (g Group) String() string {
	switch g {
	case HourPhrase:
		return "hour-phrase"
	case MinutePhrase:
		return "minute-phrase"
	case Dots:
		return "dots"
	case Digit:
		return "digit"
	case HourLabel:
		return "hour-label"
	case MinuteLabel:
		return "minute-label"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// Layout is the word/glyph table for one physical build.
type Layout struct {
	Name string

	// Width is the number of cells in one row of the mask; row offsets are multiples of it.
	Width int
	// Height is the number of rows of the mask.  Cells past Width*Height are extra LEDs like the
	// minute dots.
	Height int
	// NumCells is the length of the LED strip.
	NumCells int
	// Letters holds the mask, top row first.  It's only used for previews and tests.
	Letters []string
	// MaxDigitRow is the largest row offset digit glyphs are drawn at.
	MaxDigitRow int

	Hours       [13]Cells
	Minutes     [12]Cells
	Dots        [5]Cells
	Digits      [10]Cells
	HourLabel   Cells
	MinuteLabel Cells
}

// Error reports a table entry that doesn't fit the strip.
type Error struct {
	Layout string
	Group  Group
	Index  int
	Cell   int
	Limit  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("layout %s: %v[%d] uses cell %d outside strip of %d cells", e.Layout, e.Group, e.Index, e.Cell, e.Limit)
}

// Lookup returns the cells of entry i of group g.
func (l *Layout) Lookup(g Group, i int) (Cells, error) {
	var table []Cells
	switch g {
	case HourPhrase:
		table = l.Hours[:]
	case MinutePhrase:
		table = l.Minutes[:]
	case Dots:
		table = l.Dots[:]
	case Digit:
		table = l.Digits[:]
	case HourLabel:
		table = []Cells{l.HourLabel}
	case MinuteLabel:
		table = []Cells{l.MinuteLabel}
	default:
		return nil, fmt.Errorf("layout %s: unknown group %v", l.Name, g)
	}
	if i < 0 || i >= len(table) {
		return nil, fmt.Errorf("layout %s: %v index %d out of range [0, %d)", l.Name, g, i, len(table))
	}
	return table[i], nil
}

// Validate checks that every entry, at the largest row offset it can be drawn at, addresses a cell
// on the strip.
func (l *Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout %s: invalid geometry %dx%d", l.Name, l.Width, l.Height)
	}
	if l.NumCells < l.Width*l.Height {
		return fmt.Errorf("layout %s: %d cells cannot hold a %dx%d mask", l.Name, l.NumCells, l.Width, l.Height)
	}
	check := func(g Group, table []Cells, maxRow int) error {
		for i, cells := range table {
			for _, c := range cells {
				if c < 0 || c+maxRow*l.Width >= l.NumCells {
					return &Error{Layout: l.Name, Group: g, Index: i, Cell: c + maxRow*l.Width, Limit: l.NumCells}
				}
			}
		}
		return nil
	}
	if err := check(HourPhrase, l.Hours[:], 0); err != nil {
		return err
	}
	if err := check(MinutePhrase, l.Minutes[:], 0); err != nil {
		return err
	}
	if err := check(Dots, l.Dots[:], 0); err != nil {
		return err
	}
	if err := check(Digit, l.Digits[:], l.MaxDigitRow); err != nil {
		return err
	}
	if err := check(HourLabel, []Cells{l.HourLabel}, 0); err != nil {
		return err
	}
	return check(MinuteLabel, []Cells{l.MinuteLabel}, 0)
}

// Position maps a strip index to a column and row of the mask, with row 0 at the top.  Cells past
// the mask (the minute dots) are placed on an extra row below it, centered.
func (l *Layout) Position(i int) (x, y int) {
	if i < l.Width*l.Height {
		// The strip starts at the bottom left corner.
		return i % l.Width, l.Height - 1 - i/l.Width
	}
	extra := l.NumCells - l.Width*l.Height
	return (l.Width-extra)/2 + i - l.Width*l.Height, l.Height
}

// Letter returns the mask letter over cell i, or 0 for cells without one.
func (l *Layout) Letter(i int) byte {
	x, y := l.Position(i)
	if y >= len(l.Letters) || x >= len(l.Letters[y]) {
		return 0
	}
	return l.Letters[y][x]
}

var layouts = map[string]*Layout{
	Italian.Name: Italian,
}

// ByName returns the compiled-in layout with the given name.
func ByName(name string) (*Layout, error) {
	l, ok := layouts[name]
	if !ok {
		return nil, fmt.Errorf("unknown layout %q (have %v)", name, Names())
	}
	return l, nil
}

// Names returns the names of all compiled-in layouts.
func Names() []string {
	var result []string
	for name := range layouts {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
