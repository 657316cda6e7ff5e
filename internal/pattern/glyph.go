package pattern

import (
	"fmt"
	"strings"
)

// GlyphSize is the number of rows and columns in every glyph bitmap.
const GlyphSize = 5

// Glyph is a 5x5 binary bitmap for one character of the banner.
// A '1' marks a filled cell; any other byte is empty.
type Glyph struct {
	Label string
	Rows  [GlyphSize]string
}

// Filled reports whether the cell at (row, col) is filled.
// Out-of-range coordinates are empty.
func (g Glyph) Filled(row, col int) bool {
	if row < 0 || row >= GlyphSize || col < 0 {
		return false
	}
	r := g.Rows[row]
	return col < len(r) && r[col] == '1'
}

// LeadFilled reports whether the leftmost cell of row is filled. The encoder
// only ever reads this column.
func (g Glyph) LeadFilled(row int) bool {
	return g.Filled(row, 0)
}

// Validate checks that every row is exactly GlyphSize cells wide.
func (g Glyph) Validate() error {
	if strings.TrimSpace(g.Label) == "" {
		return fmt.Errorf("glyph label is empty")
	}
	for i, r := range g.Rows {
		if len(r) != GlyphSize {
			return fmt.Errorf("glyph %q row %d: want %d cells, got %d", g.Label, i, GlyphSize, len(r))
		}
	}
	return nil
}

// NewGlyph builds a glyph from row strings, as read from configuration.
func NewGlyph(label string, rows []string) (Glyph, error) {
	g := Glyph{Label: label}
	if len(rows) != GlyphSize {
		return g, fmt.Errorf("glyph %q: want %d rows, got %d", label, GlyphSize, len(rows))
	}
	copy(g.Rows[:], rows)
	if err := g.Validate(); err != nil {
		return g, err
	}
	return g, nil
}

// Table maps glyph labels to bitmaps.
type Table map[string]Glyph

// Lookup returns the glyph for label, if defined.
func (t Table) Lookup(label string) (Glyph, bool) {
	g, ok := t[label]
	return g, ok
}
