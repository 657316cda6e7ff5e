package pattern

// DefaultTable returns the glyphs for the built-in "GIGACHAD :D" banner.
func DefaultTable() Table {
	glyphs := []Glyph{
		{Label: "G", Rows: [GlyphSize]string{"11111", "1....", "1.111", "1..1.", "11111"}},
		{Label: "I", Rows: [GlyphSize]string{"11111", "..1..", "..1..", "..1..", "11111"}},
		{Label: "A", Rows: [GlyphSize]string{"11111", "1...1", "11111", "1...1", "1...1"}},
		{Label: "C", Rows: [GlyphSize]string{"11111", "1....", "1....", "1....", "11111"}},
		{Label: "H", Rows: [GlyphSize]string{"1...1", "1...1", "11111", "1...1", "1...1"}},
		{Label: "D", Rows: [GlyphSize]string{"1111.", "1...1", "1...1", "1...1", "1111."}},
		{Label: ":", Rows: [GlyphSize]string{".....", "..1..", ".....", "..1..", "....."}},
	}
	t := make(Table, len(glyphs))
	for _, g := range glyphs {
		t[g.Label] = g
	}
	return t
}

// DefaultSequence returns the week placements of the built-in banner.
func DefaultSequence() Sequence {
	return Sequence{
		{Label: "G", StartWeek: 1, EndWeek: 7},
		{Label: "I", StartWeek: 8, EndWeek: 14},
		{Label: "G", StartWeek: 15, EndWeek: 21},
		{Label: "A", StartWeek: 22, EndWeek: 28},
		{Label: "C", StartWeek: 29, EndWeek: 35},
		{Label: "H", StartWeek: 36, EndWeek: 42},
		{Label: "A", StartWeek: 43, EndWeek: 46},
		{Label: "D", StartWeek: 47, EndWeek: 49},
		{Label: ":", StartWeek: 50, EndWeek: 50},
		{Label: "D", StartWeek: 51, EndWeek: 52},
	}
}
