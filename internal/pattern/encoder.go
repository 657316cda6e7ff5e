package pattern

import (
	"fmt"
	"time"
)

// Schedule maps ISO dates to the number of commits wanted that day.
type Schedule map[string]int

// Count returns the commits scheduled for t and whether t is present.
func (s Schedule) Count(t time.Time) (int, bool) {
	n, ok := s[DateKey(t)]
	return n, ok
}

// Levels are the two commit counts that draw the pattern: Baseline for the
// background and Elevated for cells under a filled glyph.
type Levels struct {
	Baseline int `yaml:"baseline" json:"baseline"`
	Elevated int `yaml:"elevated" json:"elevated"`
}

// DefaultLevels returns 8 commits per normal day and 17 per pattern day.
func DefaultLevels() Levels {
	return Levels{Baseline: 8, Elevated: 17}
}

// Validate requires positive levels with Elevated above Baseline.
func (l Levels) Validate() error {
	if l.Baseline <= 0 {
		return fmt.Errorf("baseline level must be positive, got %d", l.Baseline)
	}
	if l.Elevated <= l.Baseline {
		return fmt.Errorf("elevated level (%d) must exceed baseline (%d)", l.Elevated, l.Baseline)
	}
	return nil
}

// Baseline assigns level to every date from January 1 of anchor's year up to,
// but not including, January 1 of the next year.
func Baseline(anchor time.Time, level int) Schedule {
	start, end := YearBounds(anchor)
	s := make(Schedule, DaysBetween(start, end))
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		s[DateKey(d)] = level
	}
	return s
}

// Apply raises to level every date lying under the leftmost column of a
// filled glyph row. Glyph row r maps to weekday r (0 = Sunday); week w of a
// placement maps to anchor + (w-1) weeks. Labels missing from table are
// skipped. Dates past December 31 are written as they fall.
func Apply(s Schedule, table Table, seq Sequence, anchor time.Time, level int) {
	for _, p := range seq {
		g, ok := table.Lookup(p.Label)
		if !ok {
			continue
		}
		for w := p.StartWeek; w <= p.EndWeek; w++ {
			for r := 0; r < GlyphSize; r++ {
				if !g.LeadFilled(r) {
					continue
				}
				s[DateKey(CellDate(anchor, w-1, r))] = level
			}
		}
	}
}

// Encoder turns a glyph banner into a full-year commit schedule.
type Encoder struct {
	Table    Table
	Sequence Sequence
	Levels   Levels
}

// NewEncoder returns an Encoder for the given banner.
func NewEncoder(table Table, seq Sequence, levels Levels) *Encoder {
	return &Encoder{Table: table, Sequence: seq, Levels: levels}
}

// Build validates the banner and returns the schedule for year.
func (e *Encoder) Build(year int) (Schedule, error) {
	if err := e.Levels.Validate(); err != nil {
		return nil, err
	}
	if err := e.Sequence.Validate(); err != nil {
		return nil, err
	}
	anchor := AnchorDate(year)
	s := Baseline(anchor, e.Levels.Baseline)
	Apply(s, e.Table, e.Sequence, anchor, e.Levels.Elevated)
	return s, nil
}
