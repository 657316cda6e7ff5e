package pattern

import (
	"errors"
	"fmt"
)

// MaxWeeks is the widest span a contribution calendar can show in one year.
const MaxWeeks = 53

// ErrInvalidSequence is returned when placements overlap, run backwards, or
// fall outside the calendar.
var ErrInvalidSequence = errors.New("invalid glyph sequence")

// Placement puts one glyph over an inclusive, 1-based range of calendar weeks.
type Placement struct {
	Label     string `yaml:"glyph" json:"glyph"`
	StartWeek int    `yaml:"start_week" json:"start_week"`
	EndWeek   int    `yaml:"end_week" json:"end_week"`
}

// Weeks returns the number of weeks the placement covers.
func (p Placement) Weeks() int {
	return p.EndWeek - p.StartWeek + 1
}

// Sequence is an ordered list of placements. A label may repeat.
type Sequence []Placement

// Validate enforces 1 <= start <= end <= MaxWeeks on each placement and that
// placements are strictly increasing with no shared weeks.
func (s Sequence) Validate() error {
	prevEnd := 0
	for i, p := range s {
		if p.StartWeek < 1 || p.EndWeek > MaxWeeks || p.StartWeek > p.EndWeek {
			return fmt.Errorf("%w: placement %d (%q) spans weeks %d-%d", ErrInvalidSequence, i, p.Label, p.StartWeek, p.EndWeek)
		}
		if p.StartWeek <= prevEnd {
			return fmt.Errorf("%w: placement %d (%q) starts at week %d, overlapping week %d", ErrInvalidSequence, i, p.Label, p.StartWeek, prevEnd)
		}
		prevEnd = p.EndWeek
	}
	return nil
}

// Span returns the total number of weeks covered by all placements.
func (s Sequence) Span() int {
	total := 0
	for _, p := range s {
		total += p.Weeks()
	}
	return total
}
