package pattern

import "time"

// Cell is one day on the rendered calendar.
type Cell struct {
	Date    time.Time
	Count   int
	Present bool
}

// Grid lays out s as seven weekday rows (Sunday first) by weeks columns
// starting at anchor, the way a contribution calendar draws it.
func Grid(s Schedule, anchor time.Time, weeks int) [7][]Cell {
	var g [7][]Cell
	for wd := 0; wd < 7; wd++ {
		g[wd] = make([]Cell, weeks)
		for w := 0; w < weeks; w++ {
			d := CellDate(anchor, w, wd)
			n, ok := s.Count(d)
			g[wd][w] = Cell{Date: d, Count: n, Present: ok}
		}
	}
	return g
}

// Summary totals a schedule by level.
type Summary struct {
	PatternDays    int
	NormalDays     int
	PatternCommits int
	NormalCommits  int
}

// TotalCommits is the sum of all scheduled commits.
func (s Summary) TotalCommits() int {
	return s.PatternCommits + s.NormalCommits
}

// Summarize counts days at or above the elevated level as pattern days and
// everything else as normal days.
func Summarize(s Schedule, levels Levels) Summary {
	var sum Summary
	for _, n := range s {
		if n >= levels.Elevated {
			sum.PatternDays++
			sum.PatternCommits += n
			continue
		}
		sum.NormalDays++
		sum.NormalCommits += n
	}
	return sum
}
