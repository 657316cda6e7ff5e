package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/versegrid/versegrid/internal/pattern"
)

const (
	markPattern = '█'
	markNormal  = '░'
	markFuture  = '·'
	markNone    = ' '

	dayLabelWidth = 4
	cellWidth     = 2
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// calendarMarks turns grid cells into one mark per cell. Normal days after
// now show as future days; pattern days always show so the banner stays
// visible ahead of time. A zero now disables the future marker.
func calendarMarks(g [7][]pattern.Cell, levels pattern.Levels, now time.Time) [7][]rune {
	today := pattern.Midnight(now)
	var out [7][]rune
	for wd := range g {
		out[wd] = make([]rune, len(g[wd]))
		for w, c := range g[wd] {
			switch {
			case c.Present && c.Count >= levels.Elevated:
				out[wd][w] = markPattern
			case !now.IsZero() && c.Date.After(today):
				out[wd][w] = markFuture
			case c.Present:
				out[wd][w] = markNormal
			default:
				out[wd][w] = markNone
			}
		}
	}
	return out
}

// monthRow places a three-letter month label over the first week of each
// month. A label that would overlap the previous one is dropped.
func monthRow(anchor time.Time, weeks int) string {
	row := []rune(strings.Repeat(" ", dayLabelWidth+cellWidth*weeks+3))
	prev, end := time.Month(0), 0
	for w := 0; w < weeks; w++ {
		m := pattern.CellDate(anchor, w, 0).Month()
		if m == prev {
			continue
		}
		prev = m
		col := dayLabelWidth + cellWidth*w
		if col < end {
			continue
		}
		copy(row[col:], []rune(m.String()[:3]))
		end = col + 4
	}
	return strings.TrimRight(string(row), " ")
}

// RenderCalendar draws the schedule for year the way a contribution
// calendar shows it, followed by totals.
func RenderCalendar(s pattern.Schedule, year int, levels pattern.Levels, now time.Time) string {
	anchor := pattern.AnchorDate(year)
	grid := pattern.Grid(s, anchor, pattern.MaxWeeks)
	marks := calendarMarks(grid, levels, now)

	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Contribution calendar %d", year)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s pattern day (%d commits)  %s normal day (%d commits)  %s future day\n\n",
		StyleGreen.Render(string(markPattern)), levels.Elevated,
		Dim(string(markNormal)), levels.Baseline,
		Dim(string(markFuture)))

	b.WriteString(Dim(monthRow(anchor, pattern.MaxWeeks)))
	b.WriteString("\n")
	for wd, row := range marks {
		b.WriteString(Dim(fmt.Sprintf("%-*s", dayLabelWidth, weekdayLabels[wd])))
		var line strings.Builder
		for _, m := range row {
			cell := string(m)
			switch m {
			case markPattern:
				cell = StyleGreen.Render(cell)
			case markNormal, markFuture:
				cell = Dim(cell)
			}
			line.WriteString(cell)
			line.WriteString(" ")
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderStats(pattern.Summarize(s, levels), levels))
	return b.String()
}

// RenderStats tabulates pattern and normal days and their commits.
func RenderStats(sum pattern.Summary, levels pattern.Levels) string {
	rows := [][]string{
		{"pattern", fmt.Sprint(sum.PatternDays), fmt.Sprint(levels.Elevated), fmt.Sprint(sum.PatternCommits)},
		{"normal", fmt.Sprint(sum.NormalDays), fmt.Sprint(levels.Baseline), fmt.Sprint(sum.NormalCommits)},
		{Bold("total"), fmt.Sprint(sum.PatternDays + sum.NormalDays), "", Bold(fmt.Sprint(sum.TotalCommits()))},
	}
	return RenderTable([]string{"DAYS", "COUNT", "PER DAY", "COMMITS"}, rows)
}
