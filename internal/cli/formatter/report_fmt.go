package formatter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/versegrid/versegrid/internal/driver"
	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/poem"
)

const reportProgressBarWidth = 16

// FormatDuration renders d at second precision, like "2h 5m" or "42s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatSlot renders one finished slot as a single progress line.
func FormatSlot(r driver.SlotResult) string {
	line := fmt.Sprintf("%s  %s  %s", Bold(fmt.Sprintf("%02d/%02d", r.Index, r.Total)), StatePill(r.State), r.Title)
	if r.Reused {
		line += Dim(" (existing)")
	}
	if r.Err != nil {
		line += "\n       " + StyleRed.Render(r.Err.Error())
	}
	return line
}

// FormatReport renders a finished daily run.
func FormatReport(rep *driver.Report) string {
	var b strings.Builder
	b.WriteString(Header("Daily run " + pattern.DateKey(rep.Date)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("Folder:"), rep.Dir)
	fmt.Fprintf(&b, "%s %s\n", Dim("Run:   "), rep.RunID)

	switch {
	case rep.Gated:
		b.WriteString(StyleYellow.Render("No poems yet and it is too early to start; nothing done."))
		b.WriteString("\n")
		return b.String()
	case len(rep.Slots) == 0 && rep.Existing >= rep.Required:
		fmt.Fprintf(&b, "%s\n", StyleGreen.Render(fmt.Sprintf("All %d poems already exist.", rep.Required)))
		return b.String()
	}

	b.WriteString("\n")
	rows := make([][]string, 0, len(rep.Slots))
	for _, s := range rep.Slots {
		file := Dim("--")
		if s.Path != "" {
			file = filepath.Base(s.Path)
		}
		title := s.Title
		if title == "" {
			title = Dim("--")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%02d", s.Index),
			StatePill(s.State),
			title,
			file,
			FormatDuration(s.Elapsed),
		})
	}
	b.WriteString(RenderTable([]string{"#", "STATE", "TITLE", "FILE", "TOOK"}, rows))
	b.WriteString("\n")

	done := rep.Existing + rep.Committed()
	fmt.Fprintf(&b, "%s  %d committed, %d skipped\n",
		RenderProgress(done, rep.Required, reportProgressBarWidth), rep.Committed(), rep.Skipped())
	return b.String()
}

// FormatPoem renders a draft for the terminal.
func FormatPoem(d poem.Draft) string {
	var b strings.Builder
	b.WriteString(Bold(d.Poem.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Poem.Body())
	b.WriteString("\n")
	var meta []string
	if len(d.Themes) > 0 {
		meta = append(meta, "themes: "+strings.Join(d.Themes, ", "))
	}
	if d.Model != "" {
		meta = append(meta, "model: "+d.Model)
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(Dim(strings.Join(meta, " | ")))
		b.WriteString("\n")
	}
	return b.String()
}
