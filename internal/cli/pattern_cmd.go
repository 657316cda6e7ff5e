package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/versegrid/versegrid/internal/cli/formatter"
	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/schedule"
)

func newPatternCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Build and inspect the yearly commit schedule",
	}
	cmd.AddCommand(newPatternGenerateCmd(app), newPatternPreviewCmd(app))
	return cmd
}

func newPatternGenerateCmd(app *App) *cobra.Command {
	var year int
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Encode the banner into a schedule file and preview it",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := app.Clock.Now()
			if year == 0 {
				year = now.Year()
			}
			if out == "" {
				out = app.cfg.SchedulePath()
			}

			enc, err := app.cfg.Pattern.Encoder()
			if err != nil {
				return err
			}
			sched, err := enc.Build(year)
			if err != nil {
				return fmt.Errorf("building schedule: %w", err)
			}
			if err := schedule.NewStore(out, app.log).Save(sched); err != nil {
				return err
			}

			sum := pattern.Summarize(sched, enc.Levels)
			app.log.Info("schedule generated",
				zap.Int("year", year),
				zap.String("anchor", pattern.DateKey(pattern.AnchorDate(year))),
				zap.Int("pattern_days", sum.PatternDays),
				zap.Int("total_commits", sum.TotalCommits()))

			w := cmd.OutOrStdout()
			fmt.Fprint(w, formatter.RenderCalendar(sched, year, enc.Levels, now))
			fmt.Fprintf(w, "\n%s %s\n", formatter.Dim("Saved to"), out)
			fmt.Fprintf(w, "%s %s\n", formatter.Dim("Pattern starts on the first Sunday:"), pattern.DateKey(pattern.AnchorDate(year)))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Calendar year to encode (default current year)")
	cmd.Flags().StringVar(&out, "out", "", "Schedule file to write (.json or .yaml)")
	return cmd
}

func newPatternPreviewCmd(app *App) *cobra.Command {
	var file string
	var year int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a saved schedule as a contribution calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = app.cfg.SchedulePath()
			}
			sched, err := schedule.NewStore(file, app.log).Load()
			if err != nil {
				return err
			}
			if year == 0 {
				year = scheduleYear(sched, app.Clock.Now())
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderCalendar(sched, year, app.cfg.Pattern.Levels, app.Clock.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Schedule file to read (default from config)")
	cmd.Flags().IntVar(&year, "year", 0, "Year to draw (default the schedule's first year)")
	return cmd
}

// scheduleYear is the year of the earliest scheduled date, or now's year for
// an empty schedule.
func scheduleYear(s pattern.Schedule, now time.Time) int {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t, err := time.Parse(pattern.DateLayout, k); err == nil {
			return t.Year()
		}
	}
	return now.Year()
}
