package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/schedule"
)

func newScheduleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Query the commit schedule",
	}
	cmd.AddCommand(newScheduleCountCmd(app))
	return cmd
}

func newScheduleCountCmd(app *App) *cobra.Command {
	var date dateValue

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print how many poems are wanted on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := date.or(app.Clock.Now())
			store := schedule.NewStore(app.cfg.SchedulePath(), app.log)
			n := store.LoadCount(d, app.cfg.Driver.DefaultCount)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", pattern.DateKey(d), n)
			return nil
		},
	}

	cmd.Flags().Var(&date, "date", "Date to look up, YYYY-MM-DD (default today)")
	return cmd
}
