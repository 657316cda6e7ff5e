package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/versegrid/versegrid/internal/cli/formatter"
	"github.com/versegrid/versegrid/internal/driver"
	"github.com/versegrid/versegrid/internal/llm"
	"github.com/versegrid/versegrid/internal/poem"
	"github.com/versegrid/versegrid/internal/schedule"
)

func newRunCmd(app *App) *cobra.Command {
	var date dateValue
	var count int
	var force bool
	var budget time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write and commit today's poems, paced across the day",
		Long: `Generates the poems still missing for the day, one slot at a time, and
commits each before starting the next. Slots that run out of retries are
logged and skipped; the command then exits non-zero so schedulers notice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg.Driver
			if cmd.Flags().Changed("budget") {
				cfg.Budget = budget
			}

			d, err := app.newDriver(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			rep, err := d.Run(cmd.Context(), driver.Options{
				Date:  date.or(time.Time{}),
				Count: count,
				Force: force,
			})
			if rep != nil {
				fmt.Fprint(cmd.OutOrStdout(), "\n"+formatter.FormatReport(rep))
			}
			if err != nil {
				return err
			}
			if n := rep.Skipped(); n > 0 {
				return fmt.Errorf("%w: %d of %d poems skipped", driver.ErrIncomplete, n, len(rep.Slots))
			}
			return nil
		},
	}

	cmd.Flags().Var(&date, "date", "Day to fill, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&count, "count", 0, "Poems wanted, overriding the schedule")
	cmd.Flags().BoolVar(&force, "force", false, "Start even before the configured hour")
	cmd.Flags().DurationVar(&budget, "budget", 0, "Time to spread the day's poems over (e.g. 8h, 0 for no pacing)")
	return cmd
}

// newDriver wires a Driver from configuration. Finished slots are echoed to
// w, with the poem itself when w is a terminal.
func (a *App) newDriver(ctx context.Context, cfg driver.Config, w io.Writer) (*driver.Driver, error) {
	lib, err := poem.NewLibrary(a.cfg.Repo, a.cfg.Creator.Tag, a.cfg.Creator.Name)
	if err != nil {
		return nil, err
	}
	client, err := a.newClient(ctx)
	if err != nil {
		return nil, err
	}
	git, err := a.NewGit(ctx, a.cfg.Repo, a.cfg.Git, a.log)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	interactive := a.IsInteractive()
	return driver.New(cfg, driver.Deps{
		Counts:  schedule.NewStore(a.cfg.SchedulePath(), a.log),
		Library: lib,
		Drafter: poem.NewComposer(client, a.cfg.Poem, a.Rand),
		Git:     git,
		Clock:   a.Clock,
		Log:     a.log,
		OnSlot: func(r driver.SlotResult) {
			fmt.Fprintln(w, formatter.FormatSlot(r))
			if !interactive || r.Reused || r.State != driver.StateCommitted {
				return
			}
			if data, err := os.ReadFile(r.Path); err == nil {
				fmt.Fprintln(w, formatter.Dim(string(data)))
			}
		},
	}), nil
}

func (a *App) newClient(ctx context.Context) (llm.Client, error) {
	var obs llm.Observer = llm.NoopObserver{}
	if a.cfg.LLM.LogCalls {
		obs = llm.NewZapObserver(a.log.Named("llm"))
	}
	client, err := a.NewClient(ctx, a.cfg.LLM, obs)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", a.cfg.LLM.Provider, err)
	}
	a.log.Debug("generator ready",
		zap.String("provider", string(a.cfg.LLM.Provider)),
		zap.String("model", a.cfg.LLM.Model))
	return client, nil
}
