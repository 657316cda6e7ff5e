package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/versegrid/versegrid/internal/cli/formatter"
	"github.com/versegrid/versegrid/internal/poem"
)

func newComposeCmd(app *App) *cobra.Command {
	var number, total int

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Generate one poem and print it without writing or committing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if total < 1 {
				total = app.cfg.Driver.DefaultCount
			}
			if number < 1 || number > total {
				return fmt.Errorf("--number must be between 1 and %d", total)
			}

			client, err := app.newClient(cmd.Context())
			if err != nil {
				return err
			}
			c := poem.NewComposer(client, app.cfg.Poem, app.Rand)

			stop := func() {}
			if app.IsInteractive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Writing poem %d of %d...", number, total))
			}
			d, err := c.Compose(cmd.Context(), number, total, nil)
			stop()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPoem(d))
			return nil
		},
	}

	cmd.Flags().IntVar(&number, "number", 1, "Position of the poem in the day")
	cmd.Flags().IntVar(&total, "total", 0, "Poems in the day (default from config)")
	return cmd
}
