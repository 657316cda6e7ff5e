package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/versegrid/versegrid/internal/config"
	"github.com/versegrid/versegrid/internal/driver"
	"github.com/versegrid/versegrid/internal/gitrepo"
	"github.com/versegrid/versegrid/internal/llm"
)

// App holds the collaborators commands are built from. The factory fields
// exist so tests can swap in fakes.
type App struct {
	ConfigPath string
	Verbose    bool

	// Log, when set, is used instead of a logger built from configuration.
	Log           *zap.Logger
	Clock         driver.Clock
	Rand          *rand.Rand
	IsInteractive func() bool
	NewClient     func(ctx context.Context, cfg llm.Config, obs llm.Observer) (llm.Client, error)
	NewGit        func(ctx context.Context, dir string, cfg gitrepo.Config, log *zap.Logger) (gitrepo.Writer, error)

	cfg config.Config
	log *zap.Logger
}

// NewApp returns an App wired to the real clock, generator and git binary.
func NewApp() *App {
	return &App{
		Clock: driver.WallClock,
		Rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
		NewClient: llm.New,
		NewGit: func(ctx context.Context, dir string, cfg gitrepo.Config, log *zap.Logger) (gitrepo.Writer, error) {
			w := gitrepo.NewExecWriter(dir, cfg, log)
			if err := w.Check(ctx); err != nil {
				return nil, err
			}
			return w, nil
		},
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// setup loads configuration and builds the logger once per invocation.
func (a *App) setup() error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.Log != nil {
		a.log = a.Log
		return nil
	}
	zc := zap.NewProductionConfig()
	if a.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Logging.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.Logging.File)
	}
	log, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log
	return nil
}

// NewRootCmd creates the top-level "versegrid" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "versegrid",
		Short: "Daily poems committed to draw a banner on the contribution calendar",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default ./"+config.DefaultFile+")")
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newPatternCmd(app),
		newScheduleCmd(app),
		newRunCmd(app),
		newComposeCmd(app),
	)

	return root
}
