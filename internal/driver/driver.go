package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/versegrid/versegrid/internal/gitrepo"
	"github.com/versegrid/versegrid/internal/llm"
	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/poem"
	"github.com/versegrid/versegrid/internal/retry"
)

// ErrIncomplete is returned by callers that treat skipped slots as a failed run.
var ErrIncomplete = errors.New("daily run incomplete")

// CountSource yields the number of poems wanted on a date.
type CountSource interface {
	LoadCount(date time.Time, def int) int
}

// Drafter produces and validates poems.
type Drafter interface {
	Draft(ctx context.Context, number, total int, prior []string) (poem.Raw, error)
	Validate(r poem.Raw) (poem.Draft, error)
}

// Clock tells the time and pauses.
type Clock interface {
	Now() time.Time
	retry.Sleeper
}

type wallClock struct{ retry.WallSleeper }

func (wallClock) Now() time.Time { return time.Now() }

// WallClock is the real clock.
var WallClock Clock = wallClock{}

// Config tunes one daily run.
type Config struct {
	DefaultCount  int           `yaml:"default_count"`
	Budget        time.Duration `yaml:"budget"`
	NotBeforeHour int           `yaml:"not_before_hour"`
	Generation    retry.Policy  `yaml:"generation_retry"`
	Git           retry.Policy  `yaml:"git_retry"`
	Slot          retry.Policy  `yaml:"slot_retry"`
}

// DefaultConfig spreads 8 poems over eight hours starting at 08:00.
func DefaultConfig() Config {
	return Config{
		DefaultCount:  8,
		Budget:        8 * time.Hour,
		NotBeforeHour: 8,
		Generation:    retry.Policy{Attempts: 3, Delay: 10 * time.Second},
		Git:           retry.Policy{Attempts: 3, Delay: 30 * time.Second},
		Slot:          retry.Policy{Attempts: 2, Delay: time.Minute},
	}
}

// Deps are the collaborators a Driver calls.
type Deps struct {
	Counts  CountSource
	Library *poem.Library
	Drafter Drafter
	Git     gitrepo.Writer
	Clock   Clock
	Log     *zap.Logger
	// OnSlot, if set, is called with every finished slot.
	OnSlot func(SlotResult)
}

// Driver creates and commits one day's poems.
type Driver struct {
	cfg  Config
	deps Deps
}

// New returns a Driver.
func New(cfg Config, deps Deps) *Driver {
	if deps.Clock == nil {
		deps.Clock = WallClock
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Driver{cfg: cfg, deps: deps}
}

// Options narrow a single run.
type Options struct {
	// Date overrides today's date.
	Date time.Time
	// Count overrides the scheduled count when positive.
	Count int
	// Force skips the not-before-hour gate.
	Force bool
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Date     time.Time
	Dir      string
	Required int
	Existing int
	// Gated is set when the run did nothing because it started too early.
	Gated bool
	Slots []SlotResult
}

// Committed counts slots that reached COMMITTED.
func (r *Report) Committed() int {
	return r.count(StateCommitted)
}

// Skipped counts slots that ran out of retries.
func (r *Report) Skipped() int {
	return r.count(StateSkippedAfterRetries)
}

func (r *Report) count(s SlotState) int {
	n := 0
	for _, sl := range r.Slots {
		if sl.State == s {
			n++
		}
	}
	return n
}

// Run generates poems existing+1 through required for the day, committing
// each before starting the next. A slot that exhausts its retries is logged
// and skipped; the returned error is reserved for failures that prevent the
// run from starting and for cancellation.
func (d *Driver) Run(ctx context.Context, opts Options) (*Report, error) {
	now := d.deps.Clock.Now()
	date := opts.Date
	if date.IsZero() {
		date = now
	}

	rep := &Report{RunID: uuid.NewString(), Date: date}
	log := d.deps.Log.With(zap.String("run_id", rep.RunID), zap.String("date", pattern.DateKey(date)))

	day := d.deps.Library.Day(date)
	rep.Dir = day.Dir()
	existing, err := day.Existing()
	if err != nil {
		return rep, fmt.Errorf("counting existing poems: %w", err)
	}
	rep.Existing = existing

	rep.Required = opts.Count
	if rep.Required <= 0 {
		rep.Required = d.deps.Counts.LoadCount(date, d.cfg.DefaultCount)
	}
	if rep.Required > poem.MaxIndex {
		log.Warn("required count exceeds file index range, capping",
			zap.Int("required", rep.Required), zap.Int("cap", poem.MaxIndex))
		rep.Required = poem.MaxIndex
	}

	if !opts.Force && existing == 0 && now.Hour() < d.cfg.NotBeforeHour {
		rep.Gated = true
		log.Info("no poems yet and before start hour, waiting for scheduled time",
			zap.Int("not_before_hour", d.cfg.NotBeforeHour))
		return rep, nil
	}

	if err := d.commitPending(ctx, log, day, rep); err != nil {
		return rep, err
	}

	if existing >= rep.Required {
		log.Info("all poems for today already exist",
			zap.Int("existing", existing), zap.Int("required", rep.Required))
		return rep, nil
	}

	interval := d.cfg.Budget / time.Duration(rep.Required)
	log.Info("starting daily run",
		zap.Int("existing", existing),
		zap.Int("required", rep.Required),
		zap.Int("start", existing+1),
		zap.Duration("interval", interval),
		zap.String("dir", rep.Dir))

	for n := existing + 1; n <= rep.Required; n++ {
		start := d.deps.Clock.Now()
		res := d.runSlot(ctx, log, day, rep, n)
		res.Elapsed = d.deps.Clock.Now().Sub(start)
		rep.Slots = append(rep.Slots, res)
		if d.deps.OnSlot != nil {
			d.deps.OnSlot(res)
		}

		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if n == rep.Required {
			break
		}
		if wait := interval - res.Elapsed; wait > 0 {
			log.Debug("pacing", zap.Int("slot", n), zap.Duration("wait", wait))
			if err := d.deps.Clock.Sleep(ctx, wait); err != nil {
				return rep, err
			}
		}
	}

	log.Info("daily run finished",
		zap.Int("committed", rep.Committed()),
		zap.Int("skipped", rep.Skipped()))
	return rep, nil
}

// commitPending commits artifacts an earlier run wrote but could not commit.
// They already count as existing, so no slot of this run would reach them.
func (d *Driver) commitPending(ctx context.Context, log *zap.Logger, day *poem.Day, rep *Report) error {
	lister, ok := d.deps.Git.(gitrepo.PendingLister)
	if !ok {
		return nil
	}
	paths, err := lister.Pending(ctx, day.Dir())
	if err != nil {
		log.Warn("listing uncommitted poems failed", zap.Error(err))
		return nil
	}

	for _, path := range paths {
		n, ok := day.Index(path)
		if !ok {
			continue
		}
		s := newSlot(n, rep.Required, log)
		s.Path, s.Title, s.Reused = path, titleOf(path), true
		s.Attempts = 1
		s.to(StateWritten)
		s.log.Info("committing poem left over from an earlier run", zap.String("file", filepath.Base(path)))

		if err := d.commit(ctx, s, rep, n); err != nil {
			s.Err = err
			s.to(StateSkippedAfterRetries)
			s.log.Error("leftover poem still uncommitted", zap.Error(err))
		}
		rep.Slots = append(rep.Slots, s.SlotResult)
		if d.deps.OnSlot != nil {
			d.deps.OnSlot(s.SlotResult)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func titleOf(path string) string {
	title, err := poem.Title(path)
	if err != nil {
		return strings.TrimSuffix(filepath.Base(path), ".md")
	}
	return title
}

// runSlot drives one slot to COMMITTED or SKIPPED_AFTER_RETRIES.
func (d *Driver) runSlot(ctx context.Context, log *zap.Logger, day *poem.Day, rep *Report, n int) SlotResult {
	s := newSlot(n, rep.Required, log)

	err := retry.Do(ctx, d.cfg.Slot, retry.Options{
		Sleeper: d.deps.Clock,
		OnRetry: func(attempt int, err error) {
			s.log.Warn("slot attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func(attempt int) error {
		s.Attempts = attempt
		if err := d.ensureArtifact(ctx, s, day, rep, n); err != nil {
			return err
		}
		return d.commit(ctx, s, rep, n)
	})
	if err != nil {
		s.Err = err
		s.to(StateSkippedAfterRetries)
		s.log.Error("slot skipped after retries",
			zap.Int("attempts", s.Attempts),
			zap.Error(err))
		return s.SlotResult
	}

	s.log.Info("poem committed",
		zap.String("title", s.Title),
		zap.String("file", filepath.Base(s.Path)),
		zap.Bool("reused", s.Reused))
	return s.SlotResult
}

// ensureArtifact leaves s WRITTEN with Path and Title set, generating the
// poem only when no file exists for the index.
func (d *Driver) ensureArtifact(ctx context.Context, s *slot, day *poem.Day, rep *Report, n int) error {
	if s.State == StateWritten {
		return nil
	}

	if path, ok, err := day.Find(n); err != nil {
		return err
	} else if ok {
		s.Path, s.Title, s.Reused = path, titleOf(path), true
		s.log.Info("poem already exists, skipping generation", zap.String("file", filepath.Base(path)))
		s.to(StateWritten)
		return nil
	}

	prior, err := day.Bodies()
	if err != nil {
		return err
	}

	draft, err := retry.Value(ctx, d.cfg.Generation, retry.Options{
		Sleeper: d.deps.Clock,
		OnRetry: func(attempt int, err error) {
			s.log.Warn("generation failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func(int) (poem.Draft, error) {
		s.to(StateGenerating)
		s.Generations++
		raw, err := d.deps.Drafter.Draft(ctx, n, rep.Required, prior)
		if err != nil {
			if errors.Is(err, llm.ErrRejected) {
				return poem.Draft{}, retry.Permanent(err)
			}
			return poem.Draft{}, err
		}
		s.to(StateValidating)
		return d.deps.Drafter.Validate(raw)
	})
	if errors.Is(err, llm.ErrRejected) {
		return retry.Permanent(fmt.Errorf("generating poem %d: %w", n, err))
	}
	if err != nil {
		return fmt.Errorf("generating poem %d: %w", n, err)
	}

	path, _, err := day.Write(draft.Poem, poem.Meta{
		Index:     n,
		Themes:    draft.Themes,
		CreatedAt: d.deps.Clock.Now(),
		RunID:     rep.RunID,
	})
	if err != nil {
		return fmt.Errorf("writing poem %d: %w", n, err)
	}
	s.Path, s.Title = path, draft.Poem.Title
	s.to(StateWritten)
	return nil
}

func (d *Driver) commit(ctx context.Context, s *slot, rep *Report, n int) error {
	msg := gitrepo.CommitMessage(n, rep.Required, s.Title)
	err := retry.Do(ctx, d.cfg.Git, retry.Options{
		Sleeper: d.deps.Clock,
		OnRetry: func(attempt int, err error) {
			s.log.Warn("commit failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func(int) error {
		return d.deps.Git.Commit(ctx, s.Path, msg)
	})
	if err != nil {
		return fmt.Errorf("committing poem %d: %w", n, err)
	}
	s.to(StateCommitted)
	return nil
}
