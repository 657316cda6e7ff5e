package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/versegrid/versegrid/internal/gitrepo"
	"github.com/versegrid/versegrid/internal/llm"
	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/poem"
	"github.com/versegrid/versegrid/internal/schedule"
	"github.com/versegrid/versegrid/internal/testutil"
)

func TestMain(m *testing.M) {
	// opencensus, pulled in by the genai SDK, starts a worker in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var start = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type fixedCount int

func (f fixedCount) LoadCount(time.Time, int) int { return int(f) }

// recorder interleaves generator and git calls into one event list.
type recorder struct {
	events  []string
	drafter *testutil.Drafter
	git     *testutil.Git
}

func (r *recorder) Draft(ctx context.Context, n, total int, prior []string) (poem.Raw, error) {
	r.events = append(r.events, fmt.Sprintf("draft %d", n))
	return r.drafter.Draft(ctx, n, total, prior)
}

func (r *recorder) Validate(raw poem.Raw) (poem.Draft, error) { return r.drafter.Validate(raw) }

func (r *recorder) Commit(ctx context.Context, path, msg string) error {
	r.events = append(r.events, "commit "+filepath.Base(path)[:2])
	return r.git.Commit(ctx, path, msg)
}

func (r *recorder) Pending(ctx context.Context, dir string) ([]string, error) {
	return r.git.Pending(ctx, dir)
}

type harness struct {
	clock   *testutil.Clock
	drafter *testutil.Drafter
	git     *testutil.Git
	rec     *recorder
	lib     *poem.Library
	log     *zap.Logger
	logs    *observer.ObservedLogs
	cfg     Config
	counts  CountSource
}

func newHarness(t *testing.T, required int) *harness {
	t.Helper()
	lib, err := poem.NewLibrary(t.TempDir(), "RB", "Test Agent")
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		clock:   testutil.NewClock(start),
		drafter: &testutil.Drafter{},
		git:     &testutil.Git{},
		lib:     lib,
		log:     zap.New(core),
		logs:    logs,
		cfg:     DefaultConfig(),
		counts:  fixedCount(required),
	}
	h.rec = &recorder{drafter: h.drafter, git: h.git}
	return h
}

func (h *harness) driver() *Driver {
	return New(h.cfg, Deps{
		Counts:  h.counts,
		Library: h.lib,
		Drafter: h.rec,
		Git:     h.rec,
		Clock:   h.clock,
		Log:     h.log,
	})
}

func (h *harness) seed(t *testing.T, indices ...int) {
	t.Helper()
	day := h.lib.Day(start)
	for _, i := range indices {
		_, _, err := day.Write(poem.Poem{Title: fmt.Sprintf("Seed %d", i), Lines: []string{"seeded"}}, poem.Meta{Index: i, CreatedAt: start})
		require.NoError(t, err)
	}
}

func TestRun_GeneratesRemainingSlotsInOrder(t *testing.T) {
	h := newHarness(t, 8)
	h.seed(t, 1, 2, 3)

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Existing)
	assert.Equal(t, 8, rep.Required)
	assert.Equal(t, []int{4, 5, 6, 7, 8}, h.drafter.Calls)
	assert.Equal(t, []string{
		"draft 4", "commit 04",
		"draft 5", "commit 05",
		"draft 6", "commit 06",
		"draft 7", "commit 07",
		"draft 8", "commit 08",
	}, h.rec.events)
	require.Len(t, h.git.Commits, 5)
	assert.Equal(t, "Add poem 04/08: Poem 4", h.git.Commits[0].Message)
	assert.Equal(t, 5, rep.Committed())
	assert.Equal(t, 0, rep.Skipped())

	n, err := h.lib.Day(start).Existing()
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestRun_NothingToDoWhenRequiredMet(t *testing.T) {
	h := newHarness(t, 3)
	h.seed(t, 1, 2, 3)

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Empty(t, h.drafter.Calls)
	assert.Zero(t, h.git.Calls)
	assert.Empty(t, rep.Slots)
	assert.Empty(t, h.clock.Slept)
}

func TestRun_PacesAcrossBudget(t *testing.T) {
	h := newHarness(t, 4)
	h.drafter.Clock = h.clock
	h.drafter.Elapse = 5 * time.Minute

	_, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)

	want := 2*time.Hour - 5*time.Minute
	assert.Equal(t, []time.Duration{want, want, want}, h.clock.Slept)
}

func TestRun_SlowSlotSkipsPacing(t *testing.T) {
	h := newHarness(t, 2)
	h.cfg.Budget = 10 * time.Minute
	h.drafter.Clock = h.clock
	h.drafter.Elapse = 20 * time.Minute

	_, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, h.clock.Slept)
}

func TestRun_InvalidResponseIsRegenerated(t *testing.T) {
	h := newHarness(t, 1)
	h.drafter.Responses = []any{"Title: [Your Title Here]\n\n[Poem lines here]"}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Slots, 1)

	s := rep.Slots[0]
	assert.Equal(t, StateCommitted, s.State)
	assert.Equal(t, 2, s.Generations)
	assert.Equal(t, []SlotState{
		StatePending,
		StateGenerating, StateValidating,
		StateGenerating, StateValidating,
		StateWritten, StateCommitted,
	}, s.Trail)
	assert.Equal(t, []time.Duration{h.cfg.Generation.Delay}, h.clock.Slept)
}

func TestRun_ExhaustedSlotIsLoggedAndSkipped(t *testing.T) {
	h := newHarness(t, 2)
	boom := errors.New("generator down")
	attempts := h.cfg.Generation.Attempts * h.cfg.Slot.Attempts
	for i := 0; i < attempts; i++ {
		h.drafter.Responses = append(h.drafter.Responses, boom)
	}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Slots, 2)

	assert.Equal(t, StateSkippedAfterRetries, rep.Slots[0].State)
	assert.ErrorIs(t, rep.Slots[0].Err, boom)
	assert.Equal(t, attempts, rep.Slots[0].Generations)
	assert.Equal(t, StateCommitted, rep.Slots[1].State)
	assert.Equal(t, 1, rep.Skipped())

	errs := h.logs.FilterMessage("slot skipped after retries").All()
	require.Len(t, errs, 1)
	assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
	ctx := errs[0].ContextMap()
	assert.Equal(t, int64(1), ctx["slot"])
	assert.Equal(t, "2024-06-15", ctx["date"])
}

func TestRun_RejectedGeneratorNotRetried(t *testing.T) {
	h := newHarness(t, 1)
	h.drafter.Responses = []any{fmt.Errorf("auth: %w", llm.ErrRejected)}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSkippedAfterRetries, rep.Slots[0].State)
	assert.Equal(t, 1, rep.Slots[0].Generations)
}

func TestRun_GitFailureRetried(t *testing.T) {
	h := newHarness(t, 1)
	h.git.Errs = []error{fmt.Errorf("%w: remote moved", gitrepo.ErrPushRejected)}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, rep.Slots[0].State)
	assert.Equal(t, 2, h.git.Calls)
	assert.Len(t, h.git.Commits, 1)
	assert.Equal(t, []time.Duration{h.cfg.Git.Delay}, h.clock.Slept)
}

func TestRun_GitExhaustionKeepsFileAndNextRunResumes(t *testing.T) {
	h := newHarness(t, 1)
	for i := 0; i < h.cfg.Git.Attempts*h.cfg.Slot.Attempts; i++ {
		h.git.Errs = append(h.git.Errs, errors.New("network"))
	}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	s := rep.Slots[0]
	assert.Equal(t, StateSkippedAfterRetries, s.State)
	assert.Equal(t, 1, s.Generations, "slot retry must not regenerate a written poem")
	assert.FileExists(t, s.Path)

	// The file exists, so the next run sees the day as done.
	rep, err = h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, rep.Slots)
}

func TestRun_LeftoverUncommittedPoemIsCommittedNextRun(t *testing.T) {
	h := newHarness(t, 2)
	h.git.TrackPending = true
	for i := 0; i < h.cfg.Git.Attempts*h.cfg.Slot.Attempts; i++ {
		h.git.Errs = append(h.git.Errs, errors.New("network"))
	}

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Slots, 2)
	assert.Equal(t, StateSkippedAfterRetries, rep.Slots[0].State)
	assert.Equal(t, StateCommitted, rep.Slots[1].State)
	require.Len(t, h.git.Commits, 1)
	assert.Equal(t, "Add poem 02/02: Poem 2", h.git.Commits[0].Message)

	rep, err = h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Slots, 1)
	s := rep.Slots[0]
	assert.Equal(t, 1, s.Index)
	assert.True(t, s.Reused)
	assert.Equal(t, StateCommitted, s.State)
	assert.Equal(t, []int{1, 2}, h.drafter.Calls, "leftover poem is not regenerated")
	require.Len(t, h.git.Commits, 2)
	assert.Equal(t, "Add poem 01/02: Poem 1", h.git.Commits[1].Message)
}

func TestRun_ExistingIndexIsReusedWithoutGeneration(t *testing.T) {
	h := newHarness(t, 4)
	h.seed(t, 1, 3) // existing=2, so the run starts at slot 3

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, rep.Slots, 2)
	assert.True(t, rep.Slots[0].Reused)
	assert.Equal(t, "Seed 3", rep.Slots[0].Title)
	assert.Equal(t, StateCommitted, rep.Slots[0].State)
	assert.Equal(t, []int{4}, h.drafter.Calls)
	assert.Equal(t, "Add poem 03/04: Seed 3", h.git.Commits[0].Message)
}

func TestRun_GatedBeforeStartHour(t *testing.T) {
	h := newHarness(t, 2)
	h.clock.T = time.Date(2024, time.June, 15, 6, 30, 0, 0, time.UTC)

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, rep.Gated)
	assert.Empty(t, h.drafter.Calls)

	rep, err = h.driver().Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.False(t, rep.Gated)
	assert.Equal(t, 2, rep.Committed())
}

func TestRun_UsesScheduleCount(t *testing.T) {
	h := newHarness(t, 0)
	store := schedule.NewStore(filepath.Join(t.TempDir(), schedule.DefaultFile), nil)
	require.NoError(t, store.Save(pattern.Schedule{"2024-06-15": 3, "2024-06-16": 17}))
	h.counts = store

	rep, err := h.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Required)
	assert.Equal(t, 3, rep.Committed())

	// Unscheduled dates fall back to the default.
	h2 := newHarness(t, 0)
	h2.counts = store
	h2.clock.T = time.Date(2030, time.January, 2, 12, 0, 0, 0, time.UTC)
	rep, err = h2.driver().Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, h2.cfg.DefaultCount, rep.Required)
}

func TestRun_CountOverride(t *testing.T) {
	h := newHarness(t, 8)

	rep, err := h.driver().Run(context.Background(), Options{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Required)
	assert.Equal(t, []int{1, 2}, h.drafter.Calls)
}

func TestRun_CancelledStopsBetweenSlots(t *testing.T) {
	h := newHarness(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	d := New(h.cfg, Deps{
		Counts:  h.counts,
		Library: h.lib,
		Drafter: h.rec,
		Git:     h.rec,
		Clock:   h.clock,
		OnSlot:  func(SlotResult) { cancel() },
	})

	rep, err := d.Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rep.Slots, 1)
}
