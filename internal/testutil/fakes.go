package testutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/versegrid/versegrid/internal/poem"
)

// Clock is a manual clock. Sleep advances it instead of blocking, and every
// Sleep duration is recorded.
type Clock struct {
	T      time.Time
	Slept  []time.Duration
	OnTick func(d time.Duration)
}

// NewClock starts a manual clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{T: t}
}

func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward without recording a sleep.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Slept = append(c.Slept, d)
	c.T = c.T.Add(d)
	if c.OnTick != nil {
		c.OnTick(d)
	}
	return nil
}

// Drafter scripts generator answers. Each call pops the next entry of
// Responses; an entry that is an error is returned as the call's failure.
// Once the script runs out, every call returns a valid poem.
type Drafter struct {
	Responses []any
	Calls     []int
	// Elapse advances Clock on every call, simulating generation latency.
	Clock  *Clock
	Elapse time.Duration
}

func (d *Drafter) Draft(ctx context.Context, number, total int, prior []string) (poem.Raw, error) {
	d.Calls = append(d.Calls, number)
	if d.Clock != nil {
		d.Clock.Advance(d.Elapse)
	}
	var next any = fmt.Sprintf("Title: Poem %d\n\nline one of %d\nline two", number, total)
	if len(d.Responses) > 0 {
		next, d.Responses = d.Responses[0], d.Responses[1:]
	}
	switch v := next.(type) {
	case error:
		return poem.Raw{}, v
	case string:
		return poem.Raw{Number: number, Text: v, Themes: []string{"seasons and time"}, Model: "fake"}, nil
	default:
		panic(fmt.Sprintf("testutil.Drafter: unsupported response %T", next))
	}
}

func (d *Drafter) Validate(r poem.Raw) (poem.Draft, error) {
	p, err := poem.Parse(r.Text, poem.DefaultLimits())
	if err != nil {
		return poem.Draft{}, err
	}
	return poem.Draft{Poem: p, Themes: r.Themes, Model: r.Model}, nil
}

// Commit is one recorded git commit.
type Commit struct {
	Path    string
	Message string
}

// Git records commits. Errs are returned, in order, by the first calls.
type Git struct {
	Errs    []error
	Commits []Commit
	Calls   int
	// TrackPending makes Pending report files on disk that were never
	// committed. Off, Pending reports nothing.
	TrackPending bool
}

func (g *Git) Commit(ctx context.Context, path, message string) error {
	g.Calls++
	if len(g.Errs) > 0 {
		err := g.Errs[0]
		g.Errs = g.Errs[1:]
		if err != nil {
			return err
		}
	}
	g.Commits = append(g.Commits, Commit{Path: path, Message: message})
	return nil
}

func (g *Git) Pending(ctx context.Context, dir string) ([]string, error) {
	if !g.TrackPending {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	for _, c := range g.Commits {
		done[c.Path] = true
	}
	var out []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() && !done[path] {
			out = append(out, path)
		}
	}
	return out, nil
}
