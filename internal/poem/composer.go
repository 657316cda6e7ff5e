package poem

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/versegrid/versegrid/internal/llm"
)

// Raw is an unvalidated generator answer and the themes it was asked for.
type Raw struct {
	Number int
	Text   string
	Themes []string
	Model  string
}

// Draft is a validated poem together with the themes it was asked for.
type Draft struct {
	Poem   Poem
	Themes []string
	Model  string
}

// Composer asks the generator for one poem and validates the answer.
type Composer struct {
	client llm.Client
	limits Limits
	rng    *rand.Rand
}

// NewComposer returns a Composer. rng drives theme selection.
func NewComposer(client llm.Client, limits Limits, rng *rand.Rand) *Composer {
	return &Composer{client: client, limits: limits, rng: rng}
}

// Draft makes one generation call for poem number of total, with prior as
// context.
func (c *Composer) Draft(ctx context.Context, number, total int, prior []string) (Raw, error) {
	themes := PickThemes(c.rng, ThemesPerPoem)
	prompt := BuildPrompt(PromptInput{
		Number: number,
		Total:  total,
		Themes: themes,
		Prior:  prior,
		Limits: c.limits,
	})

	resp, err := c.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskPoem,
		SystemPrompt: SystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return Raw{}, fmt.Errorf("generating poem %d: %w", number, err)
	}
	return Raw{Number: number, Text: resp.Text, Themes: themes, Model: resp.Model}, nil
}

// Validate parses a raw answer. Failures wrap ErrMalformed.
func (c *Composer) Validate(r Raw) (Draft, error) {
	p, err := Parse(r.Text, c.limits)
	if err != nil {
		return Draft{}, fmt.Errorf("validating poem %d: %w", r.Number, err)
	}
	return Draft{Poem: p, Themes: r.Themes, Model: r.Model}, nil
}

// Compose is Draft followed by Validate.
func (c *Composer) Compose(ctx context.Context, number, total int, prior []string) (Draft, error) {
	r, err := c.Draft(ctx, number, total, prior)
	if err != nil {
		return Draft{}, err
	}
	return c.Validate(r)
}
