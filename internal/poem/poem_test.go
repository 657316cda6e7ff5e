package poem

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	text := "Title: Harbor Lights\n\nThe tide folds its letters\ninto the dark\n\nand the gulls sign them."
	p, err := Parse(text, DefaultLimits())

	require.NoError(t, err)
	assert.Equal(t, "Harbor Lights", p.Title)
	assert.Equal(t, []string{"The tide folds its letters", "into the dark", "and the gulls sign them."}, p.Lines)
}

func TestParse_ToleratesMarkdownAndFences(t *testing.T) {
	text := "Here you go:\n```\n**Title:** Copper Wire\n\nhum of the city\n```"
	p, err := Parse(text, DefaultLimits())

	require.NoError(t, err)
	assert.Equal(t, "Copper Wire", p.Title)
	assert.Equal(t, []string{"hum of the city"}, p.Lines)
}

func TestParse_Rejects(t *testing.T) {
	nine := "Title: Long\n" + strings.Repeat("line\n", 9)
	tests := []struct {
		name string
		text string
	}{
		{"no title marker", "Harbor Lights\n\nline one"},
		{"empty title", "Title:   \n\nline one"},
		{"no lines", "Title: Alone\n\n\n"},
		{"too many lines", nine},
		{"placeholder title", "Title: [Your Title Here]\n\nline one"},
		{"placeholder line", "Title: Real\n\n[Poem lines here]\n[More poem lines]"},
		{"ellipsis placeholder", "Title: Real\n\nline one\n[...]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, DefaultLimits())
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestBuildPrompt_FirstPoem(t *testing.T) {
	p := BuildPrompt(PromptInput{Number: 1, Total: 8, Themes: []string{"seasons and time"}, Limits: DefaultLimits()})

	assert.Contains(t, p, "This is the first poem of the day.")
	assert.Contains(t, p, "poem #1 out of 8")
	assert.Contains(t, p, "Length: 4-8 lines")
	assert.Contains(t, p, "seasons and time")
	assert.Contains(t, p, "Title: [Your Title Here]")
}

func TestBuildPrompt_IncludesPriorPoems(t *testing.T) {
	p := BuildPrompt(PromptInput{Number: 3, Total: 17, Prior: []string{"first body", "second body"}, Limits: DefaultLimits()})

	assert.Contains(t, p, "Poem 1:\nfirst body")
	assert.Contains(t, p, "Poem 2:\nsecond body")
	assert.NotContains(t, p, "first poem of the day")
}

func TestPickThemes_Distinct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		got := PickThemes(rng, ThemesPerPoem)
		require.Len(t, got, ThemesPerPoem)
		assert.NotEqual(t, got[0], got[1])
		for _, th := range got {
			assert.Contains(t, Themes, th)
		}
	}
	assert.Len(t, PickThemes(rng, 50), len(Themes))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "harbor_lights", Slug("Harbor Lights!"))
	assert.Equal(t, "untitled", Slug("¿¡…"))
	assert.Equal(t, "a_b", Slug("  A -- b  "))
	assert.LessOrEqual(t, len(Slug(strings.Repeat("word ", 30))), maxSlugLen)
}
