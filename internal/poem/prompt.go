package poem

import (
	"fmt"
	"math/rand"
	"strings"
)

// Themes are the labels a prompt draws from.
var Themes = []string{
	"nature and wilderness",
	"human emotions and relationships",
	"life's journey and personal growth",
	"seasons and time",
	"love and connection",
	"hope and inspiration",
	"dreams and aspirations",
	"technology and future",
	"urban life and society",
	"philosophical questions",
}

// ThemesPerPoem is how many labels each prompt carries.
const ThemesPerPoem = 2

// PickThemes draws n distinct themes.
func PickThemes(rng *rand.Rand, n int) []string {
	if n > len(Themes) {
		n = len(Themes)
	}
	idx := rng.Perm(len(Themes))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = Themes[j]
	}
	return out
}

// PromptInput is everything a poem prompt depends on.
type PromptInput struct {
	Number int
	Total  int
	Themes []string
	Prior  []string
	Limits Limits
}

// SystemPrompt frames every request.
const SystemPrompt = "You are a poet. Only output the title and poem, no additional text or formatting."

// BuildPrompt renders the user prompt for one poem.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Context: ")
	if len(in.Prior) == 0 {
		b.WriteString("This is the first poem of the day.\n")
	} else {
		b.WriteString("Previously generated poems today:\n\n")
		for i, p := range in.Prior {
			fmt.Fprintf(&b, "Poem %d:\n%s\n\n", i+1, p)
		}
	}

	minLines, maxLines := in.Limits.MinLines, in.Limits.MaxLines
	if minLines < 4 && maxLines >= 4 {
		minLines = 4
	}

	fmt.Fprintf(&b, "\nTask: Write poem #%d out of %d for today, following these guidelines:\n", in.Number, in.Total)
	fmt.Fprintf(&b, "- Length: %d-%d lines\n", minLines, maxLines)
	fmt.Fprintf(&b, "- Must use the themes: %s\n", strings.Join(in.Themes, ", "))
	b.WriteString("- Must be completely different in style from any previous poems\n")
	b.WriteString("- Use vivid imagery and metaphors\n")
	b.WriteString("- Can be in any poetry style (free verse, haiku, etc.)\n")
	b.WriteString("- Must be original and not repeat concepts from previous poems\n")
	b.WriteString("- Format the output exactly like this:\n")
	b.WriteString("  Title: [Your Title Here]\n\n")
	b.WriteString("  [Poem lines here]\n")
	b.WriteString("  [More poem lines]\n")
	b.WriteString("  [...]\n\n")
	fmt.Fprintf(&b, "Remember: This is poem #%d out of %d, so make it unique.\n", in.Number, in.Total)
	return b.String()
}
