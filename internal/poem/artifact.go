package poem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxIndex is the largest slot index that fits the two-digit file prefix.
const MaxIndex = 99

const maxSlugLen = 40

var (
	tagPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	slugStrip  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a title into a lower-case file name fragment.
func Slug(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "_")
	s = strings.Trim(s, "_")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "_")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// Meta is the provenance recorded in an artifact's footer.
type Meta struct {
	Index     int
	Themes    []string
	CreatedAt time.Time
	RunID     string
}

// Library lays poems out as <root>/<YYYY-MM-DD_Weekday>/NN_<tag>_<slug>.md.
type Library struct {
	root    string
	tag     string
	creator string
}

// NewLibrary returns a Library rooted at root. tag must be alphanumeric so it
// can sit inside a glob pattern.
func NewLibrary(root, tag, creator string) (*Library, error) {
	if !tagPattern.MatchString(tag) {
		return nil, fmt.Errorf("creator tag %q must be alphanumeric", tag)
	}
	return &Library{root: root, tag: tag, creator: creator}, nil
}

// Root returns the library's root directory.
func (l *Library) Root() string { return l.root }

// Day returns the folder for date's poems.
func (l *Library) Day(date time.Time) *Day {
	return &Day{lib: l, dir: filepath.Join(l.root, date.Format("2006-01-02_Monday"))}
}

// Day is one day's folder of poems.
type Day struct {
	lib *Library
	dir string
}

// Dir returns the folder path.
func (d *Day) Dir() string { return d.dir }

// Glob is the pattern every artifact in the folder matches.
func (d *Day) Glob() string {
	return filepath.Join(d.dir, "[0-9][0-9]_"+d.lib.tag+"_*.md")
}

// FileName returns the artifact name for index and title.
func (d *Day) FileName(index int, title string) string {
	return fmt.Sprintf("%02d_%s_%s.md", index, d.lib.tag, Slug(title))
}

func (d *Day) matches() ([]string, error) {
	m, err := filepath.Glob(d.Glob())
	if err != nil {
		return nil, fmt.Errorf("listing poems: %w", err)
	}
	sort.Strings(m)
	return m, nil
}

// Existing counts artifacts already present. A missing folder counts as zero.
func (d *Day) Existing() (int, error) {
	m, err := d.matches()
	if err != nil {
		return 0, err
	}
	return len(m), nil
}

// Find returns the artifact path for index, if one exists.
func (d *Day) Find(index int) (string, bool, error) {
	m, err := filepath.Glob(filepath.Join(d.dir, fmt.Sprintf("%02d_%s_*.md", index, d.lib.tag)))
	if err != nil {
		return "", false, fmt.Errorf("finding poem %d: %w", index, err)
	}
	if len(m) == 0 {
		return "", false, nil
	}
	sort.Strings(m)
	return m[0], true, nil
}

// Index returns the slot index encoded in an artifact path of this day.
func (d *Day) Index(path string) (int, bool) {
	if ok, _ := filepath.Match(d.Glob(), path); !ok {
		return 0, false
	}
	n, err := strconv.Atoi(filepath.Base(path)[:2])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Bodies returns the body text of every artifact in index order, for use as
// prompt context.
func (d *Day) Bodies() ([]string, error) {
	m, err := d.matches()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for _, path := range m {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		if body := extractBody(string(data)); body != "" {
			out = append(out, body)
		}
	}
	return out, nil
}

// Title reads the title back from an artifact file.
func Title(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, l := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(l, "# ") {
			return strings.TrimSpace(l[2:]), nil
		}
	}
	return "", fmt.Errorf("%s: no title heading", filepath.Base(path))
}

// Write stores p as the artifact for meta.Index. If one already exists for
// that index it is left untouched and its path is returned with created false.
func (d *Day) Write(p Poem, meta Meta) (string, bool, error) {
	if meta.Index < 1 || meta.Index > MaxIndex {
		return "", false, fmt.Errorf("poem index %d out of range 1-%d", meta.Index, MaxIndex)
	}
	if existing, ok, err := d.Find(meta.Index); err != nil {
		return "", false, err
	} else if ok {
		return existing, false, nil
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", false, fmt.Errorf("creating day folder: %w", err)
	}
	path := filepath.Join(d.dir, d.FileName(meta.Index, p.Title))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("creating poem file: %w", err)
	}
	if _, err := f.WriteString(d.lib.Render(p, meta)); err != nil {
		f.Close()
		return "", false, fmt.Errorf("writing poem file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("closing poem file: %w", err)
	}
	return path, true, nil
}

// Render formats an artifact as Markdown.
func (l *Library) Render(p Poem, meta Meta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	b.WriteString(p.Body())
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "**Creator**: %s | %s\n", l.creator, meta.CreatedAt.Format("2006-01-02 15:04"))
	if len(meta.Themes) > 0 {
		fmt.Fprintf(&b, "**Themes**: %s\n", strings.Join(meta.Themes, ", "))
	}
	if meta.RunID != "" {
		fmt.Fprintf(&b, "**Run**: %s\n", meta.RunID)
	}
	return b.String()
}

// extractBody returns the text between the title heading and the footer rule.
func extractBody(content string) string {
	lines := strings.Split(content, "\n")
	start := -1
	for i, l := range lines {
		if strings.HasPrefix(l, "# ") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}
	var body []string
	for _, l := range lines[start:] {
		if strings.TrimSpace(l) == "---" {
			break
		}
		body = append(body, l)
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
