// Package config loads versegrid.yaml and VERSEGRID_* overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/versegrid/versegrid/internal/driver"
	"github.com/versegrid/versegrid/internal/gitrepo"
	"github.com/versegrid/versegrid/internal/llm"
	"github.com/versegrid/versegrid/internal/pattern"
	"github.com/versegrid/versegrid/internal/poem"
	"github.com/versegrid/versegrid/internal/schedule"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "versegrid.yaml"

// Creator identifies who the poems are attributed to.
type Creator struct {
	// Tag is embedded in every artifact file name.
	Tag  string `yaml:"tag"`
	Name string `yaml:"name"`
}

// Pattern describes the banner drawn into the contribution calendar. Glyph
// rows use '1' for filled cells.
type Pattern struct {
	Glyphs   map[string][]string `yaml:"glyphs,omitempty"`
	Sequence pattern.Sequence    `yaml:"sequence,omitempty"`
	Levels   pattern.Levels      `yaml:"levels"`
}

// Logging controls where logs go besides stderr.
type Logging struct {
	File string `yaml:"file"`
}

// Config is the whole of versegrid.yaml.
type Config struct {
	// Repo is the git working tree that receives poems.
	Repo string `yaml:"repo"`
	// Schedule is the commit schedule path, relative to Repo unless absolute.
	Schedule string         `yaml:"schedule"`
	Creator  Creator        `yaml:"creator"`
	Poem     poem.Limits    `yaml:"poem"`
	Driver   driver.Config  `yaml:"driver"`
	Git      gitrepo.Config `yaml:"git"`
	LLM      llm.Config     `yaml:"llm"`
	Pattern  Pattern        `yaml:"pattern"`
	Logging  Logging        `yaml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Repo:     ".",
		Schedule: schedule.DefaultFile,
		Creator:  Creator{Tag: "RB", Name: "RB Poem Agent"},
		Poem:     poem.DefaultLimits(),
		Driver:   driver.DefaultConfig(),
		Git:      gitrepo.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		Pattern:  Pattern{Levels: pattern.DefaultLevels()},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path means DefaultFile, which may be absent; an explicit path must
// exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.LLM.Provider == llm.DefaultConfig().Provider {
		return nil
	}
	// A different provider must not inherit the default provider's endpoint
	// and model.
	var named struct {
		LLM struct {
			Endpoint string `yaml:"endpoint"`
			Model    string `yaml:"model"`
		} `yaml:"llm"`
	}
	if err := yaml.Unmarshal(data, &named); err != nil {
		return err
	}
	cfg.LLM.Endpoint, cfg.LLM.Model = named.LLM.Endpoint, named.LLM.Model
	cfg.LLM = cfg.LLM.WithProviderDefaults()
	return nil
}

// ApplyEnv overlays VERSEGRID_* environment variables. Unparseable values are
// ignored.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("VERSEGRID_REPO"); v != "" {
		c.Repo = v
	}
	if v := os.Getenv("VERSEGRID_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("VERSEGRID_CREATOR_TAG"); v != "" {
		c.Creator.Tag = v
	}
	if v := os.Getenv("VERSEGRID_DEFAULT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Driver.DefaultCount = n
		}
	}
	if v := os.Getenv("VERSEGRID_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Driver.Budget = d
		}
	}
	if v := os.Getenv("VERSEGRID_GIT_PUSH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Git.Push = b
		}
	}
	if v := os.Getenv("VERSEGRID_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	c.LLM = c.LLM.ApplyEnv()
	return c
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Repo) == "" {
		errs = append(errs, errors.New("repo is required"))
	}
	if strings.TrimSpace(c.Schedule) == "" {
		errs = append(errs, errors.New("schedule is required"))
	}
	if c.Creator.Tag == "" {
		errs = append(errs, errors.New("creator.tag is required"))
	}
	if c.Poem.MinLines < 1 || c.Poem.MaxLines < c.Poem.MinLines {
		errs = append(errs, fmt.Errorf("poem line limits %d-%d are invalid", c.Poem.MinLines, c.Poem.MaxLines))
	}
	if c.Driver.DefaultCount < 1 {
		errs = append(errs, fmt.Errorf("driver.default_count must be positive, got %d", c.Driver.DefaultCount))
	}
	if c.Driver.Budget < 0 {
		errs = append(errs, fmt.Errorf("driver.budget must not be negative, got %s", c.Driver.Budget))
	}
	if c.Driver.NotBeforeHour < 0 || c.Driver.NotBeforeHour > 23 {
		errs = append(errs, fmt.Errorf("driver.not_before_hour must be 0-23, got %d", c.Driver.NotBeforeHour))
	}
	switch c.LLM.Provider {
	case llm.ProviderCohere, llm.ProviderOllama, llm.ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: %w", c.LLM.Provider, llm.ErrUnknownProvider))
	}
	if err := c.Pattern.Levels.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pattern.levels: %w", err))
	}
	if _, err := c.Pattern.Table(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SchedulePath resolves Schedule against Repo.
func (c Config) SchedulePath() string {
	if filepath.IsAbs(c.Schedule) {
		return c.Schedule
	}
	return filepath.Join(c.Repo, c.Schedule)
}

// Table returns the configured glyphs, or the built-in banner's when none are
// configured.
func (p Pattern) Table() (pattern.Table, error) {
	if len(p.Glyphs) == 0 {
		return pattern.DefaultTable(), nil
	}
	labels := make([]string, 0, len(p.Glyphs))
	for l := range p.Glyphs {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	t := make(pattern.Table, len(labels))
	for _, l := range labels {
		g, err := pattern.NewGlyph(l, p.Glyphs[l])
		if err != nil {
			return nil, fmt.Errorf("pattern.glyphs: %w", err)
		}
		t[l] = g
	}
	return t, nil
}

// Banner returns the configured placements, or the built-in banner's.
func (p Pattern) Banner() pattern.Sequence {
	if len(p.Sequence) == 0 {
		return pattern.DefaultSequence()
	}
	return p.Sequence
}

// Encoder builds a pattern encoder from the configuration.
func (p Pattern) Encoder() (*pattern.Encoder, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	return pattern.NewEncoder(t, p.Banner(), p.Levels), nil
}
