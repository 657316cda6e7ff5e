package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/versegrid/versegrid/internal/pattern"
)

// DefaultFile is the schedule file name inside the repository root.
const DefaultFile = "commit_pattern.json"

// Format is the on-disk encoding of a schedule file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Store reads and writes one schedule file.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore returns a Store for the file at path.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// Path returns the file the store operates on.
func (s *Store) Path() string {
	return s.path
}

// ErrNonPositive is returned by Save for a day whose count is not positive.
var ErrNonPositive = errors.New("schedule count must be positive")

// Save writes the whole schedule, replacing any previous file. The write goes
// through a temp file in the same directory and a rename, and the file ends
// up world-readable.
func (s *Store) Save(sched pattern.Schedule) error {
	for key, n := range sched {
		if n <= 0 {
			return fmt.Errorf("%w: %s has %d", ErrNonPositive, key, n)
		}
	}

	data, err := encode(FormatFor(s.path), sched)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating schedule directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".schedule-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting schedule mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing schedule: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing schedule: %w", err)
	}

	s.log.Info("schedule saved", zap.String("path", s.path), zap.Int("days", len(sched)))
	return nil
}

// Load reads the full schedule.
func (s *Store) Load() (pattern.Schedule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	sched, err := decode(FormatFor(s.path), data)
	if err != nil {
		return nil, fmt.Errorf("decoding schedule %s: %w", s.path, err)
	}
	return sched, nil
}

// LoadCount returns the count stored for date, or def when the file is
// missing, unreadable or malformed or the key is absent. Save never writes a
// non-positive count; one found in a hand-edited file also yields def. It
// never fails.
func (s *Store) LoadCount(date time.Time, def int) int {
	sched, err := s.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("schedule file not found, using default",
				zap.String("path", s.path), zap.Int("default", def))
		} else {
			s.log.Warn("schedule unreadable, using default",
				zap.String("path", s.path), zap.Int("default", def), zap.Error(err))
		}
		return def
	}
	n, ok := sched.Count(date)
	if !ok || n <= 0 {
		return def
	}
	return n
}

func encode(f Format, sched pattern.Schedule) ([]byte, error) {
	m := map[string]int(sched)
	if m == nil {
		m = map[string]int{}
	}
	if f == FormatYAML {
		return yaml.Marshal(m)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decode(f Format, data []byte) (pattern.Schedule, error) {
	m := map[string]int{}
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, err
	}
	return pattern.Schedule(m), nil
}
