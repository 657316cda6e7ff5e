package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/versegrid/versegrid/internal/pattern"
)

// dateValue is a YYYY-MM-DD flag. The zero value means "not given".
type dateValue struct {
	t time.Time
}

var _ pflag.Value = (*dateValue)(nil)

func (d *dateValue) String() string {
	if d.t.IsZero() {
		return ""
	}
	return pattern.DateKey(d.t)
}

func (d *dateValue) Set(s string) error {
	t, err := time.ParseInLocation(pattern.DateLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("want a date like 2024-06-15: %w", err)
	}
	d.t = t
	return nil
}

func (d *dateValue) Type() string { return "date" }

// or returns the flag's date, or fallback when the flag was not given.
func (d *dateValue) or(fallback time.Time) time.Time {
	if d.t.IsZero() {
		return fallback
	}
	return d.t
}
