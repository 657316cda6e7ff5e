package driver

import (
	"time"

	"go.uber.org/zap"
)

// SlotState is a step in one poem's lifecycle.
type SlotState string

const (
	StatePending             SlotState = "PENDING"
	StateGenerating          SlotState = "GENERATING"
	StateValidating          SlotState = "VALIDATING"
	StateWritten             SlotState = "WRITTEN"
	StateCommitted           SlotState = "COMMITTED"
	StateSkippedAfterRetries SlotState = "SKIPPED_AFTER_RETRIES"
)

// Terminal reports whether no further transition is possible.
func (s SlotState) Terminal() bool {
	return s == StateCommitted || s == StateSkippedAfterRetries
}

// SlotResult is the outcome of one slot.
type SlotResult struct {
	Index int
	// Total is the day's required count.
	Total int
	State SlotState
	Path  string
	Title string
	// Reused is set when the artifact already existed and generation was
	// skipped.
	Reused      bool
	Generations int
	Attempts    int
	Elapsed     time.Duration
	Err         error
	// Trail lists every state the slot passed through.
	Trail []SlotState
}

type slot struct {
	SlotResult
	log *zap.Logger
}

func newSlot(index, total int, log *zap.Logger) *slot {
	s := &slot{log: log.With(zap.Int("slot", index))}
	s.Index = index
	s.Total = total
	s.State = StatePending
	s.Trail = []SlotState{StatePending}
	return s
}

func (s *slot) to(next SlotState) {
	s.log.Debug("slot transition", zap.String("from", string(s.State)), zap.String("to", string(next)))
	s.State = next
	s.Trail = append(s.Trail, next)
}
