package model

import (
	"fmt"
	"strings"
)

// TimerKind identifies how a timer expression is interpreted
type TimerKind int

const (
	// TimeDuration fires once after a duration
	TimeDuration TimerKind = 1
	// TimeCycle fires repeatedly
	TimeCycle TimerKind = 2
	// TimeDate fires once at an absolute instant
	TimeDate TimerKind = 3
)

// IsValid returns true for supported kinds
func (k TimerKind) IsValid() bool {
	return k == TimeDuration || k == TimeCycle || k == TimeDate
}

func (k TimerKind) String() string {
	switch k {
	case TimeDuration:
		return "duration"
	case TimeCycle:
		return "cycle"
	case TimeDate:
		return "date"
	}
	return fmt.Sprintf("TimerKind(%d)", int(k))
}

// ParseTimerKind converts a textual kind ("duration", "cycle", "date")
func ParseTimerKind(text string) (TimerKind, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "duration", "timeduration", "time_duration":
		return TimeDuration, nil
	case "cycle", "timecycle", "time_cycle":
		return TimeCycle, nil
	case "date", "timedate", "time_date":
		return TimeDate, nil
	}
	return 0, fmt.Errorf("unsupported timer kind: %q", text)
}

// Timer is a declared timer
type Timer struct {
	Kind   TimerKind `json:"kind" yaml:"kind"`
	Delay  string    `json:"delay,omitempty" yaml:"delay,omitempty"`
	Period string    `json:"period,omitempty" yaml:"period,omitempty"`
	Date   string    `json:"date,omitempty" yaml:"date,omitempty"`
}

// NewDurationTimer creates a one-shot timer
func NewDurationTimer(delay string) *Timer {
	return &Timer{Kind: TimeDuration, Delay: delay}
}

// NewCycleTimer creates a repeating timer
func NewCycleTimer(delay, period string) *Timer {
	return &Timer{Kind: TimeCycle, Delay: delay, Period: period}
}

// NewDateTimer creates an absolute timer
func NewDateTimer(date string) *Timer {
	return &Timer{Kind: TimeDate, Date: date}
}
