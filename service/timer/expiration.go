package timer

import (
	"fmt"
	"time"
)

// Infinite is the repeat limit of a timer that repeats forever
const Infinite = -1

// ExpirationTime is a computed firing schedule: either an exact instant or a
// delay optionally followed by a period.
type ExpirationTime struct {
	Exact *time.Time `json:"exact,omitempty"`

	Delay time.Duration `json:"delay,omitempty"`

	// Period is zero for one-shot expirations
	Period time.Duration `json:"period,omitempty"`

	// RepeatLimit is the number of firings of a repeating expiration, Infinite for no limit
	RepeatLimit int `json:"repeatLimit"`
}

// After returns a one-shot expiration
func After(delay time.Duration) *ExpirationTime {
	return &ExpirationTime{Delay: clamp(delay)}
}

// Repeat returns an expiration repeating every period, limit times (Infinite for no limit)
func Repeat(delay, period time.Duration, limit int) *ExpirationTime {
	return &ExpirationTime{Delay: clamp(delay), Period: period, RepeatLimit: limit}
}

// Exact returns an expiration firing at instant
func Exact(instant time.Time) *ExpirationTime {
	return &ExpirationTime{Exact: &instant}
}

// IsRepeating returns true when the expiration has a period
func (e *ExpirationTime) IsRepeating() bool {
	return e.Exact == nil && e.Period > 0
}

// Next returns the firing time following fired previous firings, measured from scheduledAt
func (e *ExpirationTime) Next(scheduledAt time.Time, fired int) (time.Time, bool) {
	if e.Exact != nil {
		return *e.Exact, fired == 0
	}
	if !e.IsRepeating() {
		return scheduledAt.Add(e.Delay), fired == 0
	}
	if e.RepeatLimit != Infinite && fired >= e.RepeatLimit {
		return time.Time{}, false
	}
	return scheduledAt.Add(e.Delay + time.Duration(fired)*e.Period), true
}

// Validate checks the expiration invariants
func (e *ExpirationTime) Validate() error {
	if e.Exact != nil {
		return nil
	}
	if e.Delay < 0 {
		return fmt.Errorf("%w: negative delay %v", ErrInvalidTimerExpression, e.Delay)
	}
	if e.Period < 0 {
		return fmt.Errorf("%w: negative period %v", ErrInvalidTimerExpression, e.Period)
	}
	if e.RepeatLimit < Infinite {
		return fmt.Errorf("%w: repeat limit %d", ErrInvalidTimerExpression, e.RepeatLimit)
	}
	return nil
}

func (e *ExpirationTime) String() string {
	if e.Exact != nil {
		return "at " + e.Exact.Format(time.RFC3339)
	}
	if !e.IsRepeating() {
		return "after " + e.Delay.String()
	}
	return fmt.Sprintf("after %v every %v (limit %d)", e.Delay, e.Period, e.RepeatLimit)
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
