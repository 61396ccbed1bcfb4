package timer

import (
	"fmt"
	"time"

	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/model"
)

// Calendar maps a duration expression to the wall-clock duration spanning that much business time
type Calendar interface {
	BusinessDuration(expression string, from time.Time) (time.Duration, error)
}

// Calculator computes expiration times of declared timers
type Calculator struct {
	calendar Calendar
	now      func() time.Time
}

// Compute returns the expiration time of timer
func (c *Calculator) Compute(timer *model.Timer) (*ExpirationTime, error) {
	if timer == nil {
		return nil, fmt.Errorf("%w: nil timer", ErrInvalidTimerExpression)
	}
	now := c.now()
	if c.calendar != nil {
		return c.computeBusiness(timer, now)
	}
	switch timer.Kind {
	case model.TimeCycle:
		repeatable, err := ParseRepeatable(timer.Delay, now)
		if err != nil {
			return nil, err
		}
		if repeatable.Triple {
			return Repeat(repeatable.Delay, repeatable.Period, repeatable.RepeatLimit), nil
		}
		// a missing or malformed period reuses the delay
		period, err := ParseDuration(timer.Period, now)
		if err != nil {
			period = repeatable.Delay
		}
		if period <= 0 {
			return nil, invalid(timer.Delay, "cycle period must be positive")
		}
		return Repeat(repeatable.Delay, period, Infinite), nil
	case model.TimeDuration:
		delay, err := ParseDuration(timer.Delay, now)
		if err != nil {
			return nil, err
		}
		return After(delay), nil
	case model.TimeDate:
		date, err := ParseDate(timer.Date)
		if err != nil {
			return nil, err
		}
		return Exact(date), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimerKind, timer.Kind)
}

func (c *Calculator) computeBusiness(timer *model.Timer, now time.Time) (*ExpirationTime, error) {
	delay, err := c.calendar.BusinessDuration(timer.Delay, now)
	if err != nil {
		return nil, err
	}
	// without a period the business delay fires once
	if timer.Period == "" {
		return After(delay), nil
	}
	period, err := c.calendar.BusinessDuration(timer.Period, now)
	if err != nil {
		return nil, err
	}
	return Repeat(delay, period, Infinite), nil
}

// NewCalculator creates a calculator; calendar is optional
func NewCalculator(calendar Calendar, options ...Option) *Calculator {
	ret := &Calculator{calendar: calendar, now: clock.Now}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Option configures a Calculator
type Option func(c *Calculator)

// WithNow sets the time source
func WithNow(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}
