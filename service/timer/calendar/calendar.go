package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/procflow/service/timer"
	"go.uber.org/multierr"
)

// maxScanDays bounds the search for working time
const maxScanDays = 3660

// ErrNoBusinessTime is returned when no working time exists within the scan horizon
var ErrNoBusinessTime = errors.New("calendar: no business time available")

// Config defines working hours, days and holidays
type Config struct {
	StartHour   int      `json:"startHour" yaml:"startHour"`
	EndHour     int      `json:"endHour" yaml:"endHour"`
	WorkingDays []string `json:"workingDays,omitempty" yaml:"workingDays,omitempty"`
	Holidays    []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	Timezone    string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Calendar is a working hours business calendar
type Calendar struct {
	startHour int
	endHour   int
	days      map[time.Weekday]bool
	holidays  map[string]bool
	location  *time.Location
}

var _ timer.Calendar = (*Calendar)(nil)

// BusinessDuration returns the wall-clock duration from from that spans expression of business time
func (c *Calendar) BusinessDuration(expression string, from time.Time) (time.Duration, error) {
	d, err := timer.ParseDuration(expression, from)
	if err != nil {
		return 0, err
	}
	end, err := c.Add(from, d)
	if err != nil {
		return 0, err
	}
	return end.Sub(from), nil
}

// Add returns the instant reached after d of business time starting at from
func (c *Calendar) Add(from time.Time, d time.Duration) (time.Time, error) {
	current := from.In(c.location)
	remaining := d
	for day := 0; day < maxScanDays; day++ {
		dayEnd := c.at(current, c.endHour)
		if !c.IsWorkingDay(current) || !current.Before(dayEnd) {
			current = c.at(current, 0).AddDate(0, 0, 1)
			continue
		}
		if dayStart := c.at(current, c.startHour); current.Before(dayStart) {
			current = dayStart
		}
		available := dayEnd.Sub(current)
		if remaining <= available {
			return current.Add(remaining), nil
		}
		remaining -= available
		current = c.at(current, 0).AddDate(0, 0, 1)
	}
	return time.Time{}, ErrNoBusinessTime
}

// IsWorkingDay returns true when t falls on a working, non-holiday day
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	t = t.In(c.location)
	return c.days[t.Weekday()] && !c.holidays[t.Format("2006-01-02")]
}

func (c *Calendar) at(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, c.location)
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// Validate checks the configuration
func (c *Config) Validate() error {
	var err error
	if c.StartHour < 0 || c.StartHour > 23 {
		err = multierr.Append(err, fmt.Errorf("calendar: invalid startHour %d", c.StartHour))
	}
	if c.EndHour < 1 || c.EndHour > 24 || c.EndHour <= c.StartHour {
		err = multierr.Append(err, fmt.Errorf("calendar: invalid endHour %d", c.EndHour))
	}
	for _, day := range c.WorkingDays {
		if _, ok := weekdays[dayKey(day)]; !ok {
			err = multierr.Append(err, fmt.Errorf("calendar: invalid working day %q", day))
		}
	}
	for _, holiday := range c.Holidays {
		if _, parseErr := time.Parse("2006-01-02", holiday); parseErr != nil {
			err = multierr.Append(err, fmt.Errorf("calendar: invalid holiday %q", holiday))
		}
	}
	if c.Timezone != "" {
		if _, locErr := time.LoadLocation(c.Timezone); locErr != nil {
			err = multierr.Append(err, fmt.Errorf("calendar: invalid timezone %q: %w", c.Timezone, locErr))
		}
	}
	return err
}

func dayKey(day string) string {
	day = strings.ToLower(strings.TrimSpace(day))
	if len(day) > 3 {
		day = day[:3]
	}
	return day
}

// New creates a calendar; empty working days default to Monday through Friday
func New(config *Config) (*Calendar, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ret := &Calendar{
		startHour: config.StartHour,
		endHour:   config.EndHour,
		days:      map[time.Weekday]bool{},
		holidays:  map[string]bool{},
		location:  time.UTC,
	}
	if config.Timezone != "" {
		ret.location, _ = time.LoadLocation(config.Timezone)
	}
	workingDays := config.WorkingDays
	if len(workingDays) == 0 {
		workingDays = []string{"mon", "tue", "wed", "thu", "fri"}
	}
	for _, day := range workingDays {
		ret.days[weekdays[dayKey(day)]] = true
	}
	for _, holiday := range config.Holidays {
		ret.holidays[holiday] = true
	}
	return ret, nil
}
