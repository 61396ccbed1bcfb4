package timer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/viant/parsly"
)

// Repeatable is a parsed repeating interval
type Repeatable struct {
	// Triple is true for "R[n]/..." expressions
	Triple      bool
	RepeatLimit int
	Delay       time.Duration
	Period      time.Duration
}

// ParseDuration parses an ISO-8601 duration (P1DT2H), a time string
// (1d2h30m15s250ms) or plain milliseconds. Calendar units are resolved relative to now.
func ParseDuration(expression string, now time.Time) (time.Duration, error) {
	text := strings.TrimSpace(expression)
	if text == "" {
		return 0, invalid(expression, "empty duration")
	}
	cursor := parsly.NewCursor("", []byte(text), 0)
	if matched := cursor.MatchOne(periodToken); matched.Code == periodToken.Code {
		return parseISODuration(cursor, expression, now)
	}
	return parseTimeString(cursor, expression)
}

// ParseTimeString parses a time string or plain milliseconds
func ParseTimeString(expression string) (time.Duration, error) {
	text := strings.TrimSpace(expression)
	if text == "" {
		return 0, invalid(expression, "empty time string")
	}
	return parseTimeString(parsly.NewCursor("", []byte(text), 0), expression)
}

func parseISODuration(cursor *parsly.Cursor, expression string, now time.Time) (time.Duration, error) {
	var years, months, days int
	var clock time.Duration
	inTime := false
	components := 0
	for cursor.Pos < cursor.InputSize {
		if matched := cursor.MatchOne(timeToken); matched.Code == timeToken.Code {
			if inTime {
				return 0, invalid(expression, "duplicate time designator")
			}
			inTime = true
			continue
		}
		matched := cursor.MatchOne(numberToken)
		if matched.Code != numberToken.Code {
			return 0, invalid(expression, cursor.NewError(numberToken).Error())
		}
		number := strings.ReplaceAll(matched.Text(cursor), ",", ".")
		matched = cursor.MatchOne(isoUnitToken)
		if matched.Code != isoUnitToken.Code {
			return 0, invalid(expression, cursor.NewError(isoUnitToken).Error())
		}
		unit := matched.Text(cursor)[0]
		components++
		if inTime {
			value, err := strconv.ParseFloat(number, 64)
			if err != nil {
				return 0, invalid(expression, err.Error())
			}
			var scale time.Duration
			switch unit {
			case 'H':
				scale = time.Hour
			case 'M':
				scale = time.Minute
			case 'S':
				scale = time.Second
			default:
				return 0, invalid(expression, fmt.Sprintf("unit %c is not a time unit", unit))
			}
			part, ok := scaleFloat(value, scale)
			if !ok {
				return 0, invalid(expression, "duration overflow")
			}
			if clock, ok = addDuration(clock, part); !ok {
				return 0, invalid(expression, "duration overflow")
			}
			continue
		}
		value, err := strconv.Atoi(number)
		if err != nil {
			return 0, invalid(expression, "invalid date component")
		}
		if value > maxDateComponent {
			return 0, invalid(expression, "duration overflow")
		}
		switch unit {
		case 'Y':
			years += value
		case 'M':
			months += value
		case 'W':
			days += 7 * value
		case 'D':
			days += value
		default:
			return 0, invalid(expression, fmt.Sprintf("unit %c is not a date unit", unit))
		}
	}
	if components == 0 {
		return 0, invalid(expression, "duration has no components")
	}
	target := now.AddDate(years, months, days)
	if target.Before(now) {
		return 0, invalid(expression, "duration overflow")
	}
	calendar := target.Sub(now)
	if calendar == maxDuration {
		return 0, invalid(expression, "duration overflow")
	}
	result, ok := addDuration(calendar, clock)
	if !ok {
		return 0, invalid(expression, "duration overflow")
	}
	return result, nil
}

const (
	maxDuration = time.Duration(math.MaxInt64)
	// date components beyond this span exceed any representable duration
	maxDateComponent = 1 << 20
)

func scaleFloat(value float64, unit time.Duration) (time.Duration, bool) {
	product := value * float64(unit)
	if math.IsNaN(product) || product < 0 || product >= float64(maxDuration) {
		return 0, false
	}
	return time.Duration(product), true
}

func scaleInt(value int64, unit time.Duration) (time.Duration, bool) {
	if value < 0 || value > int64(maxDuration/unit) {
		return 0, false
	}
	return time.Duration(value) * unit, true
}

func addDuration(a, b time.Duration) (time.Duration, bool) {
	if b > 0 && a > maxDuration-b {
		return 0, false
	}
	return a + b, true
}

var legacyUnits = map[string]struct {
	rank int
	unit time.Duration
}{
	"d":  {0, 24 * time.Hour},
	"h":  {1, time.Hour},
	"m":  {2, time.Minute},
	"s":  {3, time.Second},
	"ms": {4, time.Millisecond},
}

func parseTimeString(cursor *parsly.Cursor, expression string) (time.Duration, error) {
	var result time.Duration
	rank := -1
	for {
		cursor.MatchOne(whitespaceToken)
		if cursor.Pos >= cursor.InputSize {
			break
		}
		matched := cursor.MatchOne(numberToken)
		if matched.Code != numberToken.Code {
			return 0, invalid(expression, cursor.NewError(numberToken).Error())
		}
		value, err := strconv.ParseInt(matched.Text(cursor), 10, 64)
		if err != nil {
			return 0, invalid(expression, err.Error())
		}
		matched = cursor.MatchOne(legacyUnitToken)
		name := "ms"
		if matched.Code == legacyUnitToken.Code {
			name = strings.ToLower(matched.Text(cursor))
		} else if cursor.Pos < cursor.InputSize {
			return 0, invalid(expression, cursor.NewError(legacyUnitToken).Error())
		}
		unit := legacyUnits[name]
		if unit.rank <= rank {
			return 0, invalid(expression, "units out of order")
		}
		rank = unit.rank
		part, ok := scaleInt(value, unit.unit)
		if !ok {
			return 0, invalid(expression, "duration overflow")
		}
		if result, ok = addDuration(result, part); !ok {
			return 0, invalid(expression, "duration overflow")
		}
	}
	if rank == -1 {
		return 0, invalid(expression, "empty time string")
	}
	return result, nil
}

// ParseDate parses an RFC3339 date-time; a value without zone is taken as UTC
func ParseDate(expression string) (time.Time, error) {
	text := strings.TrimSpace(expression)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, invalid(expression, "unsupported date format")
}

// ParseRepeatable parses "R[n]/<duration>", "R[n]/<start>/<duration>",
// "R[n]/<duration>/<end>", or a single duration or date taken as the delay.
func ParseRepeatable(expression string, now time.Time) (*Repeatable, error) {
	text := strings.TrimSpace(expression)
	cursor := parsly.NewCursor("", []byte(text), 0)
	if matched := cursor.MatchOne(repeatToken); matched.Code != repeatToken.Code {
		delay, err := ParseDuration(text, now)
		if err != nil {
			date, dateErr := ParseDate(text)
			if dateErr != nil {
				return nil, err
			}
			delay = date.Sub(now)
		}
		return &Repeatable{Delay: clamp(delay)}, nil
	}
	result := &Repeatable{Triple: true, RepeatLimit: Infinite}
	if matched := cursor.MatchOne(numberToken); matched.Code == numberToken.Code {
		limit, err := strconv.Atoi(matched.Text(cursor))
		if err != nil {
			return nil, invalid(expression, "repeat count")
		}
		result.RepeatLimit = limit
	}
	var segments []string
	for cursor.Pos < cursor.InputSize {
		if matched := cursor.MatchOne(slashToken); matched.Code != slashToken.Code {
			return nil, invalid(expression, cursor.NewError(slashToken).Error())
		}
		matched := cursor.MatchOne(segmentToken)
		if matched.Code != segmentToken.Code {
			return nil, invalid(expression, cursor.NewError(segmentToken).Error())
		}
		segments = append(segments, matched.Text(cursor))
	}
	switch len(segments) {
	case 1:
		period, err := ParseDuration(segments[0], now)
		if err != nil {
			return nil, err
		}
		result.Delay, result.Period = period, period
	case 2:
		if strings.HasPrefix(segments[0], "P") {
			period, err := ParseDuration(segments[0], now)
			if err != nil {
				return nil, err
			}
			end, err := ParseDate(segments[1])
			if err != nil {
				return nil, err
			}
			result.Delay, result.Period = end.Add(-period).Sub(now), period
		} else {
			start, err := ParseDate(segments[0])
			if err != nil {
				return nil, err
			}
			period, err := ParseDuration(segments[1], now)
			if err != nil {
				return nil, err
			}
			result.Delay, result.Period = start.Sub(now), period
		}
	default:
		return nil, invalid(expression, "repeating interval needs one or two segments")
	}
	result.Delay = clamp(result.Delay)
	if result.Period <= 0 {
		return nil, invalid(expression, "period must be positive")
	}
	return result, nil
}

func invalid(expression, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidTimerExpression, expression, reason)
}
