package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_BusinessDuration(t *testing.T) {
	cal, err := New(&Config{StartHour: 9, EndHour: 17, Holidays: []string{"2025-03-12"}})
	require.NoError(t, err)
	// Monday
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		description string
		from        time.Time
		expression  string
		expect      time.Duration
	}{
		{description: "within the day", from: monday, expression: "2h", expect: 2 * time.Hour},
		{description: "spills to next day", from: monday.Add(7 * time.Hour), expression: "PT2H", expect: 18 * time.Hour},
		{description: "before opening", from: monday.Add(-3 * time.Hour), expression: "1h", expect: 4 * time.Hour},
		{description: "skips holiday", from: monday.Add(24*time.Hour + 7*time.Hour), expression: "2h", expect: 42 * time.Hour},
		{description: "skips weekend", from: time.Date(2025, 3, 14, 16, 0, 0, 0, time.UTC), expression: "2h", expect: 66 * time.Hour},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual, err := cal.BusinessDuration(testCase.expression, testCase.from)
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, actual)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		config      *Config
		expectErr   bool
	}{
		{description: "valid", config: &Config{StartHour: 8, EndHour: 16, WorkingDays: []string{"Monday", "tue"}}},
		{description: "end before start", config: &Config{StartHour: 10, EndHour: 9}, expectErr: true},
		{description: "bad day", config: &Config{StartHour: 8, EndHour: 16, WorkingDays: []string{"funday"}}, expectErr: true},
		{description: "bad holiday", config: &Config{StartHour: 8, EndHour: 16, Holidays: []string{"12/25"}}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			err := testCase.config.Validate()
			assert.Equal(t, testCase.expectErr, err != nil, err)
		})
	}
}

func TestCalendar_NoWorkingTime(t *testing.T) {
	cal, err := New(&Config{StartHour: 9, EndHour: 17, WorkingDays: []string{"sat"}})
	require.NoError(t, err)
	_, err = cal.Add(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), 5000*time.Hour)
	assert.ErrorIs(t, err, ErrNoBusinessTime)
}
