package procflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDecodeConfig(t *testing.T) {
	testCases := []struct {
		description string
		data        string
		expectErr   bool
		errCount    int
		verify      func(t *testing.T, config *Config)
	}{
		{
			description: "empty document keeps defaults",
			data:        ``,
			verify: func(t *testing.T, config *Config) {
				assert.EqualValues(t, DefaultConfig(), config)
			},
		},
		{
			description: "overrides",
			data: `
runtime:
  retainTerminated: true
jobs:
  workers: 2
  retryDelay: 250ms
metrics:
  enabled: true
calendar:
  startHour: 9
  endHour: 17
  workingDays: [mon, tue, wed, thu, fri]
`,
			verify: func(t *testing.T, config *Config) {
				assert.True(t, config.Runtime.RetainTerminated)
				assert.False(t, config.Runtime.Inactive)
				assert.Equal(t, 2, config.Jobs.Workers)
				assert.Equal(t, 100, config.Jobs.QueueBuffer)
				assert.Equal(t, 3, config.Jobs.MaxRetries)
				assert.Equal(t, 250*time.Millisecond, config.Jobs.RetryDelay)
				assert.True(t, config.Metrics.Enabled)
				assert.Equal(t, "procflow", config.Metrics.Namespace)
				require.NotNil(t, config.Calendar)
				assert.Equal(t, 17, config.Calendar.EndHour)
			},
		},
		{
			description: "invalid settings are aggregated",
			data: `
jobs:
  workers: 0
  maxRetries: -1
calendar:
  startHour: 10
  endHour: 8
`,
			expectErr: true,
			errCount:  3,
		},
		{
			description: "malformed yaml",
			data:        "jobs: [",
			expectErr:   true,
			errCount:    1,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			config, err := DecodeConfig([]byte(testCase.data))
			if testCase.expectErr {
				require.Error(t, err)
				assert.Len(t, multierr.Errors(err), testCase.errCount)
				return
			}
			require.NoError(t, err)
			testCase.verify(t, config)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	var config *Config
	assert.NoError(t, config.Validate())
	assert.NoError(t, DefaultConfig().Validate())

	config = DefaultConfig()
	config.Jobs.QueueBuffer = -1
	config.Jobs.RetryDelay = -time.Second
	assert.Len(t, multierr.Errors(config.Validate()), 2)
}
