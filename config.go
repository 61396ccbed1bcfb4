package procflow

import (
	"fmt"
	"time"

	"github.com/viant/procflow/service/timer/calendar"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. The
// zero value of each section inherits the DefaultConfig values.
type Config struct {
	Runtime  RuntimeConfig    `json:"runtime" yaml:"runtime"`
	Jobs     JobsConfig       `json:"jobs" yaml:"jobs"`
	Calendar *calendar.Config `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Metrics  MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// RuntimeConfig controls instance retention and definition activation
type RuntimeConfig struct {
	// RetainTerminated keeps completed and aborted instances in the registry
	RetainTerminated bool `json:"retainTerminated" yaml:"retainTerminated"`
	// Inactive disables start trigger listeners and start timers
	Inactive bool `json:"inactive" yaml:"inactive"`
}

// JobsConfig controls fired job delivery
type JobsConfig struct {
	Workers     int           `json:"workers" yaml:"workers"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
}

// MetricsConfig controls prometheus collectors
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// DefaultConfig returns a Config populated with default values
func DefaultConfig() *Config {
	return &Config{
		Jobs: JobsConfig{
			Workers:     4,
			QueueBuffer: 100,
			MaxRetries:  3,
			RetryDelay:  100 * time.Millisecond,
		},
		Metrics: MetricsConfig{Namespace: "procflow"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var err error
	if c.Jobs.Workers <= 0 {
		err = multierr.Append(err, fmt.Errorf("jobs.workers must be > 0"))
	}
	if c.Jobs.QueueBuffer < 0 {
		err = multierr.Append(err, fmt.Errorf("jobs.queueBuffer must be >= 0"))
	}
	if c.Jobs.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("jobs.maxRetries must be >= 0"))
	}
	if c.Jobs.RetryDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("jobs.retryDelay must be >= 0"))
	}
	if c.Calendar != nil {
		err = multierr.Append(err, c.Calendar.Validate())
	}
	return err
}

// DecodeConfig decodes YAML (or JSON) data on top of DefaultConfig and validates the result
func DecodeConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
