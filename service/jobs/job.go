package jobs

import (
	"context"
	"time"

	"github.com/viant/procflow/service/timer"
)

// Kind distinguishes process start jobs from instance jobs
type Kind string

const (
	KindProcess  Kind = "process"
	KindInstance Kind = "instance"
)

// ProcessJob starts a new instance of a definition when it fires
type ProcessJob struct {
	ID           string
	DefinitionID string
	NodeID       string
	Expiration   *timer.ExpirationTime
}

// InstanceJob signals an existing instance when it fires
type InstanceJob struct {
	ID           string
	InstanceID   string
	DefinitionID string
	NodeID       string
	Expiration   *timer.ExpirationTime
}

// Job is a scheduled job
type Job struct {
	ID           string                `json:"id"`
	Kind         Kind                  `json:"kind"`
	DefinitionID string                `json:"definitionId,omitempty"`
	InstanceID   string                `json:"instanceId,omitempty"`
	NodeID       string                `json:"nodeId,omitempty"`
	Expiration   *timer.ExpirationTime `json:"expiration"`
	ScheduledAt  time.Time             `json:"scheduledAt"`
	Fired        int                   `json:"fired"`
	handle       Handle
	armed        bool
	cancelled    bool
}

// Trigger is published to the job queue each time a job fires
type Trigger struct {
	JobID        string    `json:"jobId"`
	Kind         Kind      `json:"kind"`
	DefinitionID string    `json:"definitionId,omitempty"`
	InstanceID   string    `json:"instanceId,omitempty"`
	NodeID       string    `json:"nodeId,omitempty"`
	Firing       int       `json:"firing"`
	FiredAt      time.Time `json:"firedAt"`
}

// Handler receives fired triggers. Implementations acquire the operation boundary themselves.
type Handler interface {
	OnProcessJob(ctx context.Context, trigger *Trigger) error
	OnInstanceJob(ctx context.Context, trigger *Trigger) error
}
