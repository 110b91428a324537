// Package stream publishes pipeline lifecycle events for downstream
// consumers (dashboards, alerting, audit trail).
package stream

import (
	"context"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// EventType identifies the kind of pipeline event
type EventType string

const (
	// EventStageCompleted is emitted after each successful stage
	EventStageCompleted EventType = "pipeline.stage.completed"

	// EventPipelineCompleted is emitted when a run finishes successfully
	EventPipelineCompleted EventType = "pipeline.completed"

	// EventPipelineFailed is emitted when a run aborts at any stage
	EventPipelineFailed EventType = "pipeline.failed"

	// EventThreatDetected is emitted when the virus scan flags an upload
	EventThreatDetected EventType = "threat.detected"

	// EventPIIDetected is emitted when the PII scan finds anything
	EventPIIDetected EventType = "pii.detected"
)

// Event is one pipeline lifecycle event. Detail values must never
// contain raw document text or PII values, only counts and categories.
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	UploadID      string            `json:"upload_id"`
	InstitutionID string            `json:"institution_id"`
	Stage         string            `json:"stage,omitempty"`
	Severity      types.Severity    `json:"severity,omitempty"`
	Detail        map[string]string `json:"detail,omitempty"`
}

// Streamer publishes pipeline events
type Streamer interface {
	// Publish emits events to their routed topics
	Publish(ctx context.Context, events []Event) error

	// Close flushes pending messages and releases resources
	Close() error
}

// Topics defines the destination topics for different event classes
type Topics struct {
	Events   string `json:"events" yaml:"events"`     // all events
	Security string `json:"security" yaml:"security"` // threats and critical PII
	Failures string `json:"failures" yaml:"failures"` // failed runs
}

// StreamerConfig configures the streamer
type StreamerConfig struct {
	Brokers       []string      `json:"brokers" yaml:"brokers"`
	Topics        Topics        `json:"topics" yaml:"topics"`
	BatchSize     int           `json:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
	Compression   string        `json:"compression" yaml:"compression"`     // "none", "gzip", "snappy", "lz4"
	RequiredAcks  string        `json:"required_acks" yaml:"required_acks"` // "none", "leader", "all"
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	RetryBackoff  time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
}

// DefaultStreamerConfig returns default streamer configuration
func DefaultStreamerConfig() *StreamerConfig {
	return &StreamerConfig{
		Brokers: []string{"localhost:9092"},
		Topics: Topics{
			Events:   "docpipeline.events",
			Security: "docpipeline.events.security",
			Failures: "docpipeline.events.failures",
		},
		BatchSize:     100,
		FlushInterval: time.Second,
		Compression:   "snappy",
		RequiredAcks:  "all",
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
	}
}
