package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func TestTopicRouterRouting(t *testing.T) {
	router := NewTopicRouter(DefaultStreamerConfig().Topics)

	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			name:  "Stage completion goes to events only",
			event: Event{Type: EventStageCompleted},
			want:  []string{"docpipeline.events"},
		},
		{
			name:  "Threat detection also goes to security",
			event: Event{Type: EventThreatDetected, Severity: types.SeverityHigh},
			want:  []string{"docpipeline.events", "docpipeline.events.security"},
		},
		{
			name:  "Critical PII also goes to security",
			event: Event{Type: EventPIIDetected, Severity: types.SeverityCritical},
			want:  []string{"docpipeline.events", "docpipeline.events.security"},
		},
		{
			name:  "Pipeline failure also goes to failures",
			event: Event{Type: EventPipelineFailed},
			want:  []string{"docpipeline.events", "docpipeline.events.failures"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := router.Route(tt.event)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected topics %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected topics %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestLocalStreamerPublish(t *testing.T) {
	streamer := NewLocalStreamer(nil)

	type published struct {
		topic string
		event Event
	}
	var got []published
	streamer.OnPublish(func(topic string, event Event) {
		got = append(got, published{topic: topic, event: event})
	})

	events := []Event{
		{ID: "e1", Type: EventStageCompleted, UploadID: "u1", Timestamp: time.Now()},
		{ID: "e2", Type: EventPipelineFailed, UploadID: "u1", Timestamp: time.Now()},
	}
	if err := streamer.Publish(context.Background(), events); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	// e1 -> events; e2 -> events + failures
	if len(got) != 3 {
		t.Fatalf("Expected 3 published messages, got %d", len(got))
	}
	if got[0].event.ID != "e1" || got[0].topic != "docpipeline.events" {
		t.Errorf("Unexpected first message %+v", got[0])
	}
	if got[2].topic != "docpipeline.events.failures" {
		t.Errorf("Unexpected last topic %q", got[2].topic)
	}
}

func TestLocalStreamerClosed(t *testing.T) {
	streamer := NewLocalStreamer(nil)
	if err := streamer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	err := streamer.Publish(context.Background(), []Event{{ID: "e1"}})
	if !errors.Is(err, ErrStreamerClosed) {
		t.Errorf("Expected ErrStreamerClosed, got %v", err)
	}
}

func TestLocalStreamerCancelledContext(t *testing.T) {
	streamer := NewLocalStreamer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := streamer.Publish(ctx, []Event{{ID: "e1"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
