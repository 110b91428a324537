package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrStreamerClosed is returned when publishing to a closed streamer
var ErrStreamerClosed = errors.New("streamer is closed")

// PublishCallback is called for each event published to a topic
type PublishCallback func(topic string, event Event)

// LocalStreamer is an in-memory Streamer for library mode and tests:
// events are routed to topics and handed to registered callbacks
// instead of a broker.
type LocalStreamer struct {
	router    *TopicRouter
	callbacks []PublishCallback
	mu        sync.RWMutex
	closed    bool
}

var _ Streamer = (*LocalStreamer)(nil)

// NewLocalStreamer creates a local streamer; nil config uses defaults
func NewLocalStreamer(config *StreamerConfig) *LocalStreamer {
	if config == nil {
		config = DefaultStreamerConfig()
	}
	return &LocalStreamer{
		router: NewTopicRouter(config.Topics),
	}
}

// OnPublish registers a callback invoked for each (topic, event) pair,
// in registration order
func (s *LocalStreamer) OnPublish(cb PublishCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Publish routes each event and invokes all callbacks
func (s *LocalStreamer) Publish(ctx context.Context, events []Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStreamerClosed
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, topic := range s.router.Route(event) {
			for _, cb := range s.callbacks {
				cb(topic, event)
			}
		}
	}

	return nil
}

// Close marks the streamer closed; further publishes fail
func (s *LocalStreamer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
