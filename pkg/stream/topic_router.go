package stream

import (
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// TopicRouter determines which topics an event is published to
type TopicRouter struct {
	topics Topics
}

// NewTopicRouter creates a router with the given topic configuration
func NewTopicRouter(topics Topics) *TopicRouter {
	return &TopicRouter{topics: topics}
}

// Route returns the topics for an event.
//
// Routing rules:
//   - every event goes to topics.Events
//   - threat detections and critical-severity events also go to topics.Security
//   - failed runs also go to topics.Failures
func (r *TopicRouter) Route(event Event) []string {
	topics := []string{r.topics.Events}

	if event.Type == EventThreatDetected || event.Severity == types.SeverityCritical {
		topics = append(topics, r.topics.Security)
	}
	if event.Type == EventPipelineFailed {
		topics = append(topics, r.topics.Failures)
	}

	return topics
}
