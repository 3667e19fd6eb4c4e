// Package events publishes capture-pipeline notifications to downstream
// consumers over NATS. Publication is best-effort: ingestion never fails
// because the bus is down.
package events

import (
	"context"

	"github.com/steveyackey/posthog/internal/model"
)

// Event topic constants
const (
	TopicEventIngested    = "capture.event.ingested"
	TopicPersonCreated    = "capture.person.created"
	TopicPersonIdentified = "capture.person.identified"
)

// Event types

type EventIngested struct {
	Event        *model.Event `json:"event"`
	ElementCount int          `json:"element_count,omitempty"`
}

type PersonCreated struct {
	Person *model.Person `json:"person"`
}

type PersonIdentified struct {
	Person *model.Person `json:"person"`
}

// Publisher sends events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
