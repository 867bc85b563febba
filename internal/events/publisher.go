package events

import (
	"context"

	"github.com/campflow/matching-engine/internal/domain"
)

const (
	// TopicBookingStateChanged is the Kafka topic for booking transitions
	TopicBookingStateChanged = "booking.state-changed"
)

// Publisher delivers booking transition events to interested consumers.
// Services publish one event per state change, after the change is stored.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}
