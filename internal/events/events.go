package events

import "context"

// Event types published on the collection stream.
const (
	EventPaymentReceived         = "payment_received"
	EventCollectionStatusChanged = "collection_status_changed"
	EventCollectionDeployed      = "collection_deployed"
	EventPaymentExpired          = "payment_expired"
)

// StreamCollections is the pub/sub channel the API's WS hub subscribes to.
const StreamCollections = "events:collections"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
