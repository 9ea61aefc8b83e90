package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic carries every lifecycle event. The delivery side (push to connected
// clients) subscribes externally; this module only produces.
const Topic = "match-lifecycle"

type Fanout interface {
	Publish(ctx context.Context, event Event) error
}

type envelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type WatermillFanout struct {
	publisher message.Publisher
}

func NewWatermillFanout(publisher message.Publisher) *WatermillFanout {
	return &WatermillFanout{publisher: publisher}
}

func (f *WatermillFanout) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.EventType())

	return f.publisher.Publish(Topic, msg)
}

var _ Fanout = (*WatermillFanout)(nil)

// NopFanout drops events. Used where a handler is exercised without a
// delivery pipeline attached.
type NopFanout struct{}

func (NopFanout) Publish(context.Context, Event) error { return nil }

var _ Fanout = NopFanout{}
