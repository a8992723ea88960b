package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"

	"github.com/freightdesk/billing-api/internal/platform/textutil"
	"github.com/freightdesk/billing-api/internal/services"
)

// PubSubBreakdownPublisher publishes breakdown update events to a Pub/Sub topic
// consumed by invoicing and commission reporting.
type PubSubBreakdownPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	ids     func() string
}

// NewPubSubBreakdownPublisher constructs a Pub/Sub backed breakdown event publisher.
func NewPubSubBreakdownPublisher(topic *pubsub.Topic) (*PubSubBreakdownPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub breakdown publisher: topic is required")
	}
	return &PubSubBreakdownPublisher{
		topic:   topic,
		marshal: json.Marshal,
		ids:     func() string { return ulid.Make().String() },
	}, nil
}

// PublishBreakdownUpdated enqueues a breakdown update message on the configured topic.
func (p *PubSubBreakdownPublisher) PublishBreakdownUpdated(ctx context.Context, event services.BreakdownUpdatedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub breakdown publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal breakdown event: %w", err)
	}

	attrs := textutil.NormalizeStringMap(map[string]string{
		"eventId":    p.ids(),
		"shipmentId": event.ShipmentID,
		"trigger":    event.Trigger,
		"revision":   strconv.FormatInt(event.Revision, 10),
	})

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish breakdown event: %w", err)
	}
	return id, nil
}

var _ services.BreakdownEventPublisher = (*PubSubBreakdownPublisher)(nil)
