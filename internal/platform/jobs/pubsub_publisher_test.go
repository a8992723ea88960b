package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/freightdesk/billing-api/internal/services"
)

func TestPubSubBreakdownPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "billing-breakdown-updates")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubBreakdownPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubBreakdownPublisher: %v", err)
	}

	event := services.BreakdownUpdatedEvent{
		ShipmentID: "ship-42",
		Revision:   7,
		Trigger:    "line_upsert",
		LineCount:  5,
		TaxLines:   2,
	}

	if _, err := publisher.PublishBreakdownUpdated(ctx, event); err != nil {
		t.Fatalf("PublishBreakdownUpdated: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.BreakdownUpdatedEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ShipmentID != event.ShipmentID || payload.Revision != event.Revision {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["trigger"]; attr != "line_upsert" {
		t.Fatalf("expected trigger attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["revision"]; attr != "7" {
		t.Fatalf("expected revision attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["eventId"]; attr == "" {
		t.Fatalf("expected eventId attribute to be set")
	}
}
