package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/outbox"
	"github.com/groupcart/groupcart-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		CampaignTopic: "campaign-events",
		PledgeTopic:   "pledge-events",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func envelopeJSON(t *testing.T, data interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func TestNewEventRegistry_RequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{PledgeTopic: "p"}); err == nil {
		t.Fatal("expected error without campaign topic")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{CampaignTopic: "c"}); err == nil {
		t.Fatal("expected error without pledge topic")
	}
}

func TestResolve_DecodesCampaignPayload(t *testing.T) {
	reg := testRegistry(t)
	campaignID := uuid.New()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCampaignStatusChanged,
		AggregateType: enums.AggregateCampaign,
		AggregateID:   campaignID,
		Payload: envelopeJSON(t, payloads.CampaignStatusChangedEvent{
			CampaignID: campaignID,
			FromStatus: enums.CampaignStatusActive,
			ToStatus:   enums.CampaignStatusGracePeriod,
		}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "campaign-events" {
		t.Fatalf("expected campaign topic, got %s", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.CampaignStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.ToStatus != enums.CampaignStatusGracePeriod {
		t.Fatalf("unexpected status %s", payload.ToStatus)
	}
}

func TestResolve_RoutesPledgeEventsToPledgeTopic(t *testing.T) {
	reg := testRegistry(t)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPledgeCreated,
		AggregateType: enums.AggregatePledge,
		AggregateID:   uuid.New(),
		Payload:       envelopeJSON(t, payloads.PledgeCreatedEvent{Quantity: 10}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "pledge-events" {
		t.Fatalf("expected pledge topic, got %s", resolved.Descriptor.Topic)
	}
}

func TestResolve_NonRetryableFailures(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name: "unsupported event type",
			event: models.OutboxEvent{
				EventType:     enums.OutboxEventType("order_created"),
				AggregateType: enums.AggregateCampaign,
				AggregateID:   uuid.New(),
			},
		},
		{
			name: "aggregate mismatch",
			event: models.OutboxEvent{
				EventType:     enums.EventPledgeCreated,
				AggregateType: enums.AggregateCampaign,
				AggregateID:   uuid.New(),
			},
		},
		{
			name: "missing aggregate id",
			event: models.OutboxEvent{
				EventType:     enums.EventCampaignPublished,
				AggregateType: enums.AggregateCampaign,
			},
		},
		{
			name: "malformed envelope",
			event: models.OutboxEvent{
				EventType:     enums.EventCampaignPublished,
				AggregateType: enums.AggregateCampaign,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{not json`),
			},
		},
		{
			name: "null data",
			event: models.OutboxEvent{
				EventType:     enums.EventCampaignPublished,
				AggregateType: enums.AggregateCampaign,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{"version":1,"eventId":"x","data":null}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(tt.event)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected NonRetryableError, got %v", err)
			}
		})
	}
}
