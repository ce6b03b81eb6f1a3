package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"
)

// RoutingConfigEvent describes a lifecycle transition on a routing configuration.
type RoutingConfigEvent struct {
	EventID         string    `json:"eventId"`
	Type            string    `json:"type"`
	RoutingConfigID string    `json:"routingConfigId"`
	ClientID        string    `json:"clientId"`
	CampaignID      string    `json:"campaignId,omitempty"`
	Status          string    `json:"status"`
	LockNumber      int64     `json:"lockNumber"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Lifecycle event types emitted on the configured topic.
const (
	TypeCreated   = "routing-config.created"
	TypeUpdated   = "routing-config.updated"
	TypeSubmitted = "routing-config.submitted"
)

// PubSubPublisher publishes routing configuration lifecycle events to Pub/Sub.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	now     func() time.Time
}

// NewPubSubPublisher constructs a Pub/Sub backed lifecycle event publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubPublisher{
		topic:   topic,
		marshal: json.Marshal,
		now:     time.Now,
	}, nil
}

// Publish enqueues the event on the configured topic and returns the server
// side message ID. A missing event ID is generated before publishing.
func (p *PubSubPublisher) Publish(ctx context.Context, event RoutingConfigEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	if strings.TrimSpace(event.EventID) == "" {
		event.EventID = NewEventID(p.now())
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal routing config event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "routingConfigId", event.RoutingConfigID)
	setAttr(attrs, "clientId", event.ClientID)
	setAttr(attrs, "status", event.Status)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish routing config event: %w", err)
	}
	return id, nil
}

// NewEventID mints a lexicographically sortable event identifier.
func NewEventID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at.UTC()), rand.Reader).String()
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
