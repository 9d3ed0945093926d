package out

import (
	"context"
	"time"
)

// MessageProcessedEvent is emitted after a message is stored.
type MessageProcessedEvent struct {
	EventID       string    `json:"event_id"`
	MessageID     int64     `json:"message_id"`
	PoliticianID  int64     `json:"politician_id"`
	CampaignID    int64     `json:"campaign_id"`
	CampaignName  string    `json:"campaign_name"`
	Confidence    float64   `json:"confidence"`
	DuplicateRank int       `json:"duplicate_rank"`
	Channel       string    `json:"channel"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher delivers pipeline events to downstream consumers.
type EventPublisher interface {
	PublishMessageProcessed(ctx context.Context, evt *MessageProcessedEvent) error
}
