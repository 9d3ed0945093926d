// Package ingestion runs a single (message, recipient) pair through the
// intake pipeline and reports exactly one outcome.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/core/service/dedup"
	"intake_server/core/service/identity"
	"intake_server/core/service/recipient"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
	"intake_server/pkg/metrics"

	"github.com/google/uuid"
)

// Config tunes the orchestrator.
type Config struct {
	MinContentLength int

	// MaxEmbedChars caps the text sent to the embedding service.
	MaxEmbedChars int
}

func DefaultConfig() Config {
	return Config{
		MinContentLength: domain.MinContentLength,
		MaxEmbedChars:    8000,
	}
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Detector   *dedup.Detector
	Resolver   *recipient.Resolver
	Embedder   out.Embedder
	Classifier in.Classifier
	Messages   out.MessageRepository

	// Events is optional.
	Events out.EventPublisher
}

// Orchestrator implements in.IngestionService.
type Orchestrator struct {
	deps   Deps
	config Config
	log    *logger.Logger
	now    func() time.Time
}

var _ in.IngestionService = (*Orchestrator)(nil)

func NewOrchestrator(deps Deps, config Config, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Default()
	}
	return &Orchestrator{deps: deps, config: config, log: log, now: time.Now}
}

// Ingest runs the pipeline: transport duplicate check, recipient resolution,
// content length check, embedding, classification, duplicate rank, persist.
// The first terminal state reached is returned. Nothing is stored unless the
// message reaches Processed.
func (o *Orchestrator) Ingest(ctx context.Context, msg *domain.InboundMessage) domain.Outcome {
	start := time.Now()
	outcome := o.ingest(ctx, msg)

	metrics.RecordLatency("ingest."+string(msg.Channel), time.Since(start))
	metrics.Outcomes().Inc(string(msg.Channel) + "." + string(outcome.Status()))

	log := o.log.WithContext(ctx).WithDuration(time.Since(start)).WithFields(map[string]any{
		"external_id": msg.ExternalID,
		"channel":     msg.Channel,
		"status":      outcome.Status(),
	})
	if perr, ok := outcome.(domain.ProcessingError); ok {
		log.WithError(perr.Err).Error("message processing failed: %s", perr.Reason)
	} else {
		log.Info("message ingested")
	}
	return outcome
}

func (o *Orchestrator) ingest(ctx context.Context, msg *domain.InboundMessage) domain.Outcome {
	if !msg.TransportVerified && o.deps.Detector.IsTransportDuplicate(ctx, msg.ExternalID, msg.ChannelSource) {
		return domain.Duplicate{ExternalID: msg.ExternalID}
	}

	politician, ok := o.deps.Resolver.Resolve(ctx, msg.RecipientEmail)
	if !ok {
		return domain.PoliticianNotFound{RecipientEmail: msg.RecipientEmail}
	}

	content := strings.TrimSpace(msg.Body)
	if n := utf8.RuneCountInString(content); n < o.config.MinContentLength {
		return domain.ContentTooShort{Length: n}
	}

	if err := ctx.Err(); err != nil {
		return domain.ProcessingError{Reason: "request cancelled", Err: err}
	}

	embedding, err := o.deps.Embedder.Embed(ctx, truncateRunes(content, o.config.MaxEmbedChars))
	if err != nil {
		return domain.ProcessingError{Reason: "Failed to generate message embedding", Err: apperr.EmbeddingFailed(err)}
	}

	classification, err := o.deps.Classifier.Classify(ctx, embedding, msg.CampaignHint)
	if err != nil {
		return domain.ProcessingError{Reason: "Failed to get or create uncategorized campaign", Err: apperr.ClassificationUnavailable(err)}
	}

	sender := identity.Hash(msg.SenderEmail)
	rank := o.deps.Detector.DuplicateRank(ctx, sender, politician.ID, classification.CampaignID)

	receivedAt := msg.SentAt
	if receivedAt.IsZero() {
		receivedAt = o.now().UTC()
	}

	id, err := o.deps.Messages.Create(ctx, &domain.StoredMessage{
		ExternalID:       msg.ExternalID,
		Channel:          msg.Channel,
		ChannelSource:    msg.ChannelSource,
		PoliticianID:     politician.ID,
		SenderHash:       sender,
		CampaignID:       classification.CampaignID,
		Confidence:       classification.Confidence,
		Embedding:        embedding,
		Language:         "auto",
		ReceivedAt:       receivedAt,
		DuplicateRank:    rank,
		ProcessingStatus: domain.ProcessingStatusProcessed,
	})
	if err != nil {
		return domain.ProcessingError{Reason: "Failed to store message", Err: apperr.PersistenceFailed(err)}
	}

	processed := domain.Processed{
		MessageID:      id,
		Classification: *classification,
		DuplicateRank:  rank,
		PoliticianID:   politician.ID,
		PoliticianName: politician.Name,
	}
	o.publish(ctx, msg, processed)
	return processed
}

// publish is best-effort; the message is already stored.
func (o *Orchestrator) publish(ctx context.Context, msg *domain.InboundMessage, p domain.Processed) {
	if o.deps.Events == nil {
		return
	}
	err := o.deps.Events.PublishMessageProcessed(ctx, &out.MessageProcessedEvent{
		EventID:       uuid.NewString(),
		MessageID:     p.MessageID,
		PoliticianID:  p.PoliticianID,
		CampaignID:    p.Classification.CampaignID,
		CampaignName:  p.Classification.CampaignName,
		Confidence:    p.Classification.Confidence,
		DuplicateRank: p.DuplicateRank,
		Channel:       string(msg.Channel),
		OccurredAt:    o.now().UTC(),
	})
	if err != nil {
		o.log.WithError(fmt.Errorf("publish message.processed: %w", err)).WithField("message_id", p.MessageID).Warn("event publish failed")
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
