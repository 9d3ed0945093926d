// Package mailhook turns one inbound email with any number of envelope
// recipients into a single accept decision with a folder and diagnostic headers.
package mailhook

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/service/dedup"
	"intake_server/pkg/logger"
	"intake_server/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// Config tunes the aggregator.
type Config struct {
	// MaxConcurrency bounds parallel recipient runs. Zero means unbounded.
	MaxConcurrency   int
	MinContentLength int
	ChannelSource    string
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   8,
		MinContentLength: domain.MinContentLength,
		ChannelSource:    domain.ChannelSourceStalwart,
	}
}

// Aggregator implements in.MailHookService.
type Aggregator struct {
	ingest   in.IngestionService
	detector *dedup.Detector
	config   Config
	log      *logger.Logger
}

var _ in.MailHookService = (*Aggregator)(nil)

func NewAggregator(ingest in.IngestionService, detector *dedup.Detector, config Config, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Default()
	}
	if config.ChannelSource == "" {
		config.ChannelSource = domain.ChannelSourceStalwart
	}
	return &Aggregator{ingest: ingest, detector: detector, config: config, log: log}
}

// Process never fails: any fault, including a panic, becomes an accept
// decision filed under the processing-error folder.
func (a *Aggregator) Process(ctx context.Context, p *domain.MailHookPayload) (decision domain.HookDecision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("stack", string(debug.Stack())).Error("mail hook panic: %v", r)
			decision = Decide(domain.ProcessingError{Reason: fmt.Sprintf("panic: %v", r)}, messageID(p))
		}
		metrics.RecordLatency("mailhook", time.Since(start))
	}()

	if p == nil {
		return Decide(domain.ProcessingError{Reason: "empty payload"}, "")
	}

	outcome := a.process(ctx, p)
	decision = Decide(outcome, p.MessageID)

	a.log.WithContext(ctx).WithFields(map[string]any{
		"message_id": p.MessageID,
		"recipients": len(p.Recipients),
		"status":     outcome.Status(),
		"folder":     decision.Folder,
		"confidence": decision.Confidence,
	}).Info("mail hook processed")
	return decision
}

func (a *Aggregator) process(ctx context.Context, p *domain.MailHookPayload) domain.Outcome {
	if len(p.Recipients) == 0 {
		return domain.ProcessingError{Reason: "no recipients"}
	}

	if a.detector.IsTransportDuplicate(ctx, p.MessageID, a.config.ChannelSource) {
		return domain.Duplicate{ExternalID: p.MessageID}
	}

	senderEmail := SenderEmail(p)
	senderName := SenderName(p, senderEmail)
	content := Content(p)

	// Too-short content is a property of the email, not of a recipient.
	if n := utf8.RuneCountInString(content); n < a.config.MinContentLength {
		return domain.ContentTooShort{Length: n}
	}

	messages := make([]*domain.InboundMessage, len(p.Recipients))
	for i, rcpt := range p.Recipients {
		messages[i] = &domain.InboundMessage{
			ExternalID:        p.MessageID,
			Channel:           domain.ChannelEmail,
			ChannelSource:     a.config.ChannelSource,
			SenderName:        senderName,
			SenderEmail:       senderEmail,
			RecipientEmail:    rcpt,
			Subject:           p.Subject,
			Body:              content,
			SentAt:            p.ReceivedAt,
			TransportVerified: true,
		}
	}

	return Reduce(a.fanOut(ctx, messages))
}

// fanOut runs every recipient and waits for all of them. A failing or
// panicking run yields ProcessingError for its slot only.
func (a *Aggregator) fanOut(ctx context.Context, messages []*domain.InboundMessage) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(messages))

	var g errgroup.Group
	if a.config.MaxConcurrency > 0 {
		g.SetLimit(a.config.MaxConcurrency)
	}
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			outcomes[i] = a.runOne(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (a *Aggregator) runOne(ctx context.Context, msg *domain.InboundMessage) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("recipient", msg.RecipientEmail).Error("recipient run panic: %v", r)
			outcome = domain.ProcessingError{Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	outcome = a.ingest.Ingest(ctx, msg)
	if outcome == nil {
		outcome = domain.ProcessingError{Reason: "no outcome"}
	}
	return outcome
}

// Reduce picks the outcome with the highest confidence. Ties keep the earliest.
func Reduce(outcomes []domain.Outcome) domain.Outcome {
	if len(outcomes) == 0 {
		return domain.ProcessingError{Reason: "no recipients"}
	}
	best := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.Confidence() > best.Confidence() {
			best = o
		}
	}
	return best
}

func messageID(p *domain.MailHookPayload) string {
	if p == nil {
		return ""
	}
	return p.MessageID
}
