package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/core/service/classification"
	"intake_server/core/service/dedup"
	"intake_server/core/service/identity"
	"intake_server/core/service/recipient"
	"intake_server/internal/memstore"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
)

// MockEmbedder returns a fixed vector and records the texts it saw.
type MockEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	texts  []string
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *MockEmbedder) Dimensions() int { return len(m.vector) }

func (m *MockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// MockPublisher records published events.
type MockPublisher struct {
	events []*out.MessageProcessedEvent
	err    error
}

func (m *MockPublisher) PublishMessageProcessed(_ context.Context, evt *out.MessageProcessedEvent) error {
	m.events = append(m.events, evt)
	return m.err
}

type fixture struct {
	store      *memstore.Store
	embedder   *MockEmbedder
	publisher  *MockPublisher
	politician *domain.Politician
	climate    *domain.Campaign
	orch       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:     store,
		embedder:  &MockEmbedder{vector: []float32{0, 1}},
		publisher: &MockPublisher{},
	}
	f.politician = store.AddPolitician(domain.Politician{
		Name: "Maria Rossi", Email: "maria.rossi@parliament.example", Active: true,
	})
	f.climate = store.AddCampaign(domain.Campaign{Name: "Climate Action", Slug: "climate-action"}, []float32{1, 0})

	log := logger.Nop()
	f.orch = NewOrchestrator(Deps{
		Detector:   dedup.NewDetector(store.MessageStore(), log),
		Resolver:   recipient.NewResolver(store, log),
		Embedder:   f.embedder,
		Classifier: classification.NewClassifier(store.Campaigns(), classification.DefaultConfig(), log),
		Messages:   store.MessageStore(),
		Events:     f.publisher,
	}, DefaultConfig(), log)
	return f
}

func validMessage() *domain.InboundMessage {
	return &domain.InboundMessage{
		ExternalID:     "msg123",
		Channel:        domain.ChannelAPI,
		ChannelSource:  "web-form",
		SenderName:     "Citizen Kane",
		SenderEmail:    "Citizen@Example.org",
		RecipientEmail: "maria.rossi@parliament.example",
		Subject:        "Please act",
		Body:           "Please support stronger climate legislation this term.",
		SentAt:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CampaignHint:   "climate",
	}
}

func TestIngest_EndToEndWithHint(t *testing.T) {
	f := newFixture(t)

	outcome := f.orch.Ingest(context.Background(), validMessage())

	p, ok := outcome.(domain.Processed)
	if !ok {
		t.Fatalf("outcome = %#v, want Processed", outcome)
	}
	if p.Classification.CampaignName != "Climate Action" || p.Classification.Confidence != 0.95 {
		t.Errorf("classification = %+v", p.Classification)
	}
	if p.DuplicateRank != 0 {
		t.Errorf("DuplicateRank = %d, want 0", p.DuplicateRank)
	}

	stored := f.store.Messages()
	if len(stored) != 1 {
		t.Fatalf("stored = %d, want 1", len(stored))
	}
	m := stored[0]
	if m.ID != p.MessageID || m.SenderHash != identity.Hash("citizen@example.org") {
		t.Errorf("stored message = %+v", m)
	}
	if m.Language != "auto" || m.ProcessingStatus != domain.ProcessingStatusProcessed {
		t.Errorf("stored defaults = %q/%q", m.Language, m.ProcessingStatus)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].MessageID != p.MessageID {
		t.Errorf("events = %+v", f.publisher.events)
	}
}

func TestIngest_RepeatIsDuplicateRegardlessOfOtherFields(t *testing.T) {
	f := newFixture(t)
	f.orch.Ingest(context.Background(), validMessage())

	again := validMessage()
	again.Body = "Completely different text, still long enough."
	again.RecipientEmail = "nobody@example.org"
	again.SenderEmail = "someone-else@example.org"

	if _, ok := f.orch.Ingest(context.Background(), again).(domain.Duplicate); !ok {
		t.Fatal("expected Duplicate")
	}
	if calls := f.store.Calls(memstore.OpFindByEmail); calls != 1 {
		t.Errorf("resolver ran %d times, duplicate gate must run first", calls)
	}
}

func TestIngest_DuplicateRankIncrements(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		msg := validMessage()
		msg.ExternalID = "msg-" + string(rune('a'+i))
		p, ok := f.orch.Ingest(context.Background(), msg).(domain.Processed)
		if !ok {
			t.Fatalf("message %d not processed", i)
		}
		if p.DuplicateRank != i {
			t.Errorf("message %d rank = %d", i, p.DuplicateRank)
		}
	}
}

func TestIngest_TerminalStates(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(f *fixture, m *domain.InboundMessage)
		wantStatus domain.OutcomeStatus
		wantEmbeds int
	}{
		{
			name:       "unknown recipient",
			mutate:     func(_ *fixture, m *domain.InboundMessage) { m.RecipientEmail = "ghost@example.org" },
			wantStatus: domain.StatusPoliticianNotFound,
		},
		{
			name:       "short content skips embedding",
			mutate:     func(_ *fixture, m *domain.InboundMessage) { m.Body = "   too short   " },
			wantStatus: domain.StatusContentTooShort,
		},
		{
			name:       "embedding failure",
			mutate:     func(f *fixture, _ *domain.InboundMessage) { f.embedder.err = errors.New("503") },
			wantStatus: domain.StatusError,
			wantEmbeds: 1,
		},
		{
			name: "fallback campaign unavailable",
			mutate: func(f *fixture, m *domain.InboundMessage) {
				m.CampaignHint = ""
				f.store.Fail(memstore.OpGetOrCreate, errors.New("insert failed"))
			},
			wantStatus: domain.StatusError,
			wantEmbeds: 1,
		},
		{
			name:       "persistence failure",
			mutate:     func(f *fixture, _ *domain.InboundMessage) { f.store.Fail(memstore.OpCreateMessage, errors.New("disk full")) },
			wantStatus: domain.StatusError,
			wantEmbeds: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			msg := validMessage()
			tt.mutate(f, msg)

			outcome := f.orch.Ingest(context.Background(), msg)
			if outcome.Status() != tt.wantStatus {
				t.Fatalf("status = %s, want %s", outcome.Status(), tt.wantStatus)
			}
			if got := f.embedder.calls(); got != tt.wantEmbeds {
				t.Errorf("embedder calls = %d, want %d", got, tt.wantEmbeds)
			}
			if n := len(f.store.Messages()); n != 0 {
				t.Errorf("stored %d messages on a non-processed outcome", n)
			}
			if len(f.publisher.events) != 0 {
				t.Error("no event expected on a non-processed outcome")
			}
		})
	}
}

func TestIngest_ProcessingErrorCarriesCode(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("timeout")

	perr, ok := f.orch.Ingest(context.Background(), validMessage()).(domain.ProcessingError)
	if !ok {
		t.Fatal("expected ProcessingError")
	}
	if !apperr.HasCode(perr.Err, apperr.CodeEmbeddingFailed) {
		t.Errorf("error = %v, want EMBEDDING_FAILED", perr.Err)
	}
}

func TestIngest_ContentLengthCountsCharacters(t *testing.T) {
	f := newFixture(t)
	msg := validMessage()
	msg.CampaignHint = ""
	msg.Body = "ééééééééé" // 9 characters, 18 bytes

	short, ok := f.orch.Ingest(context.Background(), msg).(domain.ContentTooShort)
	if !ok || short.Length != 9 {
		t.Fatalf("outcome = %#v, want ContentTooShort{9}", short)
	}
}

func TestIngest_TruncatesEmbeddingInput(t *testing.T) {
	f := newFixture(t)
	msg := validMessage()
	msg.Body = strings.Repeat("ü", 9000)

	f.orch.Ingest(context.Background(), msg)
	if got := utf8.RuneCountInString(f.embedder.texts[0]); got != 8000 {
		t.Errorf("embedded %d characters, want 8000", got)
	}
}

func TestIngest_PublishFailureKeepsOutcome(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("redis down")

	if _, ok := f.orch.Ingest(context.Background(), validMessage()).(domain.Processed); !ok {
		t.Fatal("publish failure must not change the outcome")
	}
}

func TestIngest_CancelledContextIsProcessingError(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := f.orch.Ingest(ctx, validMessage()).Status(); got != domain.StatusError {
		t.Errorf("status = %s, want error", got)
	}
}
