package mailhook

import (
	"context"
	"math"
	"testing"

	"intake_server/core/domain"
	"intake_server/core/service/classification"
	"intake_server/core/service/dedup"
	"intake_server/core/service/ingestion"
	"intake_server/core/service/recipient"
	"intake_server/internal/memstore"
	"intake_server/pkg/logger"
)

type staticEmbedder []float32

func (e staticEmbedder) Embed(context.Context, string) ([]float32, error) { return e, nil }
func (e staticEmbedder) Dimensions() int                                  { return len(e) }

func TestPipeline_TwoRecipientsOneKnown(t *testing.T) {
	store := memstore.New()
	store.AddPolitician(domain.Politician{Name: "Maria Rossi", Email: "maria@parliament.example", Active: true})
	store.AddCampaign(domain.Campaign{Name: "Bike Lanes", Slug: "bike-lanes"}, []float32{1, 0})

	log := logger.Nop()
	detector := dedup.NewDetector(store.MessageStore(), log)
	orch := ingestion.NewOrchestrator(ingestion.Deps{
		Detector:   detector,
		Resolver:   recipient.NewResolver(store, log),
		Embedder:   staticEmbedder{0.8, float32(math.Sqrt(1 - 0.64))},
		Classifier: classification.NewClassifier(store.Campaigns(), classification.DefaultConfig(), log),
		Messages:   store.MessageStore(),
	}, ingestion.DefaultConfig(), log)
	agg := NewAggregator(orch, detector, DefaultConfig(), log)

	d := agg.Process(context.Background(), hookPayload("maria@parliament.example", "nobody@parliament.example"))

	if d.Headers[HeaderStatus] != "processed" {
		t.Fatalf("decision = %+v", d)
	}
	if math.Abs(d.Confidence-0.8) > 1e-4 {
		t.Errorf("Confidence = %v, want ~0.8", d.Confidence)
	}
	if d.Headers[HeaderPolitician] != "Maria Rossi" || d.Folder != "CircularDemocracy/Bike-Lanes" {
		t.Errorf("decision = %+v", d)
	}

	stored := store.Messages()
	if len(stored) != 1 || stored[0].Channel != domain.ChannelEmail || stored[0].ChannelSource != "stalwart" {
		t.Fatalf("stored = %+v", stored)
	}

	// Same message id again is a duplicate.
	again := agg.Process(context.Background(), hookPayload("maria@parliament.example"))
	if again.Folder != FolderDuplicates {
		t.Errorf("replay folder = %q", again.Folder)
	}
}
