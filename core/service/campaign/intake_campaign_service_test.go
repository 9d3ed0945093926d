package campaign

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/internal/memstore"
	"intake_server/pkg/apperr"
)

func TestService_CreateCampaign(t *testing.T) {
	store := memstore.New()
	svc := NewService(store.Campaigns())
	ctx := context.Background()

	c, err := svc.CreateCampaign(ctx, &in.CreateCampaignRequest{Name: " Clean Rivers ", Slug: "clean-rivers"})
	if err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	if c.Name != "Clean Rivers" || c.Status != domain.CampaignUnconfirmed {
		t.Errorf("campaign = %+v", c)
	}

	_, err = svc.CreateCampaign(ctx, &in.CreateCampaignRequest{Name: "Other", Slug: "clean-rivers"})
	if apperr.GetHTTPStatus(err) != http.StatusConflict {
		t.Errorf("duplicate slug error = %v", err)
	}

	_, err = svc.CreateCampaign(ctx, &in.CreateCampaignRequest{Name: "Nope", Slug: "uncategorized"})
	if apperr.GetHTTPStatus(err) != http.StatusConflict {
		t.Errorf("reserved slug error = %v", err)
	}
}

func TestService_GetCampaign(t *testing.T) {
	store := memstore.New()
	seeded := store.AddCampaign(domain.Campaign{Name: "Parks", Slug: "parks"}, nil)
	svc := NewService(store.Campaigns())

	got, err := svc.GetCampaign(context.Background(), seeded.ID)
	if err != nil || got.Slug != "parks" {
		t.Fatalf("GetCampaign = %+v, %v", got, err)
	}

	_, err = svc.GetCampaign(context.Background(), 999999)
	if !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("missing campaign error = %v", err)
	}
}

func TestService_CampaignStats(t *testing.T) {
	store := memstore.New()
	parks := store.AddCampaign(domain.Campaign{Name: "Parks", Slug: "parks"}, nil)
	msgs := store.MessageStore()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	for _, m := range []domain.StoredMessage{
		{ExternalID: "1", CampaignID: parks.ID, Confidence: 0.75, ReceivedAt: now.Add(-24 * time.Hour)},
		{ExternalID: "2", CampaignID: parks.ID, Confidence: 0.25, ReceivedAt: now.Add(-30 * 24 * time.Hour)},
	} {
		m := m
		_, _ = msgs.Create(context.Background(), &m)
	}

	svc := NewService(store.Campaigns())
	svc.now = func() time.Time { return now }

	stats, err := svc.CampaignStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats = %v", stats)
	}
	st := stats[0]
	if st.MessageCount != 2 || st.RecentCount != 1 || st.AvgConfidence != 0.5 {
		t.Errorf("stats = %+v", st)
	}
}

func TestService_ListCampaignsError(t *testing.T) {
	svc := NewService(failingRepo{memstore.New().Campaigns()})
	_, _, err := svc.ListCampaigns(context.Background(), 10, 0)
	if !apperr.HasCode(err, apperr.CodeDatabaseError) {
		t.Errorf("error = %v", err)
	}
}

type failingRepo struct{ *memstore.CampaignView }

func (failingRepo) List(context.Context, int, int) ([]*domain.Campaign, int, error) {
	return nil, 0, errors.New("db down")
}
