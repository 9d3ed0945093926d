package template

import (
	"context"
	"errors"
	"testing"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/internal/memstore"
	"intake_server/pkg/apperr"
)

func setup(t *testing.T) (*Service, *memstore.Store, int64, int64) {
	t.Helper()
	store := memstore.New()
	p := store.AddPolitician(domain.Politician{Name: "A", Email: "a@gov.example", Active: true})
	c := store.AddCampaign(domain.Campaign{Name: "Parks", Slug: "parks"}, nil)
	return NewService(store.Templates(), store, store.Campaigns()), store, p.ID, c.ID
}

func TestService_CreateTemplate(t *testing.T) {
	svc, _, polID, campID := setup(t)
	ctx := context.Background()
	inactive := false

	tests := []struct {
		name       string
		req        *in.CreateReplyTemplateRequest
		wantCode   string
		wantActive bool
	}{
		{
			name:       "defaults to active",
			req:        &in.CreateReplyTemplateRequest{PoliticianID: polID, CampaignID: campID, Name: "Thanks", Subject: "Re: parks", Body: "Thank you"},
			wantActive: true,
		},
		{
			name: "explicit inactive",
			req:  &in.CreateReplyTemplateRequest{PoliticianID: polID, CampaignID: campID, Name: "Draft", Subject: "s", Body: "b", Active: &inactive},
		},
		{
			name:     "unknown politician",
			req:      &in.CreateReplyTemplateRequest{PoliticianID: 1, CampaignID: campID, Name: "x", Subject: "s", Body: "b"},
			wantCode: apperr.CodeInvalidInput,
		},
		{
			name:     "unknown campaign",
			req:      &in.CreateReplyTemplateRequest{PoliticianID: polID, CampaignID: 1, Name: "x", Subject: "s", Body: "b"},
			wantCode: apperr.CodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateTemplate(ctx, tt.req)
			if tt.wantCode != "" {
				if !apperr.HasCode(err, tt.wantCode) {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.ID == 0 || got.Active != tt.wantActive {
				t.Errorf("template = %+v", got)
			}
		})
	}
}

func TestService_ListAndGet(t *testing.T) {
	svc, _, polID, campID := setup(t)
	ctx := context.Background()
	created, err := svc.CreateTemplate(ctx, &in.CreateReplyTemplateRequest{PoliticianID: polID, CampaignID: campID, Name: "T", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}

	list, total, err := svc.ListTemplates(ctx, &domain.ReplyTemplateFilter{CampaignID: &campID})
	if err != nil || total != 1 || list[0].ID != created.ID {
		t.Fatalf("ListTemplates = %v, %d, %v", list, total, err)
	}

	other := campID + 100
	_, total, _ = svc.ListTemplates(ctx, &domain.ReplyTemplateFilter{CampaignID: &other})
	if total != 0 {
		t.Errorf("filtered total = %d, want 0", total)
	}

	if _, err := svc.GetTemplate(ctx, created.ID+999); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("GetTemplate missing error = %v", err)
	}
}

func TestService_CreateTemplateStoreFailure(t *testing.T) {
	svc, store, polID, campID := setup(t)
	store.Fail(memstore.OpCreateTemplate, errors.New("disk full"))
	_, err := svc.CreateTemplate(context.Background(), &in.CreateReplyTemplateRequest{PoliticianID: polID, CampaignID: campID, Name: "T", Subject: "s", Body: "b"})
	if !apperr.HasCode(err, apperr.CodeDatabaseError) {
		t.Errorf("error = %v", err)
	}
}
