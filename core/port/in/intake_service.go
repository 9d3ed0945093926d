package in

import (
	"context"

	"intake_server/core/domain"
)

// IngestionService runs one (message, recipient) pair through the pipeline.
type IngestionService interface {
	Ingest(ctx context.Context, msg *domain.InboundMessage) domain.Outcome
}

// MailHookService turns one inbound email into a routing decision. It never fails.
type MailHookService interface {
	Process(ctx context.Context, payload *domain.MailHookPayload) domain.HookDecision
}

// Classifier assigns a campaign to an embedded message.
type Classifier interface {
	Classify(ctx context.Context, embedding []float32, hint string) (*domain.ClassificationResult, error)
}

// CampaignService backs the campaign management routes.
type CampaignService interface {
	ListCampaigns(ctx context.Context, limit, offset int) ([]*domain.Campaign, int, error)
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, req *CreateCampaignRequest) (*domain.Campaign, error)
	CampaignStats(ctx context.Context) ([]*domain.CampaignStats, error)
}

type CreateCampaignRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=255"`
	Slug        string  `json:"slug" validate:"required,min=3,max=255,slug"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// PoliticianService backs the politician read routes.
type PoliticianService interface {
	ListPoliticians(ctx context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error)
	GetPolitician(ctx context.Context, id int64) (*domain.Politician, error)
}

// ReplyTemplateService backs the reply template routes.
type ReplyTemplateService interface {
	ListTemplates(ctx context.Context, filter *domain.ReplyTemplateFilter) ([]*domain.ReplyTemplate, int, error)
	GetTemplate(ctx context.Context, id int64) (*domain.ReplyTemplate, error)
	CreateTemplate(ctx context.Context, req *CreateReplyTemplateRequest) (*domain.ReplyTemplate, error)
}

type CreateReplyTemplateRequest struct {
	PoliticianID int64  `json:"politician_id" validate:"required,gt=0"`
	CampaignID   int64  `json:"campaign_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,min=1,max=255"`
	Subject      string `json:"subject" validate:"required,min=1,max=500"`
	Body         string `json:"body" validate:"required,min=1"`
	Active       *bool  `json:"active,omitempty"`
}
