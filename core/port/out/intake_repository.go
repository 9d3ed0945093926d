// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
	"time"

	"intake_server/core/domain"
)

// PoliticianRepository reads politicians. Lookups return (nil, nil) when
// nothing matches.
type PoliticianRepository interface {
	FindActiveByEmail(ctx context.Context, email string) (*domain.Politician, error)
	FindActiveByAlias(ctx context.Context, email string) (*domain.Politician, error)
	GetByID(ctx context.Context, id int64) (*domain.Politician, error)
	List(ctx context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error)
}

// CampaignRepository reads and creates campaigns.
type CampaignRepository interface {
	// FindByHint returns the first classifiable campaign whose name or slug contains hint.
	FindByHint(ctx context.Context, hint string) (*domain.Campaign, error)
	// SearchSimilar ranks classifiable campaigns with a reference vector by cosine
	// similarity, dropping candidates under minSimilarity.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.CampaignCandidate, error)
	// ListWithReferenceVector returns classifiable campaigns that have a reference vector, unranked.
	ListWithReferenceVector(ctx context.Context, limit int) ([]*domain.Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Campaign, error)
	// GetOrCreate is idempotent on slug. Concurrent callers converge on one row.
	GetOrCreate(ctx context.Context, c *domain.NewCampaign) (*domain.Campaign, error)

	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Campaign, int, error)
	// Create returns domain.ErrDuplicate when the slug is taken.
	Create(ctx context.Context, c *domain.NewCampaign) (*domain.Campaign, error)
	Stats(ctx context.Context, recentSince time.Time) ([]*domain.CampaignStats, error)
}

// MessageRepository stores accepted messages.
type MessageRepository interface {
	ExistsByExternalID(ctx context.Context, externalID, channelSource string) (bool, error)
	CountBySender(ctx context.Context, sender domain.SenderIdentity, politicianID, campaignID int64) (int, error)
	Create(ctx context.Context, msg *domain.StoredMessage) (int64, error)
}

// ReplyTemplateRepository manages reply templates.
type ReplyTemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ReplyTemplate, error)
	List(ctx context.Context, filter *domain.ReplyTemplateFilter) ([]*domain.ReplyTemplate, int, error)
	Create(ctx context.Context, t *domain.ReplyTemplate) (*domain.ReplyTemplate, error)
}
