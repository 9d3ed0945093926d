package campaign

import (
	"context"
	"errors"
	"strings"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/pkg/apperr"
)

// RecentWindow is the period counted as "recent" in campaign stats.
const RecentWindow = 7 * 24 * time.Hour

type Service struct {
	campaignRepo out.CampaignRepository
	now          func() time.Time
}

var _ in.CampaignService = (*Service)(nil)

func NewService(campaignRepo out.CampaignRepository) *Service {
	return &Service{campaignRepo: campaignRepo, now: time.Now}
}

func (s *Service) ListCampaigns(ctx context.Context, limit, offset int) ([]*domain.Campaign, int, error) {
	campaigns, total, err := s.campaignRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list campaigns", err)
	}
	return campaigns, total, nil
}

func (s *Service) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperr.NotFound("campaign")
	}
	if err != nil {
		return nil, apperr.DatabaseError("get campaign", err)
	}
	return c, nil
}

// CreateCampaign creates a campaign in the unconfirmed state.
func (s *Service) CreateCampaign(ctx context.Context, req *in.CreateCampaignRequest) (*domain.Campaign, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == domain.UncategorizedSlug {
		return nil, apperr.Conflict("slug is reserved")
	}

	c, err := s.campaignRepo.Create(ctx, &domain.NewCampaign{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		Status:      domain.CampaignUnconfirmed,
		CreatedBy:   "api",
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.AlreadyExists("campaign with slug " + slug)
	}
	if err != nil {
		return nil, apperr.DatabaseError("create campaign", err)
	}
	return c, nil
}

func (s *Service) CampaignStats(ctx context.Context) ([]*domain.CampaignStats, error) {
	stats, err := s.campaignRepo.Stats(ctx, s.now().Add(-RecentWindow))
	if err != nil {
		return nil, apperr.DatabaseError("campaign stats", err)
	}
	return stats, nil
}
