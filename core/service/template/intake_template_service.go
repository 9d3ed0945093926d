package template

import (
	"context"
	"errors"
	"strings"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/pkg/apperr"
)

type Service struct {
	templateRepo   out.ReplyTemplateRepository
	politicianRepo out.PoliticianRepository
	campaignRepo   out.CampaignRepository
}

var _ in.ReplyTemplateService = (*Service)(nil)

func NewService(templateRepo out.ReplyTemplateRepository, politicianRepo out.PoliticianRepository, campaignRepo out.CampaignRepository) *Service {
	return &Service{
		templateRepo:   templateRepo,
		politicianRepo: politicianRepo,
		campaignRepo:   campaignRepo,
	}
}

func (s *Service) ListTemplates(ctx context.Context, filter *domain.ReplyTemplateFilter) ([]*domain.ReplyTemplate, int, error) {
	if filter == nil {
		filter = &domain.ReplyTemplateFilter{}
	}
	templates, total, err := s.templateRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list reply templates", err)
	}
	return templates, total, nil
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*domain.ReplyTemplate, error) {
	t, err := s.templateRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperr.NotFound("reply template")
	}
	if err != nil {
		return nil, apperr.DatabaseError("get reply template", err)
	}
	return t, nil
}

// CreateTemplate stores a template after checking that the politician and
// campaign it references exist. Templates are active unless stated otherwise.
func (s *Service) CreateTemplate(ctx context.Context, req *in.CreateReplyTemplateRequest) (*domain.ReplyTemplate, error) {
	if _, err := s.politicianRepo.GetByID(ctx, req.PoliticianID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.InvalidInput("politician_id", "politician does not exist")
		}
		return nil, apperr.DatabaseError("get politician", err)
	}
	if _, err := s.campaignRepo.GetByID(ctx, req.CampaignID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.InvalidInput("campaign_id", "campaign does not exist")
		}
		return nil, apperr.DatabaseError("get campaign", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	t, err := s.templateRepo.Create(ctx, &domain.ReplyTemplate{
		PoliticianID: req.PoliticianID,
		CampaignID:   req.CampaignID,
		Name:         strings.TrimSpace(req.Name),
		Subject:      strings.TrimSpace(req.Subject),
		Body:         req.Body,
		Active:       active,
	})
	if err != nil {
		return nil, apperr.DatabaseError("create reply template", err)
	}
	return t, nil
}
