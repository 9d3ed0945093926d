package politician

import (
	"context"
	"errors"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/pkg/apperr"
)

type Service struct {
	politicianRepo out.PoliticianRepository
}

var _ in.PoliticianService = (*Service)(nil)

func NewService(politicianRepo out.PoliticianRepository) *Service {
	return &Service{politicianRepo: politicianRepo}
}

func (s *Service) ListPoliticians(ctx context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error) {
	if filter == nil {
		filter = &domain.PoliticianFilter{ActiveOnly: true}
	}
	politicians, total, err := s.politicianRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list politicians", err)
	}
	return politicians, total, nil
}

func (s *Service) GetPolitician(ctx context.Context, id int64) (*domain.Politician, error) {
	p, err := s.politicianRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperr.NotFound("politician")
	}
	if err != nil {
		return nil, apperr.DatabaseError("get politician", err)
	}
	return p, nil
}
