package politician

import (
	"context"
	"testing"

	"intake_server/core/domain"
	"intake_server/internal/memstore"
	"intake_server/pkg/apperr"
)

func TestService_ListPoliticians(t *testing.T) {
	store := memstore.New()
	store.AddPolitician(domain.Politician{Name: "A", Email: "a@gov.example", Active: true})
	store.AddPolitician(domain.Politician{Name: "B", Email: "b@gov.example", Active: false})
	store.AddPolitician(domain.Politician{Name: "C", Email: "c@gov.example", Active: true})
	svc := NewService(store)

	tests := []struct {
		name      string
		filter    *domain.PoliticianFilter
		wantLen   int
		wantTotal int
	}{
		{"nil filter defaults to active", nil, 2, 2},
		{"all", &domain.PoliticianFilter{}, 3, 3},
		{"paged", &domain.PoliticianFilter{ActiveOnly: true, Limit: 1}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := svc.ListPoliticians(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.wantLen || total != tt.wantTotal {
				t.Errorf("got %d items, total %d; want %d, %d", len(got), total, tt.wantLen, tt.wantTotal)
			}
		})
	}
}

func TestService_GetPolitician(t *testing.T) {
	store := memstore.New()
	p := store.AddPolitician(domain.Politician{Name: "A", Email: "a@gov.example", Active: true})
	svc := NewService(store)

	got, err := svc.GetPolitician(context.Background(), p.ID)
	if err != nil || got.Email != "a@gov.example" {
		t.Fatalf("GetPolitician = %+v, %v", got, err)
	}
	if _, err := svc.GetPolitician(context.Background(), -1); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v", err)
	}
}
