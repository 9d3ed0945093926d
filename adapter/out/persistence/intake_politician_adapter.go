package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/out"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PoliticianAdapter implements out.PoliticianRepository using PostgreSQL.
type PoliticianAdapter struct {
	db *sqlx.DB
}

var _ out.PoliticianRepository = (*PoliticianAdapter)(nil)

func NewPoliticianAdapter(db *sqlx.DB) *PoliticianAdapter {
	return &PoliticianAdapter{db: db}
}

type politicianRow struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"`
	Email            string         `db:"email"`
	AdditionalEmails pq.StringArray `db:"additional_emails"`
	Party            sql.NullString `db:"party"`
	Country          sql.NullString `db:"country"`
	Region           sql.NullString `db:"region"`
	Position         sql.NullString `db:"position"`
	Active           bool           `db:"active"`
	CreatedAt        sql.NullTime   `db:"created_at"`
}

const politicianColumns = `id, name, email, additional_emails, party, country, region, position, active, created_at`

func (r *politicianRow) toDomain() *domain.Politician {
	return &domain.Politician{
		ID:               r.ID,
		Name:             r.Name,
		Email:            r.Email,
		AdditionalEmails: []string(r.AdditionalEmails),
		Party:            nullString(r.Party),
		Country:          nullString(r.Country),
		Region:           nullString(r.Region),
		Position:         nullString(r.Position),
		Active:           r.Active,
		CreatedAt:        nullTime(r.CreatedAt),
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}

func (a *PoliticianAdapter) findOne(ctx context.Context, query string, args ...any) (*domain.Politician, error) {
	var row politicianRow
	err := a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// FindActiveByEmail matches the primary address exactly.
func (a *PoliticianAdapter) FindActiveByEmail(ctx context.Context, email string) (*domain.Politician, error) {
	query := `SELECT ` + politicianColumns + `
		FROM politicians
		WHERE email = $1 AND active = true
		ORDER BY id
		LIMIT 1`

	p, err := a.findOne(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find politician by email: %w", err)
	}
	return p, nil
}

// FindActiveByAlias matches one of the additional addresses.
func (a *PoliticianAdapter) FindActiveByAlias(ctx context.Context, email string) (*domain.Politician, error) {
	query := `SELECT ` + politicianColumns + `
		FROM politicians
		WHERE $1 = ANY(additional_emails) AND active = true
		ORDER BY id
		LIMIT 1`

	p, err := a.findOne(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find politician by alias: %w", err)
	}
	return p, nil
}

func (a *PoliticianAdapter) GetByID(ctx context.Context, id int64) (*domain.Politician, error) {
	p, err := a.findOne(ctx, `SELECT `+politicianColumns+` FROM politicians WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get politician: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (a *PoliticianAdapter) List(ctx context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error) {
	if filter == nil {
		filter = &domain.PoliticianFilter{}
	}

	where := ""
	if filter.ActiveOnly {
		where = " WHERE active = true"
	}

	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM politicians`+where); err != nil {
		return nil, 0, fmt.Errorf("failed to count politicians: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + politicianColumns + ` FROM politicians` + where + ` ORDER BY id LIMIT $1 OFFSET $2`

	var rows []politicianRow
	if err := a.db.SelectContext(ctx, &rows, query, limit, filter.Offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list politicians: %w", err)
	}

	politicians := make([]*domain.Politician, 0, len(rows))
	for i := range rows {
		politicians = append(politicians, rows[i].toDomain())
	}
	return politicians, total, nil
}
