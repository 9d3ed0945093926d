package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/out"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// CampaignAdapter implements out.CampaignRepository. Relational reads go through
// sqlx; similarity search uses pgx for pgvector support.
type CampaignAdapter struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
}

var _ out.CampaignRepository = (*CampaignAdapter)(nil)

func NewCampaignAdapter(db *sqlx.DB, pool *pgxpool.Pool) *CampaignAdapter {
	return &CampaignAdapter{db: db, pool: pool}
}

type campaignRow struct {
	ID                 int64          `db:"id"`
	Name               string         `db:"name"`
	Slug               string         `db:"slug"`
	Description        sql.NullString `db:"description"`
	Status             string         `db:"status"`
	CreatedBy          sql.NullString `db:"created_by"`
	CreatedAt          sql.NullTime   `db:"created_at"`
	HasReferenceVector bool           `db:"has_reference_vector"`
}

const campaignColumns = `id, name, slug, description, status, created_by, created_at,
	(reference_vector IS NOT NULL) AS has_reference_vector`

const classifiable = `status IN ('active', 'unconfirmed')`

func (r *campaignRow) toDomain() *domain.Campaign {
	return &domain.Campaign{
		ID:                 r.ID,
		Name:               r.Name,
		Slug:               r.Slug,
		Description:        nullString(r.Description),
		Status:             domain.CampaignStatus(r.Status),
		CreatedBy:          nullString(r.CreatedBy),
		CreatedAt:          nullTime(r.CreatedAt),
		HasReferenceVector: r.HasReferenceVector,
	}
}

func (a *CampaignAdapter) findOne(ctx context.Context, query string, args ...any) (*domain.Campaign, error) {
	var row campaignRow
	err := a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// FindByHint does a case-insensitive substring match on name or slug.
func (a *CampaignAdapter) FindByHint(ctx context.Context, hint string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE (name ILIKE $1 OR slug ILIKE $1) AND ` + classifiable + `
		ORDER BY id
		LIMIT 1`

	c, err := a.findOne(ctx, query, containsPattern(hint))
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign by hint: %w", err)
	}
	return c, nil
}

// SearchSimilar ranks campaigns by cosine similarity of their reference vector.
func (a *CampaignAdapter) SearchSimilar(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.CampaignCandidate, error) {
	query := `
		SELECT id, name, slug, description, status, created_by, created_at,
			   1 - (reference_vector <=> $1::vector) AS similarity
		FROM campaigns
		WHERE reference_vector IS NOT NULL
		  AND ` + classifiable + `
		  AND 1 - (reference_vector <=> $1::vector) >= $2
		ORDER BY reference_vector <=> $1::vector, id
		LIMIT $3`

	rows, err := a.pool.Query(ctx, query, pgVector(embedding), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar campaigns: %w", err)
	}
	defer rows.Close()

	var results []domain.CampaignCandidate
	for rows.Next() {
		var (
			c           domain.Campaign
			status      string
			description *string
			createdBy   *string
			createdAt   *time.Time
			similarity  float64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &description, &status, &createdBy, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		c.Status = domain.CampaignStatus(status)
		c.Description = description
		c.CreatedBy = createdBy
		if createdAt != nil {
			c.CreatedAt = *createdAt
		}
		c.HasReferenceVector = true
		results = append(results, domain.CampaignCandidate{Campaign: c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similar campaigns: %w", err)
	}

	return results, nil
}

func (a *CampaignAdapter) ListWithReferenceVector(ctx context.Context, limit int) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE reference_vector IS NOT NULL AND ` + classifiable + `
		ORDER BY id
		LIMIT $1`

	var rows []campaignRow
	if err := a.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list campaigns with reference vector: %w", err)
	}
	return toCampaigns(rows), nil
}

func (a *CampaignAdapter) GetBySlug(ctx context.Context, slug string) (*domain.Campaign, error) {
	c, err := a.findOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE slug = $1`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign by slug: %w", err)
	}
	return c, nil
}

// GetOrCreate inserts the campaign unless its slug exists, then reads the row
// back. A concurrent insert of the same slug is absorbed by ON CONFLICT.
func (a *CampaignAdapter) GetOrCreate(ctx context.Context, nc *domain.NewCampaign) (*domain.Campaign, error) {
	existing, err := a.GetBySlug(ctx, nc.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	query := `
		INSERT INTO campaigns (name, slug, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO NOTHING`

	_, err = a.db.ExecContext(ctx, query, nc.Name, nc.Slug, nc.Description, string(nc.Status), nc.CreatedBy)
	if err != nil && !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create campaign %s: %w", nc.Slug, err)
	}

	created, err := a.GetBySlug(ctx, nc.Slug)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("campaign %s missing after insert", nc.Slug)
	}
	return created, nil
}

func (a *CampaignAdapter) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := a.findOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (a *CampaignAdapter) List(ctx context.Context, limit, offset int) ([]*domain.Campaign, int, error) {
	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaigns`); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	var rows []campaignRow
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY id LIMIT $1 OFFSET $2`
	if err := a.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return toCampaigns(rows), total, nil
}

func (a *CampaignAdapter) Create(ctx context.Context, nc *domain.NewCampaign) (*domain.Campaign, error) {
	query := `
		INSERT INTO campaigns (name, slug, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + campaignColumns

	var row campaignRow
	err := a.db.QueryRowxContext(ctx, query, nc.Name, nc.Slug, nc.Description, string(nc.Status), nc.CreatedBy).StructScan(&row)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return row.toDomain(), nil
}

type campaignStatsRow struct {
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	Slug          string  `db:"slug"`
	Status        string  `db:"status"`
	MessageCount  int64   `db:"message_count"`
	RecentCount   int64   `db:"recent_count"`
	AvgConfidence float64 `db:"avg_confidence"`
}

// Stats aggregates message counts per campaign. Messages received at or after
// recentSince count as recent.
func (a *CampaignAdapter) Stats(ctx context.Context, recentSince time.Time) ([]*domain.CampaignStats, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.status,
			   COUNT(m.id) AS message_count,
			   COUNT(m.id) FILTER (WHERE m.received_at >= $1) AS recent_count,
			   COALESCE(AVG(m.classification_confidence), 0)::float8 AS avg_confidence
		FROM campaigns c
		LEFT JOIN messages m ON m.campaign_id = c.id
		GROUP BY c.id, c.name, c.slug, c.status
		ORDER BY c.id`

	var rows []campaignStatsRow
	if err := a.db.SelectContext(ctx, &rows, query, recentSince); err != nil {
		return nil, fmt.Errorf("failed to load campaign stats: %w", err)
	}

	stats := make([]*domain.CampaignStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, &domain.CampaignStats{
			CampaignID:    r.ID,
			Name:          r.Name,
			Slug:          r.Slug,
			Status:        r.Status,
			MessageCount:  r.MessageCount,
			RecentCount:   r.RecentCount,
			AvgConfidence: r.AvgConfidence,
		})
	}
	return stats, nil
}

func toCampaigns(rows []campaignRow) []*domain.Campaign {
	campaigns := make([]*domain.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, rows[i].toDomain())
	}
	return campaigns
}
