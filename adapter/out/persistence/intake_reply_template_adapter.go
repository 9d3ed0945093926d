package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"intake_server/core/domain"
	"intake_server/core/port/out"

	"github.com/jmoiron/sqlx"
)

// ReplyTemplateAdapter implements out.ReplyTemplateRepository using PostgreSQL.
type ReplyTemplateAdapter struct {
	db *sqlx.DB
}

var _ out.ReplyTemplateRepository = (*ReplyTemplateAdapter)(nil)

func NewReplyTemplateAdapter(db *sqlx.DB) *ReplyTemplateAdapter {
	return &ReplyTemplateAdapter{db: db}
}

type replyTemplateRow struct {
	ID           int64        `db:"id"`
	PoliticianID int64        `db:"politician_id"`
	CampaignID   int64        `db:"campaign_id"`
	Name         string       `db:"name"`
	Subject      string       `db:"subject"`
	Body         string       `db:"body"`
	Active       bool         `db:"active"`
	CreatedAt    sql.NullTime `db:"created_at"`
}

const replyTemplateColumns = `id, politician_id, campaign_id, name, subject, body, active, created_at`

func (r *replyTemplateRow) toDomain() *domain.ReplyTemplate {
	return &domain.ReplyTemplate{
		ID:           r.ID,
		PoliticianID: r.PoliticianID,
		CampaignID:   r.CampaignID,
		Name:         r.Name,
		Subject:      r.Subject,
		Body:         r.Body,
		Active:       r.Active,
		CreatedAt:    nullTime(r.CreatedAt),
	}
}

func (a *ReplyTemplateAdapter) GetByID(ctx context.Context, id int64) (*domain.ReplyTemplate, error) {
	var row replyTemplateRow
	err := a.db.GetContext(ctx, &row, `SELECT `+replyTemplateColumns+` FROM reply_templates WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reply template: %w", err)
	}
	return row.toDomain(), nil
}

func (a *ReplyTemplateAdapter) List(ctx context.Context, filter *domain.ReplyTemplateFilter) ([]*domain.ReplyTemplate, int, error) {
	if filter == nil {
		filter = &domain.ReplyTemplateFilter{}
	}

	var (
		conditions []string
		args       []any
	)
	if filter.PoliticianID != nil {
		args = append(args, *filter.PoliticianID)
		conditions = append(conditions, fmt.Sprintf("politician_id = $%d", len(args)))
	}
	if filter.CampaignID != nil {
		args = append(args, *filter.CampaignID)
		conditions = append(conditions, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = true")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reply_templates`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reply templates: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM reply_templates%s ORDER BY id LIMIT $%d OFFSET $%d`,
		replyTemplateColumns, where, len(args)-1, len(args))

	var rows []replyTemplateRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list reply templates: %w", err)
	}

	templates := make([]*domain.ReplyTemplate, 0, len(rows))
	for i := range rows {
		templates = append(templates, rows[i].toDomain())
	}
	return templates, total, nil
}

func (a *ReplyTemplateAdapter) Create(ctx context.Context, t *domain.ReplyTemplate) (*domain.ReplyTemplate, error) {
	query := `
		INSERT INTO reply_templates (politician_id, campaign_id, name, subject, body, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + replyTemplateColumns

	var row replyTemplateRow
	err := a.db.QueryRowxContext(ctx, query,
		t.PoliticianID, t.CampaignID, t.Name, t.Subject, t.Body, t.Active,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply template: %w", err)
	}
	return row.toDomain(), nil
}
