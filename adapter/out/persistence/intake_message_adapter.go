package persistence

import (
	"context"
	"fmt"
	"strconv"

	"intake_server/core/domain"
	"intake_server/core/port/out"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// MessageAdapter implements out.MessageRepository. Inserts go through pgx so
// the embedding can be bound as a pgvector literal.
type MessageAdapter struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
}

var _ out.MessageRepository = (*MessageAdapter)(nil)

func NewMessageAdapter(db *sqlx.DB, pool *pgxpool.Pool) *MessageAdapter {
	return &MessageAdapter{db: db, pool: pool}
}

func (a *MessageAdapter) ExistsByExternalID(ctx context.Context, externalID, channelSource string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM messages WHERE external_id = $1 AND channel_source = $2
	)`

	var exists bool
	if err := a.db.GetContext(ctx, &exists, query, externalID, channelSource); err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return exists, nil
}

func (a *MessageAdapter) CountBySender(ctx context.Context, sender domain.SenderIdentity, politicianID, campaignID int64) (int, error) {
	query := `SELECT COUNT(*) FROM messages
		WHERE sender_hash = $1 AND politician_id = $2 AND campaign_id = $3`

	var count int
	if err := a.db.GetContext(ctx, &count, query, string(sender), politicianID, campaignID); err != nil {
		return 0, fmt.Errorf("failed to count sender messages: %w", err)
	}
	return count, nil
}

// Create inserts the message and returns its id. A clash on the
// (external_id, channel_source, politician_id) index wraps domain.ErrDuplicate.
func (a *MessageAdapter) Create(ctx context.Context, msg *domain.StoredMessage) (int64, error) {
	query := `
		INSERT INTO messages (
			external_id, channel, channel_source, politician_id, sender_hash,
			campaign_id, classification_confidence, message_embedding, language,
			received_at, duplicate_rank, processing_status
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8::vector, $9,
			$10, $11, $12
		)
		RETURNING id`

	var id int64
	err := a.pool.QueryRow(ctx, query,
		msg.ExternalID,
		string(msg.Channel),
		msg.ChannelSource,
		msg.PoliticianID,
		string(msg.SenderHash),
		msg.CampaignID,
		msg.Confidence,
		pgVector(msg.Embedding),
		msg.Language,
		msg.ReceivedAt,
		msg.DuplicateRank,
		string(msg.ProcessingStatus),
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("message %s: %w", msg.ExternalID, domain.ErrDuplicate)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}

// pgVector formats v as a pgvector text literal.
func pgVector(v []float32) string {
	if len(v) == 0 {
		return "[0]"
	}

	buf := make([]byte, 0, len(v)*12+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}
