package cli

import (
	"context"
	"fmt"
	"time"

	"intake_server/infra/database"

	"github.com/spf13/cobra"
)

// schemaSQL is idempotent; running it twice is a no-op.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS politicians (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL,
	additional_emails TEXT[] NOT NULL DEFAULT '{}',
	party             TEXT,
	country           TEXT,
	region            TEXT,
	position          TEXT,
	active            BOOLEAN NOT NULL DEFAULT true,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS politicians_email_idx ON politicians (lower(email));
CREATE INDEX IF NOT EXISTS politicians_additional_emails_idx ON politicians USING GIN (additional_emails);

CREATE TABLE IF NOT EXISTS campaigns (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	slug             TEXT NOT NULL UNIQUE,
	description      TEXT,
	status           TEXT NOT NULL DEFAULT 'active',
	created_by       TEXT,
	reference_vector vector(1024),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS campaigns_reference_vector_idx
	ON campaigns USING hnsw (reference_vector vector_cosine_ops);

CREATE TABLE IF NOT EXISTS messages (
	id                        BIGSERIAL PRIMARY KEY,
	external_id               TEXT NOT NULL,
	channel                   TEXT NOT NULL,
	channel_source            TEXT NOT NULL,
	politician_id             BIGINT NOT NULL REFERENCES politicians (id),
	sender_hash               CHAR(64) NOT NULL,
	campaign_id               BIGINT NOT NULL REFERENCES campaigns (id),
	classification_confidence DOUBLE PRECISION NOT NULL,
	message_embedding         vector(1024),
	language                  TEXT,
	received_at               TIMESTAMPTZ NOT NULL,
	duplicate_rank            INTEGER NOT NULL DEFAULT 0,
	processing_status         TEXT NOT NULL DEFAULT 'processed',
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (external_id, channel_source, politician_id)
);
CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_hash, politician_id, campaign_id);
CREATE INDEX IF NOT EXISTS messages_campaign_received_idx ON messages (campaign_id, received_at);

CREATE TABLE IF NOT EXISTS reply_templates (
	id            BIGSERIAL PRIMARY KEY,
	politician_id BIGINT NOT NULL REFERENCES politicians (id),
	campaign_id   BIGINT NOT NULL REFERENCES campaigns (id),
	name          TEXT NOT NULL,
	subject       TEXT NOT NULL,
	body          TEXT NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reply_templates_lookup_idx ON reply_templates (politician_id, campaign_id);
`

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Create the pgvector extension and the politicians, campaigns, messages
and reply_templates tables with their indexes. Existing objects are left
untouched. Use --print to write the SQL to stdout instead of executing it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migratePrint {
			_, err := fmt.Fprint(cmd.OutOrStdout(), schemaSQL)
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "Print the schema SQL instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}
