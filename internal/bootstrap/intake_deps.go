package bootstrap

import (
	"context"
	"fmt"

	"intake_server/adapter/out/embedding"
	"intake_server/adapter/out/messaging"
	"intake_server/adapter/out/persistence"
	"intake_server/config"
	"intake_server/core/port/out"
	"intake_server/core/service/campaign"
	"intake_server/core/service/classification"
	"intake_server/core/service/dedup"
	"intake_server/core/service/ingestion"
	"intake_server/core/service/mailhook"
	"intake_server/core/service/politician"
	"intake_server/core/service/recipient"
	templatesvc "intake_server/core/service/template"
	"intake_server/infra/database"
	"intake_server/internal/memstore"
	"intake_server/pkg/cache"
	"intake_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies holds every wired component of the server.
type Dependencies struct {
	Config *config.Config
	Log    *logger.Logger

	// Infrastructure. DB and SQLDB are nil in standalone mode, Redis is nil
	// when REDIS_URL is unset or unreachable.
	DB    *pgxpool.Pool
	SQLDB *sqlx.DB
	Redis *redis.Client

	Politicians out.PoliticianRepository
	Campaigns   out.CampaignRepository
	Messages    out.MessageRepository
	Templates   out.ReplyTemplateRepository
	Embedder    out.Embedder
	Events      out.EventPublisher

	Classifier        *classification.Classifier
	Detector          *dedup.Detector
	Ingestion         *ingestion.Orchestrator
	MailHook          *mailhook.Aggregator
	CampaignService   *campaign.Service
	PoliticianService *politician.Service
	TemplateService   *templatesvc.Service
}

// NewDependencies connects to Postgres (and Redis when configured) and wires
// the pipeline on top of the SQL adapters.
func NewDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Dependencies, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}

	deps := &Dependencies{Config: cfg, Log: log}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	pool, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = pool
	cleanups = append(cleanups, pool.Close)

	sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseURL, nil)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { _ = sqlDB.Close() })
	log.Info("postgres connected (pgx pool max=%d)", pool.Config().MaxConns)

	cleanups = append(cleanups, deps.connectRedis(ctx)...)

	var politicians out.PoliticianRepository = persistence.NewPoliticianAdapter(sqlDB)
	if deps.Redis != nil {
		politicians = persistence.NewCachedPoliticianAdapter(
			politicians,
			cache.NewRedisCache(deps.Redis, "intake"),
			cfg.PoliticianCacheTTL(),
		)
	}
	deps.Politicians = politicians
	deps.Campaigns = persistence.NewCampaignAdapter(sqlDB, pool)
	deps.Messages = persistence.NewMessageAdapter(sqlDB, pool)
	deps.Templates = persistence.NewReplyTemplateAdapter(sqlDB)

	deps.wire()
	return deps, cleanup, nil
}

// NewStandaloneDependencies wires the pipeline on an in-memory store. Nothing
// survives a restart; it exists for local runs without Postgres.
func NewStandaloneDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger, store *memstore.Store) (*Dependencies, func(), error) {
	if store == nil {
		store = memstore.New()
	}
	deps := &Dependencies{Config: cfg, Log: log}
	cleanups := deps.connectRedis(ctx)

	deps.Politicians = store
	deps.Campaigns = store.Campaigns()
	deps.Messages = store.MessageStore()
	deps.Templates = store.Templates()

	deps.wire()
	log.Warn("running standalone: data is kept in memory only")

	return deps, func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}, nil
}

func (d *Dependencies) connectRedis(ctx context.Context) []func() {
	if d.Config.RedisURL == "" {
		d.Log.Info("REDIS_URL not set: politician cache and events disabled")
		return nil
	}
	client, err := database.NewRedis(ctx, d.Config.RedisURL)
	if err != nil {
		d.Log.WithError(err).Warn("redis unavailable: politician cache and events disabled")
		return nil
	}
	d.Redis = client
	return []func(){func() { _ = client.Close() }}
}

// wire builds the services once the repositories are set.
func (d *Dependencies) wire() {
	cfg := d.Config

	d.Embedder = embedding.NewClient(embedding.Config{
		APIKey:  cfg.EmbeddingAPIKey,
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModel,
		Timeout: cfg.EmbeddingTimeout(),
	}, d.Log.WithField("component", "embedding"))

	if d.Redis != nil {
		d.Events = messaging.NewRedisProducer(d.Redis, cfg.EventsStream)
	}

	d.Classifier = classification.NewClassifier(d.Campaigns, classification.DefaultConfig(), d.Log.WithField("component", "classifier"))
	d.Detector = dedup.NewDetector(d.Messages, d.Log.WithField("component", "dedup"))

	ingestCfg := ingestion.DefaultConfig()
	if cfg.EmbeddingMaxChars > 0 {
		ingestCfg.MaxEmbedChars = cfg.EmbeddingMaxChars
	}
	d.Ingestion = ingestion.NewOrchestrator(ingestion.Deps{
		Detector:   d.Detector,
		Resolver:   recipient.NewResolver(d.Politicians, d.Log.WithField("component", "recipient")),
		Embedder:   d.Embedder,
		Classifier: d.Classifier,
		Messages:   d.Messages,
		Events:     d.Events,
	}, ingestCfg, d.Log.WithField("component", "ingestion"))

	hookCfg := mailhook.DefaultConfig()
	if cfg.HookMaxConcurrency > 0 {
		hookCfg.MaxConcurrency = cfg.HookMaxConcurrency
	}
	d.MailHook = mailhook.NewAggregator(d.Ingestion, d.Detector, hookCfg, d.Log.WithField("component", "mailhook"))

	d.CampaignService = campaign.NewService(d.Campaigns)
	d.PoliticianService = politician.NewService(d.Politicians)
	d.TemplateService = templatesvc.NewService(d.Templates, d.Politicians, d.Campaigns)
}

// HealthCheck pings Postgres and Redis when they are configured.
func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.DB != nil {
		if err := d.DB.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
