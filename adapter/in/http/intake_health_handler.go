package http

import (
	"context"
	"time"

	"intake_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// RedisChecker pings a redis client.
func RedisChecker(client *redis.Client) HealthChecker {
	return HealthCheckFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

type HealthHandler struct {
	checks map[string]HealthChecker
	pool   *pgxpool.Pool
	sqlDB  *sqlx.DB
}

// NewHealthHandler builds the health, readiness and metrics endpoints. Nil
// dependencies are reported as "not configured".
func NewHealthHandler(pool *pgxpool.Pool, sqlDB *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	h := &HealthHandler{checks: make(map[string]HealthChecker), pool: pool, sqlDB: sqlDB}
	if pool != nil {
		h.checks["postgres"] = pool
	}
	if redisClient != nil {
		h.checks["redis"] = RedisChecker(redisClient)
	}
	return h
}

// WithCheck adds or replaces a named readiness check.
func (h *HealthHandler) WithCheck(name string, check HealthChecker) *HealthHandler {
	h.checks[name] = check
	return h
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/metrics", h.Metrics)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"postgres": "not configured",
		"redis":    "not configured",
	}
	allHealthy := true

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics reports pipeline latencies, outcome counters and pool usage.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	latency := make(map[string]any)
	for name, st := range metrics.GlobalRegistry().AllStats() {
		latency[name] = st.ToMap()
	}

	pools := make(map[string]any)
	if h.pool != nil {
		pools["pgx"] = metrics.PgxPoolStats(h.pool)
	}
	if h.sqlDB != nil {
		pools["sql"] = metrics.SQLPoolStats(h.sqlDB.DB)
	}

	return c.JSON(fiber.Map{
		"latency":   latency,
		"outcomes":  metrics.Outcomes().Snapshot(),
		"pools":     pools,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
