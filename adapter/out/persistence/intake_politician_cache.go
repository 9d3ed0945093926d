package persistence

import (
	"context"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/pkg/cache"
)

// negativeTTL bounds how long an unknown recipient address stays cached.
const negativeTTL = time.Minute

// CachedPoliticianAdapter wraps a PoliticianRepository with a Redis
// read-through cache for address lookups.
type CachedPoliticianAdapter struct {
	delegate out.PoliticianRepository
	cache    *cache.RedisCache
	ttl      time.Duration
}

var _ out.PoliticianRepository = (*CachedPoliticianAdapter)(nil)

func NewCachedPoliticianAdapter(delegate out.PoliticianRepository, redisCache *cache.RedisCache, ttl time.Duration) *CachedPoliticianAdapter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedPoliticianAdapter{delegate: delegate, cache: redisCache, ttl: ttl}
}

// politicianCacheKey keeps the address as given; the repository lookups are
// case-sensitive and the cache must answer exactly as they would.
func politicianCacheKey(kind, email string) string {
	return "politician:" + kind + ":" + email
}

func (a *CachedPoliticianAdapter) FindActiveByEmail(ctx context.Context, email string) (*domain.Politician, error) {
	return a.lookup(ctx, politicianCacheKey("email", email), func() (*domain.Politician, error) {
		return a.delegate.FindActiveByEmail(ctx, email)
	})
}

func (a *CachedPoliticianAdapter) FindActiveByAlias(ctx context.Context, email string) (*domain.Politician, error) {
	return a.lookup(ctx, politicianCacheKey("alias", email), func() (*domain.Politician, error) {
		return a.delegate.FindActiveByAlias(ctx, email)
	})
}

// lookup serves key from cache, falling back to load. Misses are cached as a
// zero politician so repeated unknown addresses skip the database.
func (a *CachedPoliticianAdapter) lookup(ctx context.Context, key string, load func() (*domain.Politician, error)) (*domain.Politician, error) {
	var cached domain.Politician
	if found, err := a.cache.GetJSON(ctx, key, &cached); err == nil && found {
		if cached.ID == 0 {
			return nil, nil
		}
		return &cached, nil
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	if p != nil {
		_ = a.cache.SetJSON(ctx, key, p, a.ttl)
	} else {
		_ = a.cache.SetJSON(ctx, key, &domain.Politician{}, negativeTTL)
	}
	return p, nil
}

func (a *CachedPoliticianAdapter) GetByID(ctx context.Context, id int64) (*domain.Politician, error) {
	return a.delegate.GetByID(ctx, id)
}

func (a *CachedPoliticianAdapter) List(ctx context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error) {
	return a.delegate.List(ctx, filter)
}
