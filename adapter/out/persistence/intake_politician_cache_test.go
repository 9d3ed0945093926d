package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"intake_server/core/domain"
	"intake_server/internal/memstore"
	"intake_server/pkg/cache"
)

const cachePrefix = "test:"

func newCachedPoliticians(t *testing.T) (*CachedPoliticianAdapter, *memstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memstore.New()
	store.AddPolitician(domain.Politician{
		Name:             "Alice Martin",
		Email:            "alice@parl.eu",
		AdditionalEmails: []string{"office.alice@parl.eu"},
		Active:           true,
	})
	store.AddPolitician(domain.Politician{
		Name:   "Retired Member",
		Email:  "retired@parl.eu",
		Active: false,
	})

	adapter := NewCachedPoliticianAdapter(store, cache.NewRedisCache(client, cachePrefix), 10*time.Minute)
	return adapter, store, mr
}

func politicianID(p *domain.Politician) int64 {
	if p == nil {
		return 0
	}
	return p.ID
}

func TestCachedPoliticianAdapter_AgreesWithRepository(t *testing.T) {
	addresses := []string{
		"alice@parl.eu",
		"Alice@parl.eu",
		"ALICE@PARL.EU",
		"office.alice@parl.eu",
		"Office.Alice@parl.eu",
		"retired@parl.eu",
		"nobody@parl.eu",
	}
	reversed := make([]string, len(addresses))
	for i, a := range addresses {
		reversed[len(addresses)-1-i] = a
	}

	tests := []struct {
		name  string
		order []string
	}{
		{"lower case first", addresses},
		{"mixed case first", reversed},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, store, _ := newCachedPoliticians(t)

			// twice over, so the second pass is served from cache
			for pass := 0; pass < 2; pass++ {
				for _, addr := range tt.order {
					want, err := store.FindActiveByEmail(ctx, addr)
					if err != nil {
						t.Fatal(err)
					}
					got, err := adapter.FindActiveByEmail(ctx, addr)
					if err != nil {
						t.Fatal(err)
					}
					if politicianID(got) != politicianID(want) {
						t.Errorf("pass %d: FindActiveByEmail(%q) = %d, repository says %d", pass, addr, politicianID(got), politicianID(want))
					}

					want, err = store.FindActiveByAlias(ctx, addr)
					if err != nil {
						t.Fatal(err)
					}
					got, err = adapter.FindActiveByAlias(ctx, addr)
					if err != nil {
						t.Fatal(err)
					}
					if politicianID(got) != politicianID(want) {
						t.Errorf("pass %d: FindActiveByAlias(%q) = %d, repository says %d", pass, addr, politicianID(got), politicianID(want))
					}
				}
			}
		})
	}
}

func TestCachedPoliticianAdapter_HitSkipsRepository(t *testing.T) {
	adapter, store, mr := newCachedPoliticians(t)
	ctx := context.Background()

	first, err := adapter.FindActiveByEmail(ctx, "alice@parl.eu")
	if err != nil || first == nil {
		t.Fatalf("first lookup = %v, %v", first, err)
	}
	second, err := adapter.FindActiveByEmail(ctx, "alice@parl.eu")
	if err != nil || second == nil {
		t.Fatalf("second lookup = %v, %v", second, err)
	}

	if n := store.Calls(memstore.OpFindByEmail); n != 1 {
		t.Errorf("repository calls = %d, want 1", n)
	}
	if second.ID != first.ID || second.Name != "Alice Martin" {
		t.Errorf("cached politician = %+v", second)
	}
	if len(second.AdditionalEmails) != 1 || second.AdditionalEmails[0] != "office.alice@parl.eu" {
		t.Errorf("cached aliases = %v", second.AdditionalEmails)
	}

	ttl := mr.TTL(cachePrefix + politicianCacheKey("email", "alice@parl.eu"))
	if ttl <= negativeTTL || ttl > 10*time.Minute {
		t.Errorf("positive ttl = %v, want the configured 10m", ttl)
	}
}

func TestCachedPoliticianAdapter_NegativeCaching(t *testing.T) {
	adapter, store, mr := newCachedPoliticians(t)
	ctx := context.Background()
	addr := "newcomer@parl.eu"

	for i := 0; i < 3; i++ {
		p, err := adapter.FindActiveByEmail(ctx, addr)
		if err != nil || p != nil {
			t.Fatalf("lookup %d = %v, %v; want miss", i, p, err)
		}
	}
	if n := store.Calls(memstore.OpFindByEmail); n != 1 {
		t.Errorf("repository calls = %d, want 1", n)
	}

	key := cachePrefix + politicianCacheKey("email", addr)
	if ttl := mr.TTL(key); ttl <= 0 || ttl > negativeTTL {
		t.Errorf("negative ttl = %v, want within %v", ttl, negativeTTL)
	}

	store.AddPolitician(domain.Politician{Name: "Newcomer", Email: addr, Active: true})

	// still negative until the entry expires
	if p, _ := adapter.FindActiveByEmail(ctx, addr); p != nil {
		t.Errorf("expected cached miss before expiry, got %+v", p)
	}

	mr.FastForward(negativeTTL + time.Second)

	p, err := adapter.FindActiveByEmail(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Name != "Newcomer" {
		t.Errorf("after expiry = %+v, want Newcomer", p)
	}
}

func TestCachedPoliticianAdapter_CacheErrorFallsThrough(t *testing.T) {
	adapter, store, mr := newCachedPoliticians(t)
	ctx := context.Background()

	mr.SetError("LOADING redis is loading the dataset in memory")

	for i := 0; i < 2; i++ {
		p, err := adapter.FindActiveByEmail(ctx, "alice@parl.eu")
		if err != nil {
			t.Fatalf("lookup %d error = %v", i, err)
		}
		if p == nil || p.Email != "alice@parl.eu" {
			t.Fatalf("lookup %d = %+v", i, p)
		}
	}
	if n := store.Calls(memstore.OpFindByEmail); n != 2 {
		t.Errorf("repository calls = %d, want 2 while redis fails", n)
	}

	mr.SetError("")
	if _, err := adapter.FindActiveByEmail(ctx, "alice@parl.eu"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(cachePrefix + politicianCacheKey("email", "alice@parl.eu")) {
		t.Error("entry should be cached once redis recovers")
	}
}

func TestCachedPoliticianAdapter_RepositoryErrorNotCached(t *testing.T) {
	adapter, store, mr := newCachedPoliticians(t)
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	store.Fail(memstore.OpFindByAlias, dbErr)
	if _, err := adapter.FindActiveByAlias(ctx, "office.alice@parl.eu"); !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want %v", err, dbErr)
	}
	if mr.Exists(cachePrefix + politicianCacheKey("alias", "office.alice@parl.eu")) {
		t.Error("a failed lookup must not be cached")
	}

	store.Fail(memstore.OpFindByAlias, nil)
	p, err := adapter.FindActiveByAlias(ctx, "office.alice@parl.eu")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Email != "alice@parl.eu" {
		t.Errorf("alias lookup = %+v", p)
	}
}
