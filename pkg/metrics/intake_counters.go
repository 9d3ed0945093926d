package metrics

import (
	"database/sql"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterSet is a set of named monotonically increasing counters.
type CounterSet struct {
	counters sync.Map // string -> *atomic.Int64
}

// Inc increments the named counter.
func (s *CounterSet) Inc(name string) {
	v, _ := s.counters.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// Get returns the current value of the named counter.
func (s *CounterSet) Get(name string) int64 {
	v, ok := s.counters.Load(name)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Snapshot returns all counters with sorted keys.
func (s *CounterSet) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	var keys []string
	s.counters.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = s.Get(k)
	}
	return out
}

var outcomes CounterSet

// Outcomes returns the process-wide outcome counters, keyed "<channel>.<status>".
func Outcomes() *CounterSet {
	return &outcomes
}

// SQLPoolStats summarises a database/sql pool.
func SQLPoolStats(db *sql.DB) map[string]any {
	if db == nil {
		return nil
	}
	st := db.Stats()
	return map[string]any{
		"open_connections": st.OpenConnections,
		"in_use":           st.InUse,
		"idle":             st.Idle,
		"wait_count":       st.WaitCount,
		"wait_duration_ms": st.WaitDuration.Milliseconds(),
	}
}

// PgxPoolStats summarises a pgx pool.
func PgxPoolStats(pool *pgxpool.Pool) map[string]any {
	if pool == nil {
		return nil
	}
	st := pool.Stat()
	return map[string]any{
		"total_conns":    st.TotalConns(),
		"acquired_conns": st.AcquiredConns(),
		"idle_conns":     st.IdleConns(),
		"max_conns":      st.MaxConns(),
		"acquire_count":  st.AcquireCount(),
	}
}
