package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestLatencyTracker_Stats(t *testing.T) {
	lt := NewLatencyTracker(100)
	for i := 1; i <= 10; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	st := lt.Stats()
	if st.Count != 10 {
		t.Errorf("Count = %d, want 10", st.Count)
	}
	if st.Min != time.Millisecond || st.Max != 10*time.Millisecond {
		t.Errorf("Min/Max = %v/%v", st.Min, st.Max)
	}
	if st.P50 != 5*time.Millisecond {
		t.Errorf("P50 = %v, want 5ms", st.P50)
	}
}

func TestLatencyTracker_Window(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 0; i < 25; i++ {
		lt.Record(time.Millisecond)
	}
	if st := lt.Stats(); st.Count > 10 {
		t.Errorf("Count = %d, want <= 10", st.Count)
	}
}

func TestCounterSet_Concurrent(t *testing.T) {
	var cs CounterSet
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.Inc("email.processed")
		}()
	}
	wg.Wait()

	if got := cs.Get("email.processed"); got != 50 {
		t.Errorf("Get = %d, want 50", got)
	}
	if got := cs.Get("api.duplicate"); got != 0 {
		t.Errorf("unknown counter = %d, want 0", got)
	}
	if snap := cs.Snapshot(); snap["email.processed"] != 50 {
		t.Errorf("Snapshot = %v", snap)
	}
}
