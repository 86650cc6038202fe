package relay

import (
	"sync"
	"testing"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

func TestFailureTracker_EvictsAtThreshold(t *testing.T) {
	ft := NewFailureTracker()
	hub := registration.Address{IP: "192.168.1.50", Port: 39500}

	for i := 1; i < EvictionThreshold; i++ {
		count, evict := ft.RecordFailure(hub)
		if count != i || evict {
			t.Fatalf("failure %d: RecordFailure() = (%d, %v), want (%d, false)", i, count, evict, i)
		}
	}

	count, evict := ft.RecordFailure(hub)
	if count != EvictionThreshold || !evict {
		t.Fatalf("RecordFailure() = (%d, %v), want (%d, true)", count, evict, EvictionThreshold)
	}
	if got := ft.Count(hub); got != 0 {
		t.Errorf("Count() after eviction = %d, want 0", got)
	}

	count, evict = ft.RecordFailure(hub)
	if count != 1 || evict {
		t.Errorf("RecordFailure() after eviction = (%d, %v), want (1, false)", count, evict)
	}
}

func TestFailureTracker_SuccessClears(t *testing.T) {
	ft := NewFailureTracker()
	hub := registration.Address{IP: "192.168.1.50", Port: 39500}

	ft.RecordFailure(hub)
	ft.RecordFailure(hub)
	ft.RecordSuccess(hub)

	if got := ft.Count(hub); got != 0 {
		t.Errorf("Count() after success = %d, want 0", got)
	}
	if _, evict := ft.RecordFailure(hub); evict {
		t.Error("RecordFailure() after success should not evict")
	}
}

func TestFailureTracker_PerAddress(t *testing.T) {
	ft := NewFailureTracker()
	a := registration.Address{IP: "192.168.1.50", Port: 39500}
	b := registration.Address{IP: "192.168.1.50", Port: 39501}

	ft.RecordFailure(a)
	ft.RecordFailure(a)
	ft.RecordFailure(b)

	snap := ft.Snapshot()
	if snap["192.168.1.50:39500"] != 2 {
		t.Errorf("Snapshot()[a] = %d, want 2", snap["192.168.1.50:39500"])
	}
	if snap["192.168.1.50:39501"] != 1 {
		t.Errorf("Snapshot()[b] = %d, want 1", snap["192.168.1.50:39501"])
	}
}

func TestFailureTracker_Concurrent(t *testing.T) {
	ft := NewFailureTracker()
	hub := registration.Address{IP: "10.0.0.1", Port: 80}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		evicts int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, evict := ft.RecordFailure(hub); evict {
				mu.Lock()
				evicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if evicts != 30/EvictionThreshold {
		t.Errorf("evictions = %d, want %d", evicts, 30/EvictionThreshold)
	}
}
