package bot

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPendingPutPop(t *testing.T) {
	p := NewPending[int, string]()
	p.Put(5, "card")
	if !p.Has(5) || p.Len() != 1 {
		t.Fatalf("Has=%v Len=%d after Put", p.Has(5), p.Len())
	}
	v, ok := p.Pop(5)
	if !ok || v != "card" {
		t.Fatalf("Pop = %q, %v", v, ok)
	}
	if _, ok := p.Pop(5); ok {
		t.Fatal("second Pop succeeded")
	}
}

func TestPendingPopExclusiveUnderRace(t *testing.T) {
	p := NewPending[int, struct{}]()
	p.Put(42, struct{}{})

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.Pop(42); ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d claimants won, want exactly 1", wins)
	}
	if p.Len() != 0 {
		t.Errorf("registry not empty after race: %d", p.Len())
	}
}

func TestPendingSnapshotIsCopy(t *testing.T) {
	p := NewPending[int64, string]()
	p.Put(1, "a")
	snap := p.Snapshot()
	delete(snap, 1)
	if !p.Has(1) {
		t.Fatal("mutating the snapshot reached the registry")
	}
}
