package model

import (
	"testing"

	"logjam/internal/registry"
)

func newTestResources(t *testing.T) *registry.Resources {
	t.Helper()
	r, err := registry.NewResources(map[registry.Family][]string{
		registry.FamilyTime:   {"total_time", "db_time", "view_time", "gc_time", "other_time"},
		registry.FamilyMemory: {"allocated_bytes"},
		registry.FamilyHeap:   {"allocated_objects"},
	})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	return r
}

func TestIncrementsCommitClampsNegativeSums(t *testing.T) {
	res := newTestResources(t)
	inc := NewIncrements(res)

	inc.AddMetricByName("db_time", 50)
	inc.AddMetricByName("db_time", -100)
	inc.BackendCount.Add(1)
	inc.AddOther("response.200", 1)

	snap := inc.Commit()
	idx, _ := res.Index("db_time")
	if snap.Sums[idx] != 0 {
		t.Fatalf("db_time sum = %v, want 0 (clamped)", snap.Sums[idx])
	}
	if snap.BackendCount != 1 {
		t.Fatalf("BackendCount = %v, want 1", snap.BackendCount)
	}
	if snap.Others["response.200"] != 1 {
		t.Fatalf("others[response.200] = %v, want 1", snap.Others["response.200"])
	}
}

func TestIncrementsIsZeroDoesNotResetState(t *testing.T) {
	res := newTestResources(t)
	inc := NewIncrements(res)

	if !inc.IsZero() {
		t.Fatalf("fresh Increments should be zero")
	}
	inc.AddMetricByName("db_time", 10)
	if inc.IsZero() {
		t.Fatalf("Increments with pending metric should not be zero")
	}
	if inc.IsZero() {
		t.Fatalf("IsZero should be idempotent, not consume state")
	}
	snap := inc.Commit()
	idx, _ := res.Index("db_time")
	if snap.Sums[idx] != 10 {
		t.Fatalf("expected state to survive repeated IsZero calls, got sum=%v", snap.Sums[idx])
	}
}

func TestIncrementsPeekDoesNotResetState(t *testing.T) {
	res := newTestResources(t)
	inc := NewIncrements(res)

	inc.AddMetricByName("db_time", 50)
	inc.BackendCount.Add(3)
	inc.AddOther("response.200", 2)

	first := inc.Peek()
	idx, _ := res.Index("db_time")
	if first.Sums[idx] != 50 || first.BackendCount != 3 || first.Others["response.200"] != 2 {
		t.Fatalf("unexpected first Peek result: %+v", first)
	}

	// A second Peek must see the same state: nothing was drained.
	second := inc.Peek()
	if second.Sums[idx] != 50 || second.BackendCount != 3 || second.Others["response.200"] != 2 {
		t.Fatalf("Peek must not reset state, second call got: %+v", second)
	}

	// The eventual real drain (Commit, as done once by the stats-updater)
	// must still observe the full delta after any number of Peeks.
	committed := inc.Commit()
	if committed.Sums[idx] != 50 || committed.BackendCount != 3 || committed.Others["response.200"] != 2 {
		t.Fatalf("Commit after Peek(s) lost state, got: %+v", committed)
	}
	if !inc.IsZero() {
		t.Fatalf("expected Increments to be zero only after the real Commit, not after Peek")
	}
}

func TestIncrementsAddMetricUnknownResourceIsNoop(t *testing.T) {
	res := newTestResources(t)
	inc := NewIncrements(res)
	inc.AddMetricByName("not_a_real_resource", 42)
	if !inc.IsZero() {
		t.Fatalf("adding to an unknown resource must be a no-op")
	}
}
