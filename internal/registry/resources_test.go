package registry

import "testing"

func TestNewResourcesIndexingAndCache(t *testing.T) {
	r, err := NewResources(map[Family][]string{
		FamilyTime:   {"total_time", "db_time", "gc_time"},
		FamilyMemory: {"allocated_bytes"},
		FamilyHeap:   {"allocated_objects"},
	})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	if r.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", r.Len())
	}
	idx, ok := r.Index("db_time")
	if !ok || idx != 1 {
		t.Fatalf("Index(db_time) = (%d, %v), want (1, true)", idx, ok)
	}
	if r.Name(idx) != "db_time" {
		t.Fatalf("Name(%d) = %q, want db_time", idx, r.Name(idx))
	}
	if r.AllocatedObjectsIndex() < 0 {
		t.Fatalf("expected allocated_objects index to be cached")
	}
	if r.AllocatedBytesIndex() < 0 {
		t.Fatalf("expected allocated_bytes index to be cached")
	}
	if SumOfSquaresName("db_time") != "db_time_sq" {
		t.Fatalf("SumOfSquaresName mismatch")
	}
}

func TestOtherTimeResourcesExcludesReserved(t *testing.T) {
	r, err := NewResources(map[Family][]string{
		FamilyTime: {"total_time", "db_time", "view_time", "gc_time", "other_time"},
	})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	for _, excluded := range []string{"total_time", "gc_time", "other_time"} {
		if r.IsOtherTimeResource(excluded) {
			t.Fatalf("%q should not be in other_time_resources", excluded)
		}
	}
	for _, included := range []string{"db_time", "view_time"} {
		if !r.IsOtherTimeResource(included) {
			t.Fatalf("%q should be in other_time_resources", included)
		}
	}
}

func TestNewResourcesCardinalityCap(t *testing.T) {
	names := make([]string, MaxResources+1)
	for i := range names {
		names[i] = "r" + string(rune('a'+i%26)) + string(rune('0'+i%10))
	}
	_, err := NewResources(map[Family][]string{FamilyTime: names})
	if err == nil {
		t.Fatalf("expected error exceeding cardinality cap")
	}
}

func TestMissingAllocatedIndicesAreMinusOne(t *testing.T) {
	r, err := NewResources(map[Family][]string{FamilyTime: {"total_time"}})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	if r.AllocatedObjectsIndex() != -1 {
		t.Fatalf("expected -1 for absent allocated_objects")
	}
	if r.AllocatedBytesIndex() != -1 {
		t.Fatalf("expected -1 for absent allocated_bytes")
	}
}
