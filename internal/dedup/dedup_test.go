package dedup

import (
	"context"
	"testing"
	"time"
)

type fakeEvaler struct {
	seen map[string]bool
}

func newFakeEvaler() *fakeEvaler {
	return &fakeEvaler{seen: make(map[string]bool)}
}

// Eval fakes the SETNX-then-EXPIRE script: first call for a key returns
// 1, subsequent calls return 0.
func (f *fakeEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	key := keys[0]
	if f.seen[key] {
		return int64(0), nil
	}
	f.seen[key] = true
	return int64(1), nil
}

func TestFirstDeliveryTrueOnce(t *testing.T) {
	m := NewMarker(newFakeEvaler(), time.Hour)
	ctx := context.Background()

	first, err := m.FirstDelivery(ctx, "logjam-shop-production-2026-07-31", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatalf("expected first delivery to report true")
	}

	second, err := m.FirstDelivery(ctx, "logjam-shop-production-2026-07-31", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Fatalf("expected redelivery to report false")
	}
}

func TestFirstDeliveryDistinctKeysIndependent(t *testing.T) {
	m := NewMarker(newFakeEvaler(), time.Hour)
	ctx := context.Background()

	a, _ := m.FirstDelivery(ctx, "db", "req-a")
	b, _ := m.FirstDelivery(ctx, "db", "req-b")
	if !a || !b {
		t.Fatalf("expected distinct request ids to both be first delivery, got a=%v b=%v", a, b)
	}
}

func TestRequestMarkerKeyNamespacesByDB(t *testing.T) {
	k1 := RequestMarkerKey("db1", "req")
	k2 := RequestMarkerKey("db2", "req")
	if k1 == k2 {
		t.Fatalf("expected different db names to produce different marker keys")
	}
}
