package model

import (
	"testing"

	"logjam/internal/registry"
)

func TestProcessorTotalsForAndQuants(t *testing.T) {
	res := newTestResources(t)
	stream := &registry.StreamInfo{Key: "shop-production"}
	p := NewProcessor("logjam-shop-production-2026-07-31", stream, res)

	inc := p.TotalsFor("::Orders#index")
	inc.AddMetricByName("db_time", 120)
	p.IncrementRequestCount()
	p.AddModule("::Orders")

	idx, _ := res.Index("db_time")
	p.AddQuant(QuantKindTime, "::Orders#index", 200, idx)
	p.AddQuant(QuantKindTime, "::Orders#index", 200, idx)

	if p.RequestCount() != 1 {
		t.Fatalf("RequestCount() = %d, want 1", p.RequestCount())
	}
	if modules := p.Modules(); len(modules) != 1 || modules[0] != "::Orders" {
		t.Fatalf("Modules() = %v, want [::Orders]", modules)
	}

	var seen []QuantEntry
	p.ForEachQuant(func(e QuantEntry) { seen = append(seen, e) })
	if len(seen) != 1 {
		t.Fatalf("ForEachQuant visited %d entries, want 1", len(seen))
	}
	if seen[0].Counts[idx] != 2 {
		t.Fatalf("bucket count = %d, want 2", seen[0].Counts[idx])
	}

	// ForEachQuant drains the map.
	var seenAgain int
	p.ForEachQuant(func(QuantEntry) { seenAgain++ })
	if seenAgain != 0 {
		t.Fatalf("expected quants map to be drained after ForEachQuant")
	}

	var totalNamespaces int
	p.ForEachTotal(func(namespace string, inc *Increments) { totalNamespaces++ })
	if totalNamespaces != 1 {
		t.Fatalf("ForEachTotal visited %d namespaces, want 1", totalNamespaces)
	}
	_ = inc
}

func TestProcessorMergeCombinesState(t *testing.T) {
	res := newTestResources(t)
	stream := &registry.StreamInfo{Key: "shop-production"}
	a := NewProcessor("logjam-shop-production-2026-07-31", stream, res)
	b := NewProcessor("logjam-shop-production-2026-07-31", stream, res)

	a.TotalsFor("::Orders#index").BackendCount.Add(3)
	b.TotalsFor("::Orders#index").BackendCount.Add(4)
	a.IncrementRequestCount()
	b.IncrementRequestCount()
	b.AddModule("::Orders")

	idx, _ := res.Index("db_time")
	a.AddQuant(QuantKindTime, "::Orders#index", 200, idx)
	b.AddQuant(QuantKindTime, "::Orders#index", 200, idx)

	a.Merge(b)

	if a.RequestCount() != 2 {
		t.Fatalf("RequestCount() after merge = %d, want 2", a.RequestCount())
	}
	if modules := a.Modules(); len(modules) != 1 {
		t.Fatalf("Modules() after merge = %v, want 1 entry", modules)
	}

	snap := a.TotalsFor("::Orders#index").Commit()
	if snap.BackendCount != 7 {
		t.Fatalf("merged BackendCount = %v, want 7", snap.BackendCount)
	}

	var total uint64
	a.ForEachQuant(func(e QuantEntry) { total += e.Counts[idx] })
	if total != 2 {
		t.Fatalf("merged quant count = %d, want 2", total)
	}
}
