package parse

import (
	"testing"

	"logjam/internal/model"
	"logjam/internal/registry"
)

func testResources(t *testing.T) *registry.Resources {
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

func TestSetupPageNormalization(t *testing.T) {
	cases := map[string]string{
		"Orders#show": "Orders#show",
		"Orders":      "Orders#unknown_method",
		"Orders#":     "Orders#unknown_method",
	}
	for in, want := range cases {
		raw := map[string]interface{}{"action": in}
		got := setupPage(raw)
		if got != want {
			t.Fatalf("setupPage(%q) = %q, want %q", in, got, want)
		}
		if raw["page"] != want {
			t.Fatalf("expected page stored on raw map, got %v", raw["page"])
		}
		if _, ok := raw["action"]; ok {
			t.Fatalf("expected action key to be removed")
		}
	}
}

func TestSetupPageMissingAction(t *testing.T) {
	raw := map[string]interface{}{}
	if got := setupPage(raw); got != "Unknown#unknown_method" {
		t.Fatalf("setupPage with no action = %q, want Unknown#unknown_method", got)
	}
}

func TestSetupModule(t *testing.T) {
	cases := map[string]string{
		"Orders#show":         "::Orders",
		"Shop::Orders#show":   "::Shop",
		"#show":                "::",
		"NoSeparator":         "::",
	}
	for in, want := range cases {
		if got := setupModule(in); got != want {
			t.Fatalf("setupModule(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetupResponseCodeDefault(t *testing.T) {
	raw := map[string]interface{}{}
	if got := setupResponseCode(raw); got != 500 {
		t.Fatalf("setupResponseCode default = %d, want 500", got)
	}
	raw2 := map[string]interface{}{"code": float64(200)}
	if got := setupResponseCode(raw2); got != 200 {
		t.Fatalf("setupResponseCode(200) = %d, want 200", got)
	}
	if _, ok := raw2["code"]; ok {
		t.Fatalf("expected code key removed")
	}
}

func TestSetupSeverityFromLines(t *testing.T) {
	raw := map[string]interface{}{
		"lines": []interface{}{
			[]interface{}{float64(4), "x", "disk full"},
			[]interface{}{float64(2), "y", "low mem"},
		},
	}
	if got := setupSeverity(raw); got != 4 {
		t.Fatalf("setupSeverity = %d, want 4", got)
	}
}

func TestSetupSeverityDefaultsToOne(t *testing.T) {
	raw := map[string]interface{}{}
	if got := setupSeverity(raw); got != 1 {
		t.Fatalf("setupSeverity default = %d, want 1", got)
	}
}

func TestSetupSeverityExplicitOverridesLines(t *testing.T) {
	raw := map[string]interface{}{
		"severity": float64(3),
		"lines":    []interface{}{[]interface{}{float64(4), "x", "disk full"}},
	}
	if got := setupSeverity(raw); got != 3 {
		t.Fatalf("setupSeverity explicit = %d, want 3", got)
	}
}

func TestSetupOtherTime(t *testing.T) {
	res := testResources(t)
	raw := map[string]interface{}{
		"db_time":   float64(30),
		"view_time": float64(20),
	}
	got := setupOtherTime(res, raw, 100)
	if got != 50 {
		t.Fatalf("setupOtherTime = %v, want 50", got)
	}
}

func TestSetupAllocatedMemoryDerivedWhenMissing(t *testing.T) {
	raw := map[string]interface{}{
		"allocated_objects": float64(10),
		"allocated_bytes":   float64(1000),
	}
	setupAllocatedMemory(raw)
	if raw["allocated_memory"] != float64(1400) {
		t.Fatalf("allocated_memory = %v, want 1400", raw["allocated_memory"])
	}
}

func TestSetupAllocatedMemoryLeftAloneWhenPresent(t *testing.T) {
	raw := map[string]interface{}{
		"allocated_memory":  float64(999),
		"allocated_objects": float64(10),
		"allocated_bytes":   float64(1000),
	}
	setupAllocatedMemory(raw)
	if raw["allocated_memory"] != float64(999) {
		t.Fatalf("expected existing allocated_memory to be left alone, got %v", raw["allocated_memory"])
	}
}

type fakeThreshold struct {
	def     float64
	byMod   map[string]float64
}

func (f fakeThreshold) ThresholdFor(module string) float64 {
	if v, ok := f.byMod[module]; ok {
		return v
	}
	return f.def
}

func TestInterestingThresholdAndOverrides(t *testing.T) {
	stream := fakeThreshold{def: 500}
	rd := &RequestData{TotalTime: 600, ResponseCode: 200, Module: "::Orders"}
	if !Interesting(rd, stream) {
		t.Fatalf("expected request above threshold to be interesting")
	}

	rd2 := &RequestData{TotalTime: 100, ResponseCode: 200, Module: "::Orders"}
	if Interesting(rd2, stream) {
		t.Fatalf("expected request below threshold and otherwise benign to not be interesting")
	}

	rd3 := &RequestData{TotalTime: 100, ResponseCode: 404, Module: "::Orders"}
	if !Interesting(rd3, stream) {
		t.Fatalf("expected 4xx response to be interesting regardless of time")
	}

	rd4 := &RequestData{TotalTime: 100, Severity: 2, Module: "::Orders"}
	if !Interesting(rd4, stream) {
		t.Fatalf("expected severity>1 to be interesting")
	}

	rd5 := &RequestData{TotalTime: 100, HeapGrowth: 1, Module: "::Orders"}
	if !Interesting(rd5, stream) {
		t.Fatalf("expected heap_growth>0 to be interesting")
	}

	override := fakeThreshold{def: 500, byMod: map[string]float64{"Orders": 50}}
	rd6 := &RequestData{TotalTime: 100, ResponseCode: 200, Module: "::Orders"}
	if !Interesting(rd6, override) {
		t.Fatalf("expected a per-module threshold override to make the request interesting")
	}
}

func TestIgnoreRequest(t *testing.T) {
	raw := map[string]interface{}{
		"request_info": map[string]interface{}{"url": "/health/live"},
	}
	if !IgnoreRequest(raw, "/health") {
		t.Fatalf("expected /health/live to match ignored prefix /health")
	}
	if IgnoreRequest(raw, "") {
		t.Fatalf("empty prefix should never ignore")
	}
	if IgnoreRequest(raw, "/orders") {
		t.Fatalf("unrelated prefix should not match")
	}
}

func TestAggregateFillsTotalsMinutesAndQuants(t *testing.T) {
	res := testResources(t)
	stream := &registry.StreamInfo{Key: "shop-production", ImportThresholdMs: 500}
	proc := model.NewProcessor("logjam-shop-production-2026-07-31", stream, res)

	raw := map[string]interface{}{
		"action":     "Orders#show",
		"started_at": "2026-07-31T12:34:56",
		"total_time": float64(3000),
		"code":       float64(200),
	}
	rd, interesting, ignored := ApplyRequest(res, stream, raw)
	if ignored {
		t.Fatalf("request should not be ignored")
	}
	if !interesting {
		t.Fatalf("request above threshold should be interesting")
	}
	Aggregate(res, proc, raw, rd)

	snap := proc.TotalsFor("Orders#show").Commit()
	if snap.BackendCount != 1 {
		t.Fatalf("backend_count = %v, want 1", snap.BackendCount)
	}
	if snap.Others["apdex.frustrated"] != 1 {
		t.Fatalf("expected apdex.frustrated, got %v", snap.Others)
	}

	allPagesSnap := proc.TotalsFor("all_pages").Commit()
	if allPagesSnap.BackendCount != 1 {
		t.Fatalf("all_pages backend_count = %v, want 1", allPagesSnap.BackendCount)
	}

	minuteSnap := proc.MinuteFor(754, "Orders#show").Commit()
	if minuteSnap.BackendCount != 1 {
		t.Fatalf("minute 754 Orders#show backend_count = %v, want 1", minuteSnap.BackendCount)
	}

	var quantSeen bool
	proc.ForEachQuant(func(model.QuantEntry) { quantSeen = true })
	if !quantSeen {
		t.Fatalf("expected at least one quant entry for total_time")
	}
}
