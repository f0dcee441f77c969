package registry

import "testing"

func TestBuildStreamsLayeredLookup(t *testing.T) {
	streams := []StreamConfig{
		{
			App: "shop", Env: "production", DBShardIndex: 0,
			Defaults: Defaults{ImportThresholdMs: 500},
		},
		{
			App: "shop", Env: "staging", DBShardIndex: 1,
			// no stream-level threshold: should fall back to env default
		},
	}
	envDefaults := map[string]Defaults{
		"staging": {ImportThresholdMs: 2000},
	}
	appDefaults := map[string]Defaults{
		"shop": {IgnoredRequestPfx: "/health"},
	}
	global := Defaults{ImportThresholdMs: 1000, IgnoredRequestPfx: "/ping"}

	reg, err := BuildStreams(streams, envDefaults, appDefaults, global)
	if err != nil {
		t.Fatalf("BuildStreams: %v", err)
	}

	prod, ok := reg.Lookup(StreamKey("shop", "production"))
	if !ok {
		t.Fatalf("expected shop-production to be registered")
	}
	if prod.ImportThresholdMs != 500 {
		t.Fatalf("prod threshold = %v, want 500 (stream-specific)", prod.ImportThresholdMs)
	}
	if prod.IgnoredRequestPfx != "/health" {
		t.Fatalf("prod ignored prefix = %q, want /health (app default)", prod.IgnoredRequestPfx)
	}

	staging, ok := reg.Lookup(StreamKey("shop", "staging"))
	if !ok {
		t.Fatalf("expected shop-staging to be registered")
	}
	if staging.ImportThresholdMs != 2000 {
		t.Fatalf("staging threshold = %v, want 2000 (env default)", staging.ImportThresholdMs)
	}

	if _, ok := reg.Lookup(StreamKey("other", "production")); ok {
		t.Fatalf("expected unknown stream to miss")
	}
}

func TestThresholdForModuleOverride(t *testing.T) {
	info := &StreamInfo{
		ImportThresholdMs: 500,
		ModuleThresholds:  map[string]float64{"Orders": 200},
	}
	if got := info.ThresholdFor("Orders"); got != 200 {
		t.Fatalf("ThresholdFor(Orders) = %v, want 200", got)
	}
	if got := info.ThresholdFor("Other"); got != 500 {
		t.Fatalf("ThresholdFor(Other) = %v, want 500 (stream default)", got)
	}
}
