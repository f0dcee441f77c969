package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
frontend:
  endpoints:
    - name: ingress
      subject: logjam-ingress
backend:
  databases:
    - name: rs0
      uri: mongodb://localhost:27017
  streams:
    - app: shop
      env: production
      db_shard_index: 0
      import_threshold: 500
  defaults:
    import_threshold: 100
    ignored_request_uri: /ping
metrics:
  time: [total_time, db_time, gc_time, other_time]
  call: [allocated_memory]
  memory: [allocated_bytes]
  heap: [allocated_objects]
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "logjam.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Backend.Databases) != 1 || cfg.Backend.Databases[0].URI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected databases: %+v", cfg.Backend.Databases)
	}
	if len(cfg.Backend.Streams) != 1 || cfg.Backend.Streams[0].App != "shop" {
		t.Fatalf("unexpected streams: %+v", cfg.Backend.Streams)
	}
	if len(cfg.Metrics.Time) != 4 {
		t.Fatalf("unexpected time metrics: %+v", cfg.Metrics.Time)
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestBuildResourcesAndStreams(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := cfg.BuildResources()
	if err != nil {
		t.Fatalf("BuildResources: %v", err)
	}
	if res.Len() != 7 {
		t.Fatalf("expected 7 resources, got %d", res.Len())
	}

	streams, err := cfg.BuildStreams()
	if err != nil {
		t.Fatalf("BuildStreams: %v", err)
	}
	info, ok := streams.Lookup("shop-production")
	if !ok {
		t.Fatalf("expected shop-production stream to be registered")
	}
	if info.ImportThresholdMs != 500 {
		t.Fatalf("expected stream-specific threshold 500, got %v", info.ImportThresholdMs)
	}
}

func TestDigestAndChanged(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	d1, err := Digest(path)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	changed, d2, err := Changed(path, d1)
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if changed {
		t.Fatalf("expected unchanged file to report changed=false")
	}
	if d1 != d2 {
		t.Fatalf("expected stable digest across calls")
	}

	if err := os.WriteFile(path, []byte(sampleConfig+"\n# comment\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	changed, _, err = Changed(path, d1)
	if err != nil {
		t.Fatalf("Changed after edit: %v", err)
	}
	if !changed {
		t.Fatalf("expected edited file to report changed=true")
	}
}
