package workers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/registry"
	"logjam/internal/store"
	"logjam/internal/transport"
)

// An Indexer with no shards configured exercises only the "no shard
// configured for stream" skip path (DBShardIndex is always out of range
// against an empty shardNames slice), which is enough to test the
// known-databases membership cache without a live Mongo connection.
func newTestIndexer() *Indexer {
	return NewIndexer(map[string]*store.Shard{}, nil, zerolog.Nop())
}

func TestIndexerHandleDedupesKnownDatabase(t *testing.T) {
	ix := newTestIndexer()
	info := &registry.StreamInfo{Key: "shop-production", App: "shop", Env: "production"}
	req := transport.IndexerRequest{DBName: "logjam-shop-production-2026-07-31", Stream: info}

	ix.handle(context.Background(), req)
	if _, seen := ix.known[req.DBName]; !seen {
		t.Fatalf("expected db to be recorded in known set after first handle")
	}

	// A second handle for the same db is a no-op past the dedup check;
	// this mainly guards against a panic from re-entering the (skipped,
	// since no shard is configured) index-creation path.
	ix.handle(context.Background(), req)
}

func TestIndexerOnTickDropsKnownDatabasesCache(t *testing.T) {
	ix := newTestIndexer()
	ix.known["logjam-shop-production-2026-07-31"] = struct{}{}

	ix.onTick(context.Background(), knownDatabasesCacheTicks)

	if len(ix.known) != 0 {
		t.Fatalf("expected known-databases cache to be dropped on a multiple of %d ticks", knownDatabasesCacheTicks)
	}
}

func TestIndexerOnTickKeepsCacheOffSchedule(t *testing.T) {
	ix := newTestIndexer()
	ix.known["logjam-shop-production-2026-07-31"] = struct{}{}

	ix.onTick(context.Background(), 1)

	if len(ix.known) != 1 {
		t.Fatalf("expected known-databases cache to survive a non-multiple tick")
	}
}

func TestCreateTodayIndexesVisitsEveryStream(t *testing.T) {
	ix := newTestIndexer()
	streams, err := registry.BuildStreams(
		[]registry.StreamConfig{
			{App: "shop", Env: "production"},
			{App: "blog", Env: "staging"},
		},
		nil, nil, registry.Defaults{},
	)
	if err != nil {
		t.Fatalf("BuildStreams: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ix.CreateTodayIndexes(ctx, streams)

	today := time.Now().Format("2006-01-02")
	for _, info := range streams.All() {
		dbName := "logjam-" + info.App + "-" + info.Env + "-" + today
		if _, ok := ix.known[dbName]; !ok {
			t.Fatalf("expected %q to be recorded as known after CreateTodayIndexes", dbName)
		}
	}
}

func TestIsToday(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	if !isToday("logjam-shop-production-" + today) {
		t.Fatalf("expected today's suffix to match")
	}
	if isToday("logjam-shop-production-1999-01-01") {
		t.Fatalf("expected a stale suffix not to match")
	}
	if isToday("short") {
		t.Fatalf("expected a too-short name not to match")
	}
}
