package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/registry"
	"logjam/internal/transport"
)

func testRequestBody(action string, totalTime float64) []byte {
	startedAt := time.Now().Format("2006-01-02T15:04:05")
	return []byte(fmt.Sprintf(`{"action":%q,"started_at":%q,"total_time":%v}`, action, startedAt, totalTime))
}

func newTestStreams(t *testing.T) *registry.Streams {
	t.Helper()
	streams, err := registry.BuildStreams(
		[]registry.StreamConfig{
			{App: "shop", Env: "production", DBShardIndex: 0, Defaults: registry.Defaults{ImportThresholdMs: 100}},
		},
		nil, nil, registry.Defaults{},
	)
	if err != nil {
		t.Fatalf("BuildStreams: %v", err)
	}
	return streams
}

func newTestResources(t *testing.T) *registry.Resources {
	t.Helper()
	res, err := registry.NewResources(map[registry.Family][]string{
		registry.FamilyTime:   {"total_time", "db_time", "view_time", "gc_time", "other_time"},
		registry.FamilyMemory: {"allocated_bytes"},
	})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	return res
}

func newTestParser(t *testing.T) (*Parser, chan transport.IndexerRequest, chan transport.WriterMessage) {
	t.Helper()
	indexerOut := make(chan transport.IndexerRequest, 10)
	writerOut := make(chan transport.WriterMessage, 10)
	writerOuts := []chan<- transport.WriterMessage{writerOut}
	sel := func(string) int { return 0 }
	p := NewParser(0, newTestResources(t), newTestStreams(t), indexerOut, writerOuts, sel, zerolog.Nop())
	return p, indexerOut, writerOut
}

func TestParserDropsUnknownStream(t *testing.T) {
	p, _, _ := newTestParser(t)
	raw := transport.RawMessage{
		Stream: "unknown-env",
		Topic:  "logs.Orders",
		Body:   testRequestBody("Orders#index", 10),
	}
	p.handle(context.Background(), raw)

	snap := p.snapshotAndReset()
	if len(snap.Processors) != 0 {
		t.Fatalf("expected no processors for unknown stream, got %d", len(snap.Processors))
	}
	if snap.Parsed != 0 {
		t.Fatalf("expected Parsed to stay 0 on drop, got %d", snap.Parsed)
	}
}

func TestParserDropsMalformedJSON(t *testing.T) {
	p, _, _ := newTestParser(t)
	raw := transport.RawMessage{Stream: "shop-production", Topic: "logs.Orders", Body: []byte(`{not json`)}
	p.handle(context.Background(), raw)

	snap := p.snapshotAndReset()
	if snap.Parsed != 0 {
		t.Fatalf("expected Parsed to stay 0 on malformed JSON, got %d", snap.Parsed)
	}
}

func TestParserAggregatesRequestAndRequestsIndex(t *testing.T) {
	p, indexerOut, _ := newTestParser(t)
	raw := transport.RawMessage{
		Stream: "shop-production",
		Topic:  "logs.Orders",
		Body:   testRequestBody("Orders#index", 10),
	}
	p.handle(context.Background(), raw)

	select {
	case req := <-indexerOut:
		if req.Stream.Key != "shop-production" {
			t.Fatalf("indexer request stream = %q, want shop-production", req.Stream.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a fire-and-forget indexer request on first processor creation")
	}

	snap := p.snapshotAndReset()
	if snap.Parsed != 1 {
		t.Fatalf("Parsed = %d, want 1", snap.Parsed)
	}
	if len(snap.Processors) != 1 {
		t.Fatalf("expected exactly one db's Processor, got %d", len(snap.Processors))
	}
}

func TestParserSnapshotAndResetClearsState(t *testing.T) {
	p, _, _ := newTestParser(t)
	raw := transport.RawMessage{
		Stream: "shop-production",
		Topic:  "logs.Orders",
		Body:   testRequestBody("Orders#index", 10),
	}
	p.handle(context.Background(), raw)
	_ = p.snapshotAndReset()

	second := p.snapshotAndReset()
	if len(second.Processors) != 0 || second.Parsed != 0 {
		t.Fatalf("expected fresh state after snapshotAndReset, got %+v", second)
	}
}
