package workers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"logjam/internal/registry"
	"logjam/internal/store"
	"logjam/internal/transport"
)

func TestRequestObjectIDUsesBinaryUUIDForValidHexLength(t *testing.T) {
	requestID := "0123456789abcdef0123456789abcdef"
	got := requestObjectID(requestID, zerolog.Nop())
	bin, ok := got.(primitive.Binary)
	if !ok || bin.Subtype != 0x03 {
		t.Fatalf("got %T (subtype %v), want a subtype-0x03 primitive.Binary for a %d-char hex request_id", got, bin.Subtype, len(requestID))
	}
}

func TestRequestObjectIDFallsBackToObjectIDForBadLength(t *testing.T) {
	got := requestObjectID("too-short", zerolog.Nop())
	if _, ok := got.(primitive.ObjectID); !ok {
		t.Fatalf("got %T, want primitive.ObjectID for a malformed request_id", got)
	}
}

func TestDescriptionForFindsFirstLineAtOrAboveSeverity(t *testing.T) {
	raw := map[string]interface{}{
		"lines": []interface{}{
			[]interface{}{float64(1), "info", "starting request"},
			[]interface{}{float64(3), "error", "boom"},
			[]interface{}{float64(5), "fatal", "never reached"},
		},
	}
	got := descriptionFor(raw, 3)
	if got != "boom" {
		t.Fatalf("descriptionFor = %q, want %q", got, "boom")
	}
}

func TestDescriptionForFallsBackWhenNoLineMatches(t *testing.T) {
	raw := map[string]interface{}{"lines": []interface{}{[]interface{}{float64(1), "info", "fine"}}}
	if got := descriptionFor(raw, 5); got != "------ unknown ------" {
		t.Fatalf("descriptionFor = %q, want the unknown sentinel", got)
	}
	if got := descriptionFor(map[string]interface{}{}, 5); got != "------ unknown ------" {
		t.Fatalf("descriptionFor with no lines key = %q, want the unknown sentinel", got)
	}
}

func TestLineLevelAcceptsNumericKinds(t *testing.T) {
	cases := []interface{}{float64(2), 2}
	for _, v := range cases {
		got, ok := lineLevel(v)
		if !ok || got != 2 {
			t.Fatalf("lineLevel(%v) = (%d, %v), want (2, true)", v, got, ok)
		}
	}
	if _, ok := lineLevel("nope"); ok {
		t.Fatalf("expected lineLevel to reject a non-numeric value")
	}
}

func TestRequestWriterHandleSkipsWithoutShard(t *testing.T) {
	w := NewRequestWriter(0, map[string]*store.Shard{}, nil, newTestResources(t), nil, nil, zerolog.Nop())
	info := &registry.StreamInfo{Key: "shop-production", App: "shop", Env: "production", DBShardIndex: 0}
	msg := transport.WriterMessage{
		Tag:    transport.TagRequest,
		DBName: "logjam-shop-production-2026-07-31",
		Stream: info,
		Raw:    map[string]interface{}{"request_id": "abc"},
	}
	w.handle(context.Background(), msg)
	if w.cache != nil {
		t.Fatalf("expected no collection cache to be built when no shard is configured")
	}
}
