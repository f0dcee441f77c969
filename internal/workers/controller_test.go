package workers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/model"
	"logjam/internal/registry"
)

func TestMinuteKeyAndSplitRoundTrip(t *testing.T) {
	key := minuteKey(742, "::Orders#index")
	minute, namespace, err := splitMinuteKey(key)
	if err != nil {
		t.Fatalf("splitMinuteKey(%q): %v", key, err)
	}
	if minute != 742 || namespace != "::Orders#index" {
		t.Fatalf("got (%d, %q), want (742, \"::Orders#index\")", minute, namespace)
	}
}

func TestToLiveTotalOmitsZeroMetrics(t *testing.T) {
	res, err := registry.NewResources(map[registry.Family][]string{
		registry.FamilyTime: {"total_time", "db_time"},
	})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	inc := model.NewIncrements(res)
	inc.BackendCount.Add(3)
	inc.AddMetricByName("db_time", 42)

	snap := inc.Commit()
	lt := toLiveTotal(res, snap)

	if lt.Count != 3 {
		t.Fatalf("Count = %d, want 3", lt.Count)
	}
	if got, ok := lt.Metrics["db_time"]; !ok || got != 42 {
		t.Fatalf("Metrics[db_time] = %v, want 42", lt.Metrics)
	}
	if _, ok := lt.Metrics["total_time"]; ok {
		t.Fatalf("expected a zero-sum metric to be omitted from the live total")
	}
}

func TestDrainParsersMergesSameDatabase(t *testing.T) {
	reqA := make(chan chan TickSnapshot, 1)
	reqB := make(chan chan TickSnapshot, 1)
	c := &Controller{
		parserTickReq: []chan chan TickSnapshot{reqA, reqB},
		log:           zerolog.Nop(),
	}

	res, err := registry.NewResources(map[registry.Family][]string{registry.FamilyTime: {"total_time"}})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	stream := &registry.StreamInfo{Key: "shop-production"}
	dbName := "logjam-shop-production-2026-07-31"

	procA := model.NewProcessor(dbName, stream, res)
	procA.IncrementRequestCount()
	procB := model.NewProcessor(dbName, stream, res)
	procB.IncrementRequestCount()

	go func() {
		reply := <-reqA
		reply <- TickSnapshot{Processors: map[string]*model.Processor{dbName: procA}, Parsed: 1}
	}()
	go func() {
		reply := <-reqB
		reply <- TickSnapshot{Processors: map[string]*model.Processor{dbName: procB}, Parsed: 1}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	merged := c.drainParsers(ctx)

	if len(merged) != 1 {
		t.Fatalf("expected the two parsers' same-db Processors to merge into one, got %d", len(merged))
	}
	if got := merged[dbName].RequestCount(); got != 2 {
		t.Fatalf("merged RequestCount = %d, want 2", got)
	}
}

// TestPublishLiveTotalsSkipsWithoutPusher confirms publishLiveTotals
// leaves every namespace's Increments completely untouched when no
// pusher is configured (dry-run/no live-stream deployments), rather than
// draining state nobody will read. The non-destructive-read regression
// this guards against (publishLiveTotals must use Peek, not Commit, so
// the stats-updater's later real Commit still observes the tick's delta)
// is covered where it can be meaningfully exercised without a live NATS
// connection: TestIncrementsPeekDoesNotResetState in
// internal/model/increments_test.go.
func TestPublishLiveTotalsSkipsWithoutPusher(t *testing.T) {
	res, err := registry.NewResources(map[registry.Family][]string{registry.FamilyTime: {"total_time"}})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	stream := &registry.StreamInfo{Key: "shop-production"}
	proc := model.NewProcessor("logjam-shop-production-2026-07-31", stream, res)

	inc := proc.TotalsFor(allPagesNamespace)
	inc.BackendCount.Add(1)

	c := &Controller{resources: res, log: zerolog.Nop()}
	c.publishLiveTotals(map[string]*model.Processor{proc.DBName: proc})

	if inc.IsZero() {
		t.Fatalf("expected publishLiveTotals with a nil pusher to leave Increments state untouched")
	}
	snap := inc.Commit()
	if snap.BackendCount != 1 {
		t.Fatalf("stats-updater's Commit saw BackendCount = %v, want 1", snap.BackendCount)
	}
}

func TestTickHousekeepingIsNonBlockingOnFullChannels(t *testing.T) {
	indexerTick := make(chan int, 1)
	indexerTick <- 99 // pre-fill so the next send must be dropped, not block
	updaterTick := make(chan int, 1)
	updaterTick <- 99
	writerTick := make(chan int, 1)
	writerTick <- 99

	c := &Controller{
		indexerTick: indexerTick,
		updaterTick: []chan<- int{updaterTick},
		writerTick:  []chan<- int{writerTick},
		log:         zerolog.Nop(),
		tick:        1,
	}

	done := make(chan struct{})
	go func() {
		c.tickHousekeeping(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tickHousekeeping blocked on a full advisory tick channel")
	}
}
