// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/metrics"
	"logjam/internal/registry"
	"logjam/internal/store"
	"logjam/internal/transport"
)

// knownDatabasesCacheTicks matches the stats-updater/request-writer cache
// lifetime so all three pools churn their per-database state on a
// comparable cadence (spec §4.6 "every ~3600 ticks drop the known-
// databases cache").
const knownDatabasesCacheTicks = 3600

// Indexer owns index creation for every per-day database and the
// logjam-global known-databases set (spec §4.6). Grounded on the
// teacher's store.go GetOrCreate-then-ForEach pattern for the known-
// databases membership set, and on the original importer's
// indexer_create_indexes/handle_indexer_request for what gets created
// when.
type Indexer struct {
	shards     map[string]*store.Shard
	shardNames []string

	mu    sync.Mutex
	known map[string]struct{}

	tickCount int
	log       zerolog.Logger
}

// NewIndexer builds an Indexer bound to shards (keyed by shard name,
// indexed by shardNames in config-file order so StreamInfo.DBShardIndex
// resolves to a shard).
func NewIndexer(shards map[string]*store.Shard, shardNames []string, log zerolog.Logger) *Indexer {
	return &Indexer{
		shards:     shards,
		shardNames: shardNames,
		known:      make(map[string]struct{}),
		log:        log,
	}
}

func (ix *Indexer) shardFor(info *registry.StreamInfo) *store.Shard {
	if info.DBShardIndex < 0 || info.DBShardIndex >= len(ix.shardNames) {
		return nil
	}
	return ix.shards[ix.shardNames[info.DBShardIndex]]
}

// Run drains in (spec §4.2 step 4 fire-and-forget indexer requests) and
// tick (spec §4.3 step 4/§4.6's own 1Hz pulse: ping every 5 ticks, drop
// the known-databases cache every knownDatabasesCacheTicks ticks) until
// ctx is cancelled.
func (ix *Indexer) Run(ctx context.Context, in <-chan transport.IndexerRequest, tick <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-in:
			if !ok {
				return
			}
			ix.handle(ctx, req)
		case n := <-tick:
			ix.onTick(ctx, n)
		}
	}
}

func (ix *Indexer) handle(ctx context.Context, req transport.IndexerRequest) {
	ix.mu.Lock()
	_, seen := ix.known[req.DBName]
	if !seen {
		ix.known[req.DBName] = struct{}{}
	}
	ix.mu.Unlock()
	if seen {
		return
	}

	shard := ix.shardFor(req.Stream)
	if shard == nil {
		ix.log.Warn().Str("db", req.DBName).Int("shard_index", req.Stream.DBShardIndex).Msg("indexer: no shard configured for stream")
		return
	}

	if err := store.EnsureDatabaseIndexes(ctx, shard.Client.Database(req.DBName)); err != nil {
		ix.log.Warn().Err(err).Str("db", req.DBName).Msg("create database indexes")
		return
	}
	metrics.IndicesCreated.Inc()

	if isToday(req.DBName) {
		globalMeta := shard.Client.Database(store.GlobalDatabase).Collection(store.MetadataCollection)
		if err := store.EnsureKnownDatabase(ctx, globalMeta, req.DBName); err != nil {
			ix.log.Warn().Err(err).Str("db", req.DBName).Msg("ensure known database")
		}
	}
}

func (ix *Indexer) onTick(ctx context.Context, n int) {
	ix.tickCount = n
	if n%5 == 0 {
		for name, err := range store.Ping(ctx, ix.shards) {
			if err != nil {
				ix.log.Warn().Err(err).Str("shard", name).Msg("indexer ping failed")
			}
		}
	}
	if n%knownDatabasesCacheTicks == 0 {
		ix.mu.Lock()
		ix.known = make(map[string]struct{})
		ix.mu.Unlock()
	}
}

// isToday reports whether dbName's trailing YYYY-MM-DD suffix is today's
// date in local time, matching the original importer's "today" window
// for deciding whether to register a database in the known-databases set
// (spec §4.6 "on today-matching databases also upserts").
func isToday(dbName string) bool {
	if len(dbName) < 10 {
		return false
	}
	suffix := dbName[len(dbName)-10:]
	return suffix == time.Now().Format("2006-01-02")
}

// CreateTodayIndexes creates every configured stream's index set for
// today's date synchronously (spec §4.6 "at startup, synchronously
// creates indices for every configured stream for today"). cmd/importer
// calls it after the subscriber and parsers are already running and
// before it starts the stats-updaters and the controller.
func (ix *Indexer) CreateTodayIndexes(ctx context.Context, streams *registry.Streams) {
	today := time.Now().Format("2006-01-02")
	for _, info := range streams.All() {
		dbName := "logjam-" + info.App + "-" + info.Env + "-" + today
		ix.handle(ctx, transport.IndexerRequest{DBName: dbName, Stream: info})
	}
}

// PreCreateTomorrow creates every configured stream's index set for
// tomorrow's date, pacing itself between streams (spec §4.6 "spawns a
// detached worker that creates tomorrow's indices, pacing itself 10s
// between streams"). cmd/importer runs it once, in its own goroutine, at
// startup; nothing runs it again when the date rolls over.
func (ix *Indexer) PreCreateTomorrow(ctx context.Context, streams *registry.Streams, pace time.Duration) {
	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	for _, info := range streams.All() {
		dbName := "logjam-" + info.App + "-" + info.Env + "-" + tomorrow
		ix.handle(ctx, transport.IndexerRequest{DBName: dbName, Stream: info})
		select {
		case <-ctx.Done():
			return
		case <-time.After(pace):
		}
	}
}
