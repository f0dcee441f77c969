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
	"fmt"

	"github.com/rs/zerolog"

	"logjam/internal/logging"
	"logjam/internal/metrics"
	"logjam/internal/registry"
	"logjam/internal/store"
	"logjam/internal/transport"
)

// StatsUpdater is one of the M=10 stats-updater pool instances (spec
// §4.4): it applies totals/minutes/quants increments to Mongo, caching
// collection handles per database and pinging/rebuilding on its own
// schedule so the pool survives a transient Mongo hiccup without
// stalling the controller's tick.
type StatsUpdater struct {
	id         int
	shards     map[string]*store.Shard
	shardNames []string
	resources  *registry.Resources
	cache      *store.CollectionCache
	log        zerolog.Logger
}

// NewStatsUpdater builds a StatsUpdater; its *store.CollectionCache is
// created lazily by cacheFor on first use (the stats-updater pool is sharded by db_name via internal/shard.Ring, so
// each instance only ever talks to the shard(s) its assigned databases
// live on — in the common single-shard deployment that's one client).
func NewStatsUpdater(id int, shards map[string]*store.Shard, shardNames []string, resources *registry.Resources, base zerolog.Logger) *StatsUpdater {
	return &StatsUpdater{
		id:         id,
		shards:     shards,
		shardNames: shardNames,
		resources:  resources,
		log:        logging.Component(base, "stats-updater", id),
	}
}

func (u *StatsUpdater) shardFor(info *registry.StreamInfo) *store.Shard {
	if info.DBShardIndex < 0 || info.DBShardIndex >= len(u.shardNames) {
		return nil
	}
	return u.shards[u.shardNames[info.DBShardIndex]]
}

// Run drains in (the controller's sharded UpdaterMessage fan-out) and
// tick (spec §4.4's own housekeeping: ping every 5 ticks, drop the
// collection cache every 3600-(id+1) ticks) until ctx is cancelled.
func (u *StatsUpdater) Run(ctx context.Context, in <-chan transport.UpdaterMessage, tick <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			u.handle(ctx, msg)
		case n := <-tick:
			u.onTick(ctx, n)
		}
	}
}

func (u *StatsUpdater) handle(ctx context.Context, msg transport.UpdaterMessage) {
	shard := u.shardFor(msg.Stream)
	if shard == nil {
		u.log.Warn().Str("db", msg.DBName).Int("shard_index", msg.Stream.DBShardIndex).Msg("stats-updater: no shard configured for stream")
		return
	}
	cache := u.cacheFor(shard)

	switch msg.Tag {
	case transport.TagTotals:
		coll := cache.Get(msg.DBName, store.CollectionTotals)
		for namespace, inc := range msg.Totals {
			snap := inc.Commit()
			if err := store.UpsertTotals(ctx, coll, u.resources, namespace, snap); err != nil {
				u.log.Warn().Err(err).Str("db", msg.DBName).Str("namespace", namespace).Msg("upsert totals")
				metrics.StorageErrors.WithLabelValues("stats-updater").Inc()
			}
		}
	case transport.TagMinutes:
		coll := cache.Get(msg.DBName, store.CollectionMinutes)
		for key, inc := range msg.Minutes {
			minute, namespace, err := splitMinuteKey(key)
			if err != nil {
				u.log.Warn().Str("key", key).Msg("malformed minute key, dropping")
				continue
			}
			snap := inc.Commit()
			if err := store.UpsertMinutes(ctx, coll, u.resources, minute, namespace, snap); err != nil {
				u.log.Warn().Err(err).Str("db", msg.DBName).Str("namespace", namespace).Msg("upsert minutes")
				metrics.StorageErrors.WithLabelValues("stats-updater").Inc()
			}
		}
	case transport.TagQuants:
		coll := cache.Get(msg.DBName, store.CollectionQuants)
		for _, entry := range msg.Quants {
			if err := store.UpsertQuant(ctx, coll, u.resources, entry); err != nil {
				u.log.Warn().Err(err).Str("db", msg.DBName).Str("namespace", entry.Namespace).Msg("upsert quant")
				metrics.StorageErrors.WithLabelValues("stats-updater").Inc()
			}
		}
	}
}

// cacheFor returns (creating if needed) the collection cache bound to
// shard. A StatsUpdater instance only ever sees one shard in a
// single-shard deployment; multi-shard deployments get one cache per
// shard, swapped in on first use after each Reset.
func (u *StatsUpdater) cacheFor(shard *store.Shard) *store.CollectionCache {
	if u.cache == nil {
		u.cache = store.NewCollectionCache(shard.Client)
	}
	return u.cache
}

func (u *StatsUpdater) onTick(ctx context.Context, n int) {
	if n%5 == 0 {
		for name, err := range store.Ping(ctx, u.shards) {
			if err != nil {
				u.log.Warn().Err(err).Str("shard", name).Msg("stats-updater ping failed")
			}
		}
	}
	// spec §4.4: "every 3600 - (id+1) ticks, drop and rebuild the
	// collection cache" staggers the M instances so they don't all pay
	// the rebuild cost on the same tick.
	if period := 3600 - (u.id + 1); period > 0 && n%period == 0 {
		if u.cache != nil {
			u.cache.Reset()
		}
	}
}

func splitMinuteKey(key string) (int, string, error) {
	var minute int
	var namespace string
	if n, err := fmt.Sscanf(key, "%d-%s", &minute, &namespace); err != nil || n != 2 {
		return 0, "", fmt.Errorf("malformed minute key %q", key)
	}
	return minute, namespace, nil
}
