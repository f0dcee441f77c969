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
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/config"
	"logjam/internal/metrics"
	"logjam/internal/model"
	"logjam/internal/registry"
	"logjam/internal/shard"
	"logjam/internal/transport"
)

const allPagesNamespace = "all_pages"

// configRehashEvery is how many ticks elapse between config-file digest
// checks (spec §4.3 step 7: "every 10 ticks").
const configRehashEvery = 10

// Controller drives the 1Hz tick that drains the parser pool, merges
// per-database state, publishes live-stream totals, and fans aggregated
// increments out to the stats-updater pool (spec §4.3). Grounded on the
// teacher's internal/ratelimiter/core/worker.go commitLoop: a ticker-driven
// select over a stop channel with a final flush on shutdown, generalized
// from one background worker to a pulse that coordinates several pools.
type Controller struct {
	parsers       []*Parser
	parserTickReq []chan chan TickSnapshot
	indexerTick   chan<- int
	updaterTick   []chan<- int
	updaterIn     []chan<- transport.UpdaterMessage
	writerTick    []chan<- int
	shardRing     *shard.Ring
	pusher        *transport.Pusher
	resources     *registry.Resources
	configPath    string
	log           zerolog.Logger
	tick          uint64
	configDigest  string
}

// NewController wires a Controller around already-running parsers and the
// tick-signal/updater-input channels of the indexer, stats-updater and
// request-writer pools.
func NewController(
	parsers []*Parser,
	parserTickReq []chan chan TickSnapshot,
	indexerTick chan<- int,
	updaterTick []chan<- int,
	updaterIn []chan<- transport.UpdaterMessage,
	writerTick []chan<- int,
	resources *registry.Resources,
	configPath string,
	pusher *transport.Pusher,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		parsers:       parsers,
		parserTickReq: parserTickReq,
		indexerTick:   indexerTick,
		updaterTick:   updaterTick,
		updaterIn:     updaterIn,
		writerTick:    writerTick,
		shardRing:     shard.NewRing(len(updaterIn)),
		pusher:        pusher,
		resources:     resources,
		configPath:    configPath,
		log:           log,
	}
}

// Run drives the tick loop until ctx is cancelled or a config-file change
// is detected (spec §4.3 step 7, §9 "exit and let the supervisor
// restart"). It returns nil on a clean stop, or an error if the config
// file changed.
func (c *Controller) Run(ctx context.Context) error {
	digest, err := config.Digest(c.configPath)
	if err != nil {
		c.log.Warn().Err(err).Msg("could not digest config file at startup, reload detection disabled")
	}
	c.configDigest = digest

	next := time.NewTimer(time.Second)
	defer next.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-next.C:
			started := time.Now()
			if changed, err := c.runTick(ctx); err != nil {
				return err
			} else if changed {
				return ErrConfigChanged
			}
			elapsed := time.Since(started)
			metrics.TickDuration.Observe(elapsed.Seconds())
			delay := time.Second - elapsed
			if delay < time.Millisecond {
				delay = time.Millisecond
			}
			next.Reset(delay)
		}
	}
}

// ErrConfigChanged is returned by Run when the config file's digest
// changes, signaling the caller (cmd/importer) to exit with status 0 so a
// supervisor can restart the process with the new configuration.
var ErrConfigChanged = errors.New("config file changed")

// runTick performs one controller pulse (spec §4.3 steps 1-8).
func (c *Controller) runTick(ctx context.Context) (configChanged bool, err error) {
	c.tick++

	merged := c.drainParsers(ctx)
	c.publishLiveTotals(merged)
	c.tickHousekeeping(ctx)
	c.shipToUpdaters(ctx, merged)

	if c.tick%configRehashEvery == 0 {
		metrics.ConfigReloadChecks.Inc()
		changed, digest, derr := config.Changed(c.configPath, c.configDigest)
		if derr != nil {
			c.log.Warn().Err(derr).Msg("config digest check failed")
			return false, nil
		}
		if changed {
			c.log.Info().Str("path", c.configPath).Msg("config file changed, exiting for supervisor restart")
			return true, nil
		}
		c.configDigest = digest
	}
	return false, nil
}

// drainParsers ticks every parser (step 1) and merges same-db_name
// Processors into a single map (step 2).
func (c *Controller) drainParsers(ctx context.Context) map[string]*model.Processor {
	merged := make(map[string]*model.Processor)
	for _, reqCh := range c.parserTickReq {
		reply := make(chan TickSnapshot, 1)
		select {
		case reqCh <- reply:
		case <-ctx.Done():
			return merged
		}
		var snap TickSnapshot
		select {
		case snap = <-reply:
		case <-ctx.Done():
			return merged
		}
		for dbName, proc := range snap.Processors {
			if existing, ok := merged[dbName]; ok {
				existing.Merge(proc)
				continue
			}
			merged[dbName] = proc
		}
	}
	return merged
}

// liveTotal is the JSON shape published on the live-stream channel for
// one (db, namespace) row (spec §4.3 step 3).
type liveTotal struct {
	Count     uint64             `json:"count"`
	PageCount float64            `json:"page_count"`
	AjaxCount float64            `json:"ajax_count"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// publishLiveTotals emits one live-stream frame per (db, module ∪
// {all_pages}) namespace (spec §4.3 step 3). Ordered before
// shipToUpdaters per spec §9 ordering guarantee (b). Reads each
// Increments non-destructively via Peek: the one-time draining Commit
// happens later in this same tick, at the stats-updater handoff
// (statsupdater.go's TagTotals case), mirroring the original importer's
// processor_publish_totals doing a read-only lookup before the later,
// single ownership-transferring drain.
func (c *Controller) publishLiveTotals(merged map[string]*model.Processor) {
	if c.pusher == nil {
		return
	}
	for _, proc := range merged {
		namespaces := append(proc.Modules(), allPagesNamespace)
		for _, ns := range namespaces {
			inc := proc.TotalsFor(ns)
			if inc.IsZero() {
				continue
			}
			snap := inc.Peek()
			body, err := json.Marshal(toLiveTotal(c.resources, snap))
			if err != nil {
				c.log.Warn().Err(err).Msg("marshal live total")
				continue
			}
			key := strings.ToLower(proc.Stream.Key) + "," + strings.TrimPrefix(ns, "::")
			if err := c.pusher.Push(transport.LiveStreamMessage{Key: key, Body: body}); err != nil {
				c.log.Warn().Err(err).Msg("publish live total")
			}
		}
	}
}

func toLiveTotal(resources *registry.Resources, snap model.Snapshot) liveTotal {
	lt := liveTotal{
		Count:     uint64(snap.BackendCount),
		PageCount: snap.PageCount,
		AjaxCount: snap.AjaxCount,
	}
	for i, sum := range snap.Sums {
		if sum <= 0 {
			continue
		}
		if lt.Metrics == nil {
			lt.Metrics = make(map[string]float64)
		}
		lt.Metrics[resources.Name(i)] = sum
	}
	return lt
}

// tickHousekeeping pulses the indexer, stats-updaters and request-writers
// (spec §4.3 steps 4, 6) with a non-blocking send: housekeeping ticks are
// advisory and a missed one just waits for next second.
func (c *Controller) tickHousekeeping(ctx context.Context) {
	select {
	case c.indexerTick <- int(c.tick):
	default:
	}
	for _, ch := range c.updaterTick {
		select {
		case ch <- int(c.tick):
		default:
		}
	}
	for _, ch := range c.writerTick {
		select {
		case ch <- int(c.tick):
		default:
		}
	}
	_ = ctx
}

// shipToUpdaters fans every merged database's totals/minutes/quants maps
// out to the sharded stats-updater pool as three tagged messages each
// (spec §4.3 step 5). Ownership of the maps transfers to the updater;
// the processor is discarded after this call (merged is not reused).
func (c *Controller) shipToUpdaters(ctx context.Context, merged map[string]*model.Processor) {
	for dbName, proc := range merged {
		idx := c.shardRing.WorkerFor(dbName)
		out := c.updaterIn[idx]

		totals := make(map[string]*model.Increments)
		proc.ForEachTotal(func(ns string, inc *model.Increments) { totals[ns] = inc })
		if len(totals) > 0 {
			transport.Send(ctx, c.log, "stats-updater", out, transport.UpdaterMessage{
				Tag: transport.TagTotals, DBName: dbName, Stream: proc.Stream, Totals: totals,
			})
		}

		minutes := make(map[string]*model.Increments)
		proc.ForEachMinute(func(minute int, ns string, inc *model.Increments) {
			minutes[minuteKey(minute, ns)] = inc
		})
		if len(minutes) > 0 {
			transport.Send(ctx, c.log, "stats-updater", out, transport.UpdaterMessage{
				Tag: transport.TagMinutes, DBName: dbName, Stream: proc.Stream, Minutes: minutes,
			})
		}

		var quants []model.QuantEntry
		proc.ForEachQuant(func(entry model.QuantEntry) { quants = append(quants, entry) })
		if len(quants) > 0 {
			transport.Send(ctx, c.log, "stats-updater", out, transport.UpdaterMessage{
				Tag: transport.TagQuants, DBName: dbName, Stream: proc.Stream, Quants: quants,
			})
		}
	}
}

func minuteKey(minute int, namespace string) string {
	return strconv.Itoa(minute) + "-" + namespace
}
