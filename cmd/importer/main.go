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

// Command importer is the logjam telemetry importer (spec §2): it wires
// the Subscriber, Parser pool, Controller, Indexer, Stats-updater pool
// and Request-writer pool into one running topology and blocks until a
// signal or a config-file change tells it to stop. Grounded on the
// teacher's cmd/ratelimiter-api/main.go: flag-driven knobs, a
// goroutine-launched background loop, signal.Notify-based graceful
// shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/config"
	"logjam/internal/dedup"
	"logjam/internal/logging"
	"logjam/internal/metrics"
	"logjam/internal/shard"
	"logjam/internal/store"
	"logjam/internal/transport"
	"logjam/internal/workers"
)

func main() {
	os.Exit(run())
}

func run() int {
	dryRun := flag.Bool("n", false, "dry run: parse and aggregate, but write nothing to storage")
	configPath := flag.String("c", "logjam.conf", "path to the logjam configuration file")
	pattern := flag.String("p", "", "subscribe only to streams whose key contains this substring")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address")
	pretty := flag.Bool("pretty", false, "use a human-readable console log instead of JSON")
	flag.Parse()

	log := logging.New(*pretty, zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("failed to load config")
		return 1
	}

	resources, err := cfg.BuildResources()
	if err != nil {
		log.Error().Err(err).Msg("failed to build resource registry")
		return 1
	}

	streams, err := cfg.BuildStreams()
	if err != nil {
		log.Error().Err(err).Msg("failed to build stream registry")
		return 1
	}

	subscriptions := cfg.Backend.StreamSubscribe
	if *pattern != "" {
		filtered := make([]string, 0, len(subscriptions))
		for _, s := range subscriptions {
			if strings.Contains(s, *pattern) {
				filtered = append(filtered, s)
			}
		}
		subscriptions = filtered
	}

	metrics.Serve(*metricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topology := workers.DefaultTopology()

	shards, marker, pusher, cleanup, err := wireBackends(ctx, cfg, *dryRun, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to wire backend connections")
		return 1
	}
	defer cleanup()

	subscriber, err := transport.NewSubscriber(cfg.Backend.NATSURL, subscriptions, topology.QueueDepth, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect subscriber")
		return 1
	}
	go subscriber.Run(ctx)

	writerChans := make([]chan transport.WriterMessage, topology.Writers)
	writerOut := make([]chan<- transport.WriterMessage, topology.Writers)
	for i := range writerChans {
		writerChans[i] = make(chan transport.WriterMessage, topology.QueueDepth)
		writerOut[i] = writerChans[i]
	}
	writerRing := shard.NewRing(topology.Writers)

	indexerChan := make(chan transport.IndexerRequest, topology.QueueDepth)

	parsers := make([]*workers.Parser, topology.Parsers)
	parserTickReq := make([]chan chan workers.TickSnapshot, topology.Parsers)
	for i := range parsers {
		parsers[i] = workers.NewParser(i, resources, streams, indexerChan, writerOut, writerRing.WorkerFor, log)
		parserTickReq[i] = make(chan chan workers.TickSnapshot)
		go parsers[i].Run(ctx, subscriber.Messages(), parserTickReq[i])
	}

	indexerTick := make(chan int, 1)
	ix := workers.NewIndexer(shards, cfg.ShardNames(), log)
	go ix.Run(ctx, indexerChan, indexerTick)
	ix.CreateTodayIndexes(ctx, streams)
	go ix.PreCreateTomorrow(ctx, streams, 10*time.Second)

	updaterChans := make([]chan transport.UpdaterMessage, topology.StatsUpdaters)
	updaterIn := make([]chan<- transport.UpdaterMessage, topology.StatsUpdaters)
	updaterTickChans := make([]chan int, topology.StatsUpdaters)
	updaterTickSend := make([]chan<- int, topology.StatsUpdaters)
	for i := range updaterChans {
		updaterChans[i] = make(chan transport.UpdaterMessage, topology.QueueDepth)
		updaterIn[i] = updaterChans[i]
		updaterTickChans[i] = make(chan int, 1)
		updaterTickSend[i] = updaterTickChans[i]
		su := workers.NewStatsUpdater(i, shards, cfg.ShardNames(), resources, log)
		go su.Run(ctx, updaterChans[i], updaterTickChans[i])
	}

	writerTickChans := make([]chan int, topology.Writers)
	writerTickSend := make([]chan<- int, topology.Writers)
	for i := range writerChans {
		writerTickChans[i] = make(chan int, 1)
		writerTickSend[i] = writerTickChans[i]
		rw := workers.NewRequestWriter(i, shards, cfg.ShardNames(), resources, marker, pusher, log)
		go rw.Run(ctx, writerChans[i], writerTickChans[i])
	}

	ctrl := workers.NewController(parsers, parserTickReq, indexerTick, updaterTickSend, updaterIn, writerTickSend, resources, *configPath, pusher, log)
	log.Info().Int("parsers", topology.Parsers).Int("stats_updaters", topology.StatsUpdaters).
		Int("request_writers", topology.Writers).Bool("dry_run", *dryRun).Msg("importer started")

	err = ctrl.Run(ctx)
	stop()

	if errors.Is(err, workers.ErrConfigChanged) {
		log.Info().Msg("exiting for supervisor restart after config change")
		return 0
	}
	if err != nil {
		log.Error().Err(err).Msg("controller exited with error")
		return 1
	}
	log.Info().Msg("importer shut down cleanly")
	return 0
}

// wireBackends dials Mongo, Redis and the live-stream pusher. In dry-run
// mode none of these external writers are created; the worker pools are
// handed an empty shard map instead, which makes shardFor return nil and
// every write a no-op warn-and-skip — the pipeline still decodes,
// classifies and aggregates every message, it just never persists or
// republishes anything.
func wireBackends(ctx context.Context, cfg *config.Config, dryRun bool, log zerolog.Logger) (map[string]*store.Shard, *dedup.Marker, *transport.Pusher, func(), error) {
	if dryRun {
		return map[string]*store.Shard{}, nil, nil, func() {}, nil
	}

	shards, err := store.Dial(ctx, cfg.ShardURIs())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("dial storage shards: %w", err)
	}

	var marker *dedup.Marker
	if cfg.Backend.RedisAddr != "" {
		marker = dedup.NewClientMarker(cfg.Backend.RedisAddr, 24*time.Hour)
	}

	var pusher *transport.Pusher
	if cfg.Backend.LiveStreamSubject != "" {
		pusher, err = transport.NewPusher(cfg.Backend.NATSURL, cfg.Backend.LiveStreamSubject)
		if err != nil {
			store.Close(ctx, shards)
			return nil, nil, nil, nil, fmt.Errorf("connect live-stream pusher: %w", err)
		}
	}

	cleanup := func() {
		if pusher != nil {
			pusher.Close()
		}
		store.Close(context.Background(), shards)
	}
	return shards, marker, pusher, cleanup, nil
}
