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

// Command forwarder is the standalone second program of spec §4.8: it
// pulls payloads off the internal forwarder subject, compresses and
// pushes them downstream, and exits cleanly on signal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"logjam/internal/config"
	"logjam/internal/forwarder"
	"logjam/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("c", "logjam.conf", "path to the logjam configuration file")
	pretty := flag.Bool("pretty", false, "use a human-readable console log instead of JSON")
	flag.Parse()

	log := logging.New(*pretty, zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("failed to load config")
		return 1
	}

	fwd, err := forwarder.New(cfg.Forwarder, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start forwarder")
		return 1
	}
	defer fwd.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("pull_subject", cfg.Forwarder.PullSubject).Str("push_subject", cfg.Forwarder.PushSubject).
		Int("high_water_mark", cfg.Forwarder.HighWaterMark).Msg("forwarder started")

	fwd.Run(ctx)

	log.Info().Uint64("sent", fwd.Sent()).Uint64("dropped", fwd.Dropped()).Msg("forwarder shut down cleanly")
	return 0
}
