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

package registry

import "fmt"

// StreamInfo is the per-publisher-stream descriptor from spec §3, keyed by
// "<app>-<env>". Once built at startup it is never mutated; Processor
// instances (internal/model) hold a long-lived, non-owning reference to
// one of these for the life of the process (spec §9 "Back-references").
type StreamInfo struct {
	Key                string
	App                string
	Env                string
	DBShardIndex       int
	ImportThresholdMs  float64
	ModuleThresholds   map[string]float64 // module name without the "::" prefix -> threshold ms
	IgnoredRequestPfx  string
}

// StreamKey builds the "<app>-<env>" registry key used throughout the
// pipeline (database naming, live-stream keys, the stream registry map).
func StreamKey(app, env string) string {
	return app + "-" + env
}

// Defaults captures one layer of the layered config lookup described in
// spec §3 ("most specific first: stream -> environment-default ->
// application-default -> global-default"). Any field left at its zero
// value is simply not applied by that layer.
type Defaults struct {
	ImportThresholdMs float64
	IgnoredRequestPfx string
	ModuleThresholds  map[string]float64
}

// StreamConfig is the per-stream configuration as read directly from the
// backend/streams/<app-env>/* config section, before defaults are layered
// in.
type StreamConfig struct {
	App          string
	Env          string
	DBShardIndex int
	Defaults
}

// Streams is the read-only-after-setup stream registry (spec §3 "Stream
// descriptor").
type Streams struct {
	byKey map[string]*StreamInfo
}

// BuildStreams resolves the layered lookup for every configured stream and
// returns the populated registry. Resolution order is stream-specific,
// then per-environment default (keyed by env), then per-application
// default (keyed by app), then the single global default; the first layer
// that sets a given field wins (spec §3: "most specific first").
func BuildStreams(
	streams []StreamConfig,
	envDefaults map[string]Defaults,
	appDefaults map[string]Defaults,
	globalDefault Defaults,
) (*Streams, error) {
	reg := &Streams{byKey: make(map[string]*StreamInfo, len(streams))}
	for _, sc := range streams {
		if sc.App == "" || sc.Env == "" {
			return nil, fmt.Errorf("registry: stream config missing app/env: %+v", sc)
		}
		key := StreamKey(sc.App, sc.Env)
		layers := []Defaults{sc.Defaults, envDefaults[sc.Env], appDefaults[sc.App], globalDefault}

		info := &StreamInfo{
			Key:              key,
			App:              sc.App,
			Env:              sc.Env,
			DBShardIndex:     sc.DBShardIndex,
			ModuleThresholds: map[string]float64{},
		}
		for _, layer := range layers {
			if info.ImportThresholdMs == 0 && layer.ImportThresholdMs != 0 {
				info.ImportThresholdMs = layer.ImportThresholdMs
			}
			if info.IgnoredRequestPfx == "" && layer.IgnoredRequestPfx != "" {
				info.IgnoredRequestPfx = layer.IgnoredRequestPfx
			}
			for mod, ms := range layer.ModuleThresholds {
				if _, exists := info.ModuleThresholds[mod]; !exists {
					info.ModuleThresholds[mod] = ms
				}
			}
		}
		reg.byKey[key] = info
	}
	return reg, nil
}

// Lookup returns the descriptor for "<app>-<env>" and whether it exists.
// A miss here is the "unknown stream" drop-and-log case in spec §4.2 step
// 1 and §7.
func (s *Streams) Lookup(key string) (*StreamInfo, bool) {
	info, ok := s.byKey[key]
	return info, ok
}

// Len returns the number of configured streams.
func (s *Streams) Len() int { return len(s.byKey) }

// Keys returns every configured stream key (used by the indexer to
// pre-create today's indices at startup, spec §4.6).
func (s *Streams) Keys() []string {
	out := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		out = append(out, k)
	}
	return out
}

// All returns every configured descriptor (used by the indexer startup
// sweep and by the subscriber to build its subscription set).
func (s *Streams) All() []*StreamInfo {
	out := make([]*StreamInfo, 0, len(s.byKey))
	for _, info := range s.byKey {
		out = append(out, info)
	}
	return out
}

// ThresholdFor returns the effective import threshold in milliseconds for
// a given namespace (module-qualified override first, then the stream's
// default), used by the interestingness test in spec §4.2 step l.
func (info *StreamInfo) ThresholdFor(module string) float64 {
	if ms, ok := info.ModuleThresholds[module]; ok {
		return ms
	}
	return info.ImportThresholdMs
}
