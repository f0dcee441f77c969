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

package config

import (
	"fmt"

	"logjam/internal/registry"
)

// BuildResources turns the "metrics" config section into the process's
// resource registry (spec §3 "Resource registry").
func (c *Config) BuildResources() (*registry.Resources, error) {
	byFamily := map[registry.Family][]string{
		registry.FamilyTime:     c.Metrics.Time,
		registry.FamilyCall:     c.Metrics.Call,
		registry.FamilyMemory:   c.Metrics.Memory,
		registry.FamilyHeap:     c.Metrics.Heap,
		registry.FamilyFrontend: c.Metrics.Frontend,
		registry.FamilyDom:      c.Metrics.Dom,
	}
	res, err := registry.NewResources(byFamily)
	if err != nil {
		return nil, fmt.Errorf("build resource registry: %w", err)
	}
	return res, nil
}

// BuildStreams turns "backend/streams/*" plus the layered defaults
// sections into the process's stream registry (spec §3 "Stream
// descriptor", layered lookup).
func (c *Config) BuildStreams() (*registry.Streams, error) {
	streams := make([]registry.StreamConfig, 0, len(c.Backend.Streams))
	for _, s := range c.Backend.Streams {
		streams = append(streams, registry.StreamConfig{
			App:          s.App,
			Env:          s.Env,
			DBShardIndex: s.DBShardIndex,
			Defaults: registry.Defaults{
				ImportThresholdMs: s.ImportThresholdMs,
				IgnoredRequestPfx: s.IgnoredRequestPfx,
				ModuleThresholds:  s.ModuleThresholds,
			},
		})
	}

	envDefaults := make(map[string]registry.Defaults, len(c.Backend.EnvDefaults))
	for env, d := range c.Backend.EnvDefaults {
		envDefaults[env] = toRegistryDefaults(d)
	}

	appDefaults := make(map[string]registry.Defaults, len(c.Backend.AppDefaults))
	for app, d := range c.Backend.AppDefaults {
		appDefaults[app] = toRegistryDefaults(d)
	}

	global := toRegistryDefaults(c.Backend.Defaults)

	reg, err := registry.BuildStreams(streams, envDefaults, appDefaults, global)
	if err != nil {
		return nil, fmt.Errorf("build stream registry: %w", err)
	}
	return reg, nil
}

func toRegistryDefaults(d DefaultsSection) registry.Defaults {
	return registry.Defaults{
		ImportThresholdMs: d.ImportThresholdMs,
		IgnoredRequestPfx: d.IgnoredRequestPfx,
		ModuleThresholds:  d.ModuleThresholds,
	}
}

// ShardURIs returns the configured backend/databases/* shard name->URI
// map for internal/store.Dial.
func (c *Config) ShardURIs() map[string]string {
	out := make(map[string]string, len(c.Backend.Databases))
	for _, db := range c.Backend.Databases {
		out[db.Name] = db.URI
	}
	return out
}

// ShardNames returns the configured backend/databases/* shard names in
// config-file order, so a stream's db_shard_index (an index into this
// same list) resolves to the shard it writes to.
func (c *Config) ShardNames() []string {
	out := make([]string, len(c.Backend.Databases))
	for i, db := range c.Backend.Databases {
		out[i] = db.Name
	}
	return out
}
