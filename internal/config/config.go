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

// Package config loads the hierarchical logjam.conf tree (spec §6
// "Configuration file") with Viper and turns it into the registry and
// topology inputs the rest of the importer needs. Grounded on
// Sumatoshi-tech-codefang's internal/config/loader.go (viper.New,
// SetDefault tree, explicit-path-or-search-path loading, struct
// Unmarshal).
package config

// FrontendEndpoint is one "frontend/endpoints/*/*" entry: a NATS
// subject an ingress publisher writes its stream key/topic/body frames
// to.
type FrontendEndpoint struct {
	Name    string `mapstructure:"name"`
	Subject string `mapstructure:"subject"`
}

// BackendDatabase is one "backend/databases/*" shard URI entry.
type BackendDatabase struct {
	Name string `mapstructure:"name"`
	URI  string `mapstructure:"uri"`
}

// StreamOverride is one "backend/streams/<app-env>/*" section.
type StreamOverride struct {
	App               string             `mapstructure:"app"`
	Env               string             `mapstructure:"env"`
	DBShardIndex      int                `mapstructure:"db_shard_index"`
	ImportThresholdMs float64            `mapstructure:"import_threshold"`
	IgnoredRequestPfx string             `mapstructure:"ignored_request_uri"`
	ModuleThresholds  map[string]float64 `mapstructure:"module_thresholds"`
}

// DefaultsSection is a "backend/defaults" (or per-env/per-app variant)
// block.
type DefaultsSection struct {
	ImportThresholdMs float64            `mapstructure:"import_threshold"`
	IgnoredRequestPfx string             `mapstructure:"ignored_request_uri"`
	ModuleThresholds  map[string]float64 `mapstructure:"module_thresholds"`
}

// MetricsSection lists the configured resource names per family (spec §3
// "metrics/{time,call,memory,heap,frontend,dom}/*").
type MetricsSection struct {
	Time     []string `mapstructure:"time"`
	Call     []string `mapstructure:"call"`
	Memory   []string `mapstructure:"memory"`
	Heap     []string `mapstructure:"heap"`
	Frontend []string `mapstructure:"frontend"`
	Dom      []string `mapstructure:"dom"`
}

// GraylogSection is carried through unchanged; the importer does not
// consume it but every other logjam component does, so it round-trips
// through config reloads without being dropped.
type GraylogSection struct {
	Endpoints []string `mapstructure:"endpoints"`
}

// Backend is the "backend" top-level config section.
type Backend struct {
	Databases         []BackendDatabase          `mapstructure:"databases"`
	Streams           []StreamOverride           `mapstructure:"streams"`
	Defaults          DefaultsSection            `mapstructure:"defaults"`
	EnvDefaults       map[string]DefaultsSection `mapstructure:"env_defaults"`
	AppDefaults       map[string]DefaultsSection `mapstructure:"app_defaults"`
	NATSURL           string                     `mapstructure:"nats_url"`
	RedisAddr         string                     `mapstructure:"redis_addr"`
	StreamSubscribe   []string                   `mapstructure:"stream_subscriptions"`
	LiveStreamSubject string                     `mapstructure:"live_stream_subject"`
}

// Frontend is the "frontend" top-level config section.
type Frontend struct {
	Endpoints []FrontendEndpoint `mapstructure:"endpoints"`
}

// ForwarderSection is the "forwarder" top-level config section, consumed
// only by `cmd/forwarder` (spec §4.8).
type ForwarderSection struct {
	NATSURL       string `mapstructure:"nats_url"`
	PullSubject   string `mapstructure:"pull_subject"`
	PushURL       string `mapstructure:"push_url"`
	PushSubject   string `mapstructure:"push_subject"`
	HighWaterMark int    `mapstructure:"high_water_mark"`
}

// Config is the fully-unmarshalled logjam.conf tree (spec §6).
type Config struct {
	Frontend  Frontend         `mapstructure:"frontend"`
	Backend   Backend          `mapstructure:"backend"`
	Metrics   MetricsSection   `mapstructure:"metrics"`
	Graylog   GraylogSection   `mapstructure:"graylog"`
	Forwarder ForwarderSection `mapstructure:"forwarder"`
}
