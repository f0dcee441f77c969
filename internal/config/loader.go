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
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

const configType = "yaml"

// Load reads path (the `-c` flag default "logjam.conf") into a Config. A
// missing file is not fatal per the original importer's own startup
// check only applying to an explicit bad path; here, per spec §9
// "Fatal: missing config file", a missing *explicit* path is an error —
// there is no search-path fallback, unlike the teacher's loader, since
// the importer always names its config file explicitly on the command
// line.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)
	v.SetConfigType(configType)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("missing config file %q: %w", path, err)
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %q: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("backend.defaults.import_threshold", 100.0)
	v.SetDefault("backend.stream_subscriptions", []string{})
	v.SetDefault("backend.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("backend.live_stream_subject", "logjam-live-stream")
	v.SetDefault("metrics.time", []string{"total_time", "gc_time", "other_time"})
	v.SetDefault("metrics.call", []string{"allocated_memory"})
	v.SetDefault("forwarder.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("forwarder.pull_subject", "graylog-forwarder-writer")
	v.SetDefault("forwarder.push_subject", "graylog-forwarder")
	v.SetDefault("forwarder.high_water_mark", 10000)
}
