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

// Package logging configures the process-wide zerolog logger and hands out
// per-component child loggers, mirroring the way the teacher's workers each
// print their own banner (fmt.Printf("Starting background worker...")) but
// structured and leveled per spec §7's error taxonomy.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. When pretty is true (typically when stderr is
// a terminal) output goes through zerolog's console writer; otherwise it
// emits newline-delimited JSON suitable for log aggregation.
func New(pretty bool, level zerolog.Level) zerolog.Logger {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the owning component's name
// and, for pooled workers (parsers, stats-updaters, request-writers), its
// instance index.
func Component(base zerolog.Logger, name string, index int) zerolog.Logger {
	ctx := base.With().Str("component", name)
	if index >= 0 {
		ctx = ctx.Int("id", index)
	}
	return ctx.Logger()
}
