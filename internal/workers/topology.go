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

// Package workers wires the seven components of spec §4 (Subscriber,
// Parser pool, Controller, Indexer, Stats-updater pool, Request-writer
// pool, plus the standalone Forwarder in internal/forwarder) into one
// running topology. Grounded on the teacher's internal/ratelimiter/
// core/worker.go tick/commit/evict loop shape for the ticker-driven
// control flow, generalized from a single background worker to several
// pools coordinated by a controller.
package workers

// Topology sizes the three worker pools (spec §2 "Component roles
// summary"). Defaults match the spec's own sizing (N=4 parsers, M=10
// stats-updaters, W=10 request-writers).
type Topology struct {
	Parsers       int
	StatsUpdaters int
	Writers       int
	QueueDepth    int
}

// DefaultTopology returns the spec's stated defaults.
func DefaultTopology() Topology {
	return Topology{Parsers: 4, StatsUpdaters: 10, Writers: 10, QueueDepth: 1000}
}
