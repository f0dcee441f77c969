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

package model

import (
	"sync"

	"logjam/internal/accum"
	"logjam/internal/registry"
)

// Increments is the per-namespace bundle of counters accumulated between
// ticks (spec §3 "Increments bundle"). One Increments exists per
// (db, namespace) pair in a Processor's totals map, per (minute, namespace)
// pair in its minutes map, and is also the flush unit handed to the
// stats-updater pool.
type Increments struct {
	resources *registry.Resources

	BackendCount accum.Counter
	PageCount    accum.Counter
	AjaxCount    accum.Counter

	metrics []accum.Accumulator // index-aligned with resources

	mu     sync.Mutex
	others map[string]float64 // "response.<code>", "severity.<n>", "apdex.*", "exceptions.<class>", ...
}

// NewIncrements allocates an Increments sized to the shared resource
// registry. resources must outlive the Increments it sizes.
func NewIncrements(resources *registry.Resources) *Increments {
	return &Increments{
		resources: resources,
		metrics:   make([]accum.Accumulator, resources.Len()),
		others:    make(map[string]float64),
	}
}

// AddMetric adds value to the accumulator at the resource index. Callers
// that don't know the index ahead of time should resolve it once via
// resources.Index and cache it, rather than calling AddMetricByName in a
// hot loop.
func (inc *Increments) AddMetric(index int, value float64) {
	if index < 0 || index >= len(inc.metrics) {
		return
	}
	inc.metrics[index].Add(value)
}

// AddMetricByName resolves name against the shared registry and adds
// value, a no-op if the resource is unknown (spec §4.2g: unknown
// resources are simply not tracked, not an error).
func (inc *Increments) AddMetricByName(name string, value float64) {
	idx, ok := inc.resources.Index(name)
	if !ok {
		return
	}
	inc.AddMetric(idx, value)
}

// AddOther increments a named scalar counter outside the fixed resource
// set (response codes, severities, apdex buckets, exception classes,
// caller pairs — spec §4.2h-k).
func (inc *Increments) AddOther(key string, delta float64) {
	inc.mu.Lock()
	inc.others[key] += delta
	inc.mu.Unlock()
}

// Snapshot is the immutable result of a Commit: one (sum, sumSquares) pair
// per resource index plus the resolved "others" map and request counters.
type Snapshot struct {
	BackendCount float64
	PageCount    float64
	AjaxCount    float64
	Sums         []float64 // per resource index
	SumSquares   []float64 // per resource index
	Others       map[string]float64
}

// Commit drains the bundle into a Snapshot and resets it to zero, clamping
// every negative sum to zero before it leaves the process (spec §3
// invariant: "negative sums are never stored"; resolved in SPEC_FULL.md to
// apply at flush/persist time, since other_time is allowed to go negative
// as a raw intermediate value).
func (inc *Increments) Commit() Snapshot {
	snap := Snapshot{
		BackendCount: inc.BackendCount.Commit(),
		PageCount:    inc.PageCount.Commit(),
		AjaxCount:    inc.AjaxCount.Commit(),
		Sums:         make([]float64, len(inc.metrics)),
		SumSquares:   make([]float64, len(inc.metrics)),
	}
	for i := range inc.metrics {
		sum, sq := inc.metrics[i].Commit()
		if sum < 0 {
			sum = 0
		}
		snap.Sums[i] = sum
		snap.SumSquares[i] = sq
	}

	inc.mu.Lock()
	snap.Others = inc.others
	inc.others = make(map[string]float64)
	inc.mu.Unlock()
	for k, v := range snap.Others {
		if v < 0 {
			snap.Others[k] = 0
		} else {
			snap.Others[k] = v
		}
	}
	return snap
}

// Peek returns a Snapshot of the bundle's current state without resetting
// it, for read-only consumers (live-stream publishing) that run before the
// one-time draining Commit handed to the stats-updater pool later in the
// same tick (spec §9 ordering guarantee (b); see DESIGN.md live-totals
// peek/commit-ownership note).
func (inc *Increments) Peek() Snapshot {
	snap := Snapshot{
		Sums:       make([]float64, len(inc.metrics)),
		SumSquares: make([]float64, len(inc.metrics)),
	}
	snap.BackendCount = inc.BackendCount.State()
	snap.PageCount = inc.PageCount.State()
	snap.AjaxCount = inc.AjaxCount.State()
	for i := range inc.metrics {
		sum, sq := inc.metrics[i].State()
		if sum < 0 {
			sum = 0
		}
		snap.Sums[i] = sum
		snap.SumSquares[i] = sq
	}

	inc.mu.Lock()
	snap.Others = make(map[string]float64, len(inc.others))
	for k, v := range inc.others {
		if v < 0 {
			v = 0
		}
		snap.Others[k] = v
	}
	inc.mu.Unlock()
	return snap
}

// IsZero reports whether committing now would yield an empty snapshot,
// used by the flush step to skip writes for namespaces with no traffic
// this tick (spec §4.4 "skip empty increments").
func (inc *Increments) IsZero() bool {
	if inc.BackendCount.State() != 0 || inc.PageCount.State() != 0 || inc.AjaxCount.State() != 0 {
		return false
	}
	inc.mu.Lock()
	empty := len(inc.others) == 0
	inc.mu.Unlock()
	if !empty {
		return false
	}
	for i := range inc.metrics {
		if !inc.metrics[i].IsZero() {
			return false
		}
	}
	return true
}
