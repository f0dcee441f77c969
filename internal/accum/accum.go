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

// Package accum provides a thread-safe sum / sum-of-squares accumulator.
//
// It is the aggregation-domain cousin of the teacher's pkg/vsa.VSA: instead
// of tracking a stable scalar plus a volatile vector that gets reconciled
// against it on Commit, an Accumulator has no durable half at all — the
// durable total lives in the document store, and every tick unconditionally
// ships the accumulated delta there via $inc. Commit therefore always
// resets to zero rather than subtracting a committed value.
package accum

import "sync"

// Accumulator tracks a running sum and sum-of-squares for one
// resource metric within one Increments bucket. Safe for concurrent Add
// calls from multiple parser goroutines is not required (each Increments
// bucket is owned by exactly one parser between ticks), but every method
// is still mutex-guarded so the type is safe to reuse if that ownership
// assumption is ever relaxed.
type Accumulator struct {
	mu  sync.Mutex
	sum float64
	sq  float64
}

// Add folds value into the running sum and sum-of-squares.
func (a *Accumulator) Add(value float64) {
	a.mu.Lock()
	a.sum += value
	a.sq += value * value
	a.mu.Unlock()
}

// State returns the current sum and sum-of-squares without resetting them.
func (a *Accumulator) State() (sum, sumSquares float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum, a.sq
}

// Commit returns the current sum and sum-of-squares and resets both to
// zero. Call this once per tick, right before shipping the delta to the
// stats-updater pool.
func (a *Accumulator) Commit() (sum, sumSquares float64) {
	a.mu.Lock()
	sum, sumSquares = a.sum, a.sq
	a.sum, a.sq = 0, 0
	a.mu.Unlock()
	return sum, sumSquares
}

// AddState folds an already-computed (sum, sumSquares) pair into the
// accumulator, used when merging two accumulators' committed snapshots
// rather than folding in raw values one at a time.
func (a *Accumulator) AddState(sum, sumSquares float64) {
	a.mu.Lock()
	a.sum += sum
	a.sq += sumSquares
	a.mu.Unlock()
}

// IsZero reports whether the accumulator currently holds no delta.
func (a *Accumulator) IsZero() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum == 0 && a.sq == 0
}

// Counter is a small atomic-free, mutex-guarded accumulator used for an
// Increments bundle's backend_count, page_count and ajax_count, which are
// plain increments rather than sum/sum-of-squares pairs.
type Counter struct {
	mu sync.Mutex
	n  float64
}

// Add increments the counter by delta (delta may be fractional).
func (c *Counter) Add(delta float64) {
	c.mu.Lock()
	c.n += delta
	c.mu.Unlock()
}

// Commit returns the current value and resets it to zero.
func (c *Counter) Commit() float64 {
	c.mu.Lock()
	n := c.n
	c.n = 0
	c.mu.Unlock()
	return n
}

// State returns the current value without resetting it.
func (c *Counter) State() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
