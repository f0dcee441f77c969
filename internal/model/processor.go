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
	"fmt"
	"sync"

	"logjam/internal/registry"
)

// Processor is the per-database, per-tick aggregation state described in
// spec §3 "Processor state": one instance exists per (parser, db_name)
// pair between ticks, and two instances for the same db_name are merged
// by the controller at tick time (spec §4.1 step 2). Lookup patterns
// mirror the teacher's sync.Map-backed GetOrCreate/ForEach/Delete store
// (internal/ratelimiter/core/store.go), generalized from a single
// fixed-shape value to the three differently-keyed maps the spec needs.
type Processor struct {
	DBName string
	Stream *registry.StreamInfo

	resources *registry.Resources

	requestCount uint64

	mu      sync.Mutex
	modules map[string]struct{}
	totals  map[string]*Increments          // namespace -> bundle
	minutes map[string]*Increments          // "<minute>-<namespace>" -> bundle
	quants  map[string]map[int]*accumCounts // "<kind>-<namespace>" -> bucket -> counts
}

// accumCounts is the per-resource-index quantile bucket-count array for
// one (kind, namespace, bucket) triple.
type accumCounts struct {
	counts []uint64 // index-aligned with resources
}

// NewProcessor allocates an empty Processor for dbName/stream, sized
// against the shared resource registry.
func NewProcessor(dbName string, stream *registry.StreamInfo, resources *registry.Resources) *Processor {
	return &Processor{
		DBName:    dbName,
		Stream:    stream,
		resources: resources,
		modules:   make(map[string]struct{}),
		totals:    make(map[string]*Increments),
		minutes:   make(map[string]*Increments),
		quants:    make(map[string]map[int]*accumCounts),
	}
}

// IncrementRequestCount bumps the processor's total request count by one,
// called once per accepted (non-dropped) request.
func (p *Processor) IncrementRequestCount() {
	p.mu.Lock()
	p.requestCount++
	p.mu.Unlock()
}

// RequestCount returns the current request count without resetting it.
func (p *Processor) RequestCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestCount
}

// AddModule records that module was seen this tick, so the indexer and
// stats-updater can lazily create per-module collections/documents (spec
// §4.2a, §4.6).
func (p *Processor) AddModule(name string) {
	if name == "" {
		return
	}
	p.mu.Lock()
	p.modules[name] = struct{}{}
	p.mu.Unlock()
}

// Modules returns the set of modules seen this tick.
func (p *Processor) Modules() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.modules))
	for m := range p.modules {
		out = append(out, m)
	}
	return out
}

// TotalsFor returns the Increments bundle for namespace's all-time total
// row, creating it on first use.
func (p *Processor) TotalsFor(namespace string) *Increments {
	p.mu.Lock()
	defer p.mu.Unlock()
	inc, ok := p.totals[namespace]
	if !ok {
		inc = NewIncrements(p.resources)
		p.totals[namespace] = inc
	}
	return inc
}

// MinuteFor returns the Increments bundle for the (minute, namespace) row,
// creating it on first use.
func (p *Processor) MinuteFor(minute int, namespace string) *Increments {
	key := fmt.Sprintf("%d-%s", minute, namespace)
	p.mu.Lock()
	defer p.mu.Unlock()
	inc, ok := p.minutes[key]
	if !ok {
		inc = NewIncrements(p.resources)
		p.minutes[key] = inc
	}
	return inc
}

// AddQuant increments the bucket-count for (kind, namespace, bucket) at
// the given resource index (spec §3 "Quantile bucketing").
func (p *Processor) AddQuant(kind QuantKind, namespace string, bucket, resourceIndex int) {
	if resourceIndex < 0 {
		return
	}
	key := fmt.Sprintf("%c-%s", byte(kind), namespace)
	p.mu.Lock()
	defer p.mu.Unlock()
	byBucket, ok := p.quants[key]
	if !ok {
		byBucket = make(map[int]*accumCounts)
		p.quants[key] = byBucket
	}
	ac, ok := byBucket[bucket]
	if !ok {
		ac = &accumCounts{counts: make([]uint64, p.resources.Len())}
		byBucket[bucket] = ac
	}
	if resourceIndex < len(ac.counts) {
		ac.counts[resourceIndex]++
	}
}

// QuantEntry is one flushable (kind, namespace, bucket) row.
type QuantEntry struct {
	Kind      QuantKind
	Namespace string
	Bucket    int
	Counts    []uint64
}

// ForEachTotal visits every (namespace, *Increments) pair in the totals
// map. fn must not call back into the Processor.
func (p *Processor) ForEachTotal(fn func(namespace string, inc *Increments)) {
	p.mu.Lock()
	snapshot := make(map[string]*Increments, len(p.totals))
	for k, v := range p.totals {
		snapshot[k] = v
	}
	p.mu.Unlock()
	for k, v := range snapshot {
		fn(k, v)
	}
}

// ForEachMinute visits every ("<minute>-<namespace>", *Increments) pair.
func (p *Processor) ForEachMinute(fn func(minute int, namespace string, inc *Increments)) {
	p.mu.Lock()
	snapshot := make(map[string]*Increments, len(p.minutes))
	for k, v := range p.minutes {
		snapshot[k] = v
	}
	p.mu.Unlock()
	for k, v := range snapshot {
		var minute int
		var namespace string
		if _, err := fmt.Sscanf(k, "%d-%s", &minute, &namespace); err != nil {
			continue
		}
		fn(minute, namespace, v)
	}
}

// ForEachQuant visits every flushable quantile row and clears the
// underlying map, since quant bucket counts (unlike Increments) have no
// built-in Commit step.
func (p *Processor) ForEachQuant(fn func(entry QuantEntry)) {
	p.mu.Lock()
	snapshot := p.quants
	p.quants = make(map[string]map[int]*accumCounts)
	p.mu.Unlock()

	for key, byBucket := range snapshot {
		var kindByte byte
		var namespace string
		if n, err := fmt.Sscanf(key, "%c-%s", &kindByte, &namespace); err != nil || n != 2 {
			continue
		}
		for bucket, ac := range byBucket {
			fn(QuantEntry{
				Kind:      QuantKind(kindByte),
				Namespace: namespace,
				Bucket:    bucket,
				Counts:    ac.counts,
			})
		}
	}
}

// Merge folds other's state into p, used by the controller to combine two
// Processor instances for the same db_name held by different parsers
// before a tick flush (spec §4.1 step 2). other is left unusable after
// Merge returns.
func (p *Processor) Merge(other *Processor) {
	if other == nil {
		return
	}
	other.mu.Lock()
	p.mu.Lock()

	p.requestCount += other.requestCount
	for m := range other.modules {
		p.modules[m] = struct{}{}
	}
	for ns, otherInc := range other.totals {
		inc, ok := p.totals[ns]
		if !ok {
			p.totals[ns] = otherInc
			continue
		}
		mergeIncrements(inc, otherInc)
	}
	for key, otherInc := range other.minutes {
		inc, ok := p.minutes[key]
		if !ok {
			p.minutes[key] = otherInc
			continue
		}
		mergeIncrements(inc, otherInc)
	}
	for key, otherByBucket := range other.quants {
		byBucket, ok := p.quants[key]
		if !ok {
			p.quants[key] = otherByBucket
			continue
		}
		for bucket, otherAC := range otherByBucket {
			ac, ok := byBucket[bucket]
			if !ok {
				byBucket[bucket] = otherAC
				continue
			}
			for i, c := range otherAC.counts {
				if i < len(ac.counts) {
					ac.counts[i] += c
				}
			}
		}
	}

	p.mu.Unlock()
	other.mu.Unlock()
}

// mergeIncrements folds src's pending (uncommitted) state into dst by
// committing src and re-adding the result to dst. Safe because a
// Processor about to be merged away is never read again afterward.
func mergeIncrements(dst, src *Increments) {
	snap := src.Commit()
	dst.BackendCount.Add(snap.BackendCount)
	dst.PageCount.Add(snap.PageCount)
	dst.AjaxCount.Add(snap.AjaxCount)
	for i, sum := range snap.Sums {
		if sum == 0 && snap.SumSquares[i] == 0 {
			continue
		}
		dst.metrics[i].AddState(sum, snap.SumSquares[i])
	}
	for k, v := range snap.Others {
		dst.AddOther(k, v)
	}
}
