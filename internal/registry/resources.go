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

// Package registry holds the two process-wide, read-only-after-setup
// tables described in spec §3: the resource registry (metric names <->
// dense indices) and the stream registry (per-publisher descriptors). Both
// are built once at startup from internal/config and then shared by
// reference across every worker for the life of the process — spec §9
// "Global state" and "Back-references".
package registry

import (
	"fmt"
	"sort"
)

// MaxResources is the cardinality cap from spec §3.
const MaxResources = 100

// Family groups a resource under one of the six configured metric
// families named in spec §3 and §6 (metrics/{time,call,memory,heap,
// frontend,dom}/*).
type Family string

const (
	FamilyTime     Family = "time"
	FamilyCall     Family = "call"
	FamilyMemory   Family = "memory"
	FamilyHeap     Family = "heap"
	FamilyFrontend Family = "frontend"
	FamilyDom      Family = "dom"
)

// AllowedFamilies lists the six families accepted by NewResources, in the
// order config sections are consumed (spec §6).
var AllowedFamilies = []Family{FamilyTime, FamilyCall, FamilyMemory, FamilyHeap, FamilyFrontend, FamilyDom}

// Resources is the bidirectional name<->index mapping for configured
// metric resources. It is built once at startup and is safe for
// concurrent read access from every worker thereafter (no further writes
// occur once NewResources returns).
type Resources struct {
	names       []string          // index -> name
	index       map[string]int    // name -> index
	family      map[string]Family // name -> family
	allocObjIdx int               // cached "allocated_objects" index, -1 if absent
	allocByIdx  int               // cached "allocated_bytes" index, -1 if absent
	otherTime   map[string]bool   // other_time_resources set (name -> true)
}

// NewResources builds a Resources table from a family->names map, in the
// order of AllowedFamilies for deterministic indices. It enforces the
// MaxResources cardinality cap and excludes total_time, gc_time and
// other_time from the other_time_resources subset (spec §3).
func NewResources(byFamily map[Family][]string) (*Resources, error) {
	r := &Resources{
		index:  make(map[string]int),
		family: make(map[string]Family),
		otherTime: make(map[string]bool),
	}
	for _, fam := range AllowedFamilies {
		for _, name := range byFamily[fam] {
			if _, exists := r.index[name]; exists {
				continue // same name configured under two families: keep first index
			}
			if len(r.names) >= MaxResources {
				return nil, fmt.Errorf("registry: resource cardinality exceeds cap of %d", MaxResources)
			}
			r.index[name] = len(r.names)
			r.names = append(r.names, name)
			r.family[name] = fam
			if name != "total_time" && name != "gc_time" && name != "other_time" {
				r.otherTime[name] = true
			}
		}
	}
	r.allocObjIdx = r.lookupOrMinusOne("allocated_objects")
	r.allocByIdx = r.lookupOrMinusOne("allocated_bytes")
	return r, nil
}

func (r *Resources) lookupOrMinusOne(name string) int {
	if idx, ok := r.index[name]; ok {
		return idx
	}
	return -1
}

// Len returns the number of configured resources.
func (r *Resources) Len() int { return len(r.names) }

// Index returns the dense index for a resource name and whether it is
// configured at all.
func (r *Resources) Index(name string) (int, bool) {
	idx, ok := r.index[name]
	return idx, ok
}

// Name returns the resource name for a dense index.
func (r *Resources) Name(idx int) string {
	if idx < 0 || idx >= len(r.names) {
		return ""
	}
	return r.names[idx]
}

// SumOfSquaresName returns the derived "<resource>_sq" name for a
// resource, used when persisting sum-of-squares accumulations.
func SumOfSquaresName(name string) string {
	return name + "_sq"
}

// Family returns the configured family for a resource name.
func (r *Resources) Family(name string) (Family, bool) {
	f, ok := r.family[name]
	return f, ok
}

// AllocatedObjectsIndex returns the cached index of "allocated_objects",
// or -1 if that resource is not configured.
func (r *Resources) AllocatedObjectsIndex() int { return r.allocObjIdx }

// AllocatedBytesIndex returns the cached index of "allocated_bytes", or -1
// if that resource is not configured.
func (r *Resources) AllocatedBytesIndex() int { return r.allocByIdx }

// IsOtherTimeResource reports whether name is in the other_time_resources
// subset (every configured resource except total_time, gc_time, and
// other_time itself).
func (r *Resources) IsOtherTimeResource(name string) bool { return r.otherTime[name] }

// OtherTimeResources returns the other_time_resources subset, sorted for
// deterministic iteration (used by other_time computation, spec §4.2g).
func (r *Resources) OtherTimeResources() []string {
	out := make([]string, 0, len(r.otherTime))
	for name := range r.otherTime {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Names returns all configured resource names in index order.
func (r *Resources) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
