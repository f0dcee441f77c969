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

// Package shard assigns a db_name to one of the fixed-size stats-updater
// (M=10) or request-writer (W=10) worker pools (spec §4.4, §4.5: "sharded
// across updater instances by database name"), using rendezvous (highest
// random weight) hashing so that a pool resize remaps the minimum
// possible number of db_names instead of reshuffling the entire
// assignment like a plain modulus would. This generalizes the teacher's
// fnv-bucket balance check (internal/ratelimiter/core/shard_test.go
// Test_HashBalanceUniform) from a fixed modulus to a membership-stable
// scheme.
package shard

import (
	"strconv"

	"github.com/dgryski/go-rendezvous"
)

// hash is the node-weighting function handed to rendezvous.New. It must
// be stable across process restarts since shard assignment is a
// deployment-wide agreement, not a per-process cache.
func hash(s string) uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211 // FNV-1a prime
	}
	return h
}

// Ring maps db_names onto a fixed worker pool, indexed 0..n-1.
type Ring struct {
	rv    *rendezvous.Rendezvous
	nodes []string
}

// NewRing builds a Ring over n worker slots (e.g. the 10 stats-updater or
// 10 request-writer instances).
func NewRing(n int) *Ring {
	nodes := make([]string, n)
	for i := range nodes {
		nodes[i] = strconv.Itoa(i)
	}
	return &Ring{rv: rendezvous.New(nodes, hash), nodes: nodes}
}

// WorkerFor returns which worker index owns dbName.
func (r *Ring) WorkerFor(dbName string) int {
	idx, err := strconv.Atoi(r.rv.Lookup(dbName))
	if err != nil {
		// Node names are generated by NewRing itself, always decimal.
		panic("shard: corrupt node label: " + err.Error())
	}
	return idx
}

// Size returns the number of worker slots in the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}
