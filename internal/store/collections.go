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

package store

import (
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names, fixed per spec §4.6 "Persisted layout".
const (
	CollectionTotals       = "totals"
	CollectionMinutes      = "minutes"
	CollectionQuants       = "quants"
	CollectionRequests     = "requests"
	CollectionJSExceptions = "js_exceptions"
	CollectionEvents       = "events"
)

// CollectionCache caches *mongo.Collection handles per (db_name,
// collection) pair so hot-path writers don't call client.Database(...)
// .Collection(...) on every flush. Periodically dropped and rebuilt
// (spec §4.4 "every 3600 − (id+1) ticks, drop and rebuild the collection
// cache"; §4.5 analogous "known databases" cache).
type CollectionCache struct {
	client *mongo.Client
	mu     sync.Mutex
	byKey  map[string]*mongo.Collection
}

// NewCollectionCache builds an empty cache bound to client.
func NewCollectionCache(client *mongo.Client) *CollectionCache {
	return &CollectionCache{client: client, byKey: make(map[string]*mongo.Collection)}
}

// Get returns the cached handle for (dbName, collection), creating and
// caching it on first use.
func (c *CollectionCache) Get(dbName, collection string) *mongo.Collection {
	key := dbName + "\x00" + collection
	c.mu.Lock()
	defer c.mu.Unlock()
	if coll, ok := c.byKey[key]; ok {
		return coll
	}
	coll := c.client.Database(dbName).Collection(collection)
	c.byKey[key] = coll
	return coll
}

// Reset drops every cached handle, forcing the next Get to rebuild it.
func (c *CollectionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[string]*mongo.Collection)
}

// Size reports how many handles are currently cached, for metrics/tests.
func (c *CollectionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}
