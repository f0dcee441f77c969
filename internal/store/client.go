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

// Package store is the document-store persistence layer: a Mongo client
// per configured shard, per-database collection-handle caches, the
// upsert-with-$inc write path for totals/minutes/quants, the requests/
// js_exceptions/events insert path, index creation, and the
// logjam-global metadata "known databases" set (spec §4.4, §4.5, §4.6).
// Grounded on the mongo-driver usage in other_examples'
// flowcatalyst-flowcatalyst stream-processor.go, generalized from a
// single-database change-stream projector to a multi-shard,
// multi-database write path, and on the original C importer's
// mongoc_collection_update/create_index calls for exact selector/index
// shapes.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GlobalDatabase is the fixed database name for cross-stream metadata
// (spec §4.6 "logjam-global.metadata").
const GlobalDatabase = "logjam-global"

// MetadataCollection is the collection inside GlobalDatabase holding the
// known-databases set.
const MetadataCollection = "metadata"

// Shard wraps one Mongo client for one configured backend ("backend/
// databases/*" in the config file, spec §9).
type Shard struct {
	Name   string
	Client *mongo.Client
}

// Dial connects to every configured shard URI, keyed by shard name.
func Dial(ctx context.Context, uris map[string]string) (map[string]*Shard, error) {
	shards := make(map[string]*Shard, len(uris))
	for name, uri := range uris {
		opts := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("connect shard %q: %w", name, err)
		}
		shards[name] = &Shard{Name: name, Client: client}
	}
	return shards, nil
}

// Ping issues a no-op ping against every shard, logging failures rather
// than treating them as fatal (spec §4.4 "on a ping interval, issue a
// no-op ping to every shard client" — reconnection recovery, not a
// health gate).
func Ping(ctx context.Context, shards map[string]*Shard) map[string]error {
	results := make(map[string]error)
	for name, shard := range shards {
		results[name] = shard.Client.Ping(ctx, nil)
	}
	return results
}

// Close disconnects every shard client.
func Close(ctx context.Context, shards map[string]*Shard) {
	for _, shard := range shards {
		_ = shard.Client.Disconnect(ctx)
	}
}
