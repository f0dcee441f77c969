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
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// backgroundIndex builds every per-database index in the background, as
// the original importer's mongoc index_opt_default does.
func backgroundIndex() *options.IndexOptions {
	return options.Index().SetBackground(true)
}

// EnsureDatabaseIndexes creates the full index set for one day's
// database: totals/minutes/quants plus the requests and js_exceptions
// collections (spec §4.6 "Index set per database"). It is idempotent —
// mongo-driver's CreateMany is a no-op for indexes that already exist
// with the same keys.
func EnsureDatabaseIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensureTotalsIndexes(ctx, db.Collection(CollectionTotals)); err != nil {
		return err
	}
	if err := ensureMinutesIndexes(ctx, db.Collection(CollectionMinutes)); err != nil {
		return err
	}
	if err := ensureQuantsIndexes(ctx, db.Collection(CollectionQuants)); err != nil {
		return err
	}
	if err := ensureRequestsIndexes(ctx, db.Collection(CollectionRequests)); err != nil {
		return err
	}
	if err := ensureJSExceptionIndexes(ctx, db.Collection(CollectionJSExceptions)); err != nil {
		return err
	}
	return nil
}

func ensureTotalsIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "page", Value: 1}},
		Options: backgroundIndex(),
	})
	return wrapIndexErr(err, coll, "page")
}

func ensureMinutesIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "page", Value: 1}, {Key: "minute", Value: 1}},
		Options: backgroundIndex(),
	})
	return wrapIndexErr(err, coll, "page+minute")
}

func ensureQuantsIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "page", Value: 1}, {Key: "kind", Value: 1}, {Key: "quant", Value: 1}},
		Options: backgroundIndex(),
	})
	return wrapIndexErr(err, coll, "page+kind+quant")
}

func ensureRequestsIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "metrics.n", Value: 1}, {Key: "metrics.v", Value: -1}}, Options: backgroundIndex()},
		{Keys: bson.D{{Key: "page", Value: 1}, {Key: "metrics.n", Value: 1}, {Key: "metrics.v", Value: -1}}, Options: backgroundIndex()},
	}
	models = append(models, requestFieldIndexModels("response_code")...)
	models = append(models, requestFieldIndexModels("severity")...)
	models = append(models, requestFieldIndexModels("minute")...)
	models = append(models, requestFieldIndexModels("exceptions")...)
	_, err := coll.Indexes().CreateMany(ctx, models)
	return wrapIndexErr(err, coll, "requests")
}

// requestFieldIndexModels mirrors add_request_field_index: a sparse
// single-field index plus a (page, field) compound, both background.
func requestFieldIndexModels(field string) []mongo.IndexModel {
	sparse := options.Index().SetBackground(true).SetSparse(true)
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: field, Value: 1}}, Options: sparse},
		{Keys: bson.D{{Key: "page", Value: 1}, {Key: field, Value: 1}}, Options: backgroundIndex()},
	}
}

func ensureJSExceptionIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "logjam_request_id", Value: 1}}, Options: backgroundIndex()},
		{Keys: bson.D{{Key: "description", Value: 1}}, Options: backgroundIndex()},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return wrapIndexErr(err, coll, "js_exceptions")
}

func wrapIndexErr(err error, coll *mongo.Collection, label string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("create index %s on %s.%s: %w", label, coll.Database().Name(), coll.Name(), err)
}
