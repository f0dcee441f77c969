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

	"logjam/internal/model"
	"logjam/internal/registry"
)

var upsertTrue = options.Update().SetUpsert(true)

// incrementsToInc builds the $inc document for one Increments snapshot,
// mirroring increments_to_bson: every non-zero resource contributes its
// sum and sum-of-squares, and every "others" counter contributes
// verbatim (spec §4.4).
func incrementsToInc(resources *registry.Resources, snap model.Snapshot) bson.M {
	inc := bson.M{
		"backend_count": snap.BackendCount,
		"page_count":    snap.PageCount,
		"ajax_count":    snap.AjaxCount,
	}
	for i, sum := range snap.Sums {
		if sum <= 0 {
			continue
		}
		name := resources.Name(i)
		inc[name] = sum
		inc[registry.SumOfSquaresName(name)] = snap.SumSquares[i]
	}
	for k, v := range snap.Others {
		inc[k] = v
	}
	return bson.M{"$inc": inc}
}

// UpsertTotals applies one page/module/all_pages namespace's committed
// Increments to the totals collection, selector {page: namespace}
// (spec §4.4, grounded on totals_add_increments).
func UpsertTotals(ctx context.Context, coll *mongo.Collection, resources *registry.Resources, namespace string, snap model.Snapshot) error {
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		selector := bson.M{"page": namespace}
		_, err := coll.UpdateOne(ctx, selector, incrementsToInc(resources, snap), upsertTrue)
		if err != nil {
			return fmt.Errorf("upsert totals[%s]: %w", namespace, err)
		}
		return nil
	})
}

// UpsertMinutes applies one "<minute>-<namespace>" bucket's committed
// Increments to the minutes collection, selector {page, minute}
// (grounded on minutes_add_increments).
func UpsertMinutes(ctx context.Context, coll *mongo.Collection, resources *registry.Resources, minute int, namespace string, snap model.Snapshot) error {
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		selector := bson.M{"page": namespace, "minute": minute}
		_, err := coll.UpdateOne(ctx, selector, incrementsToInc(resources, snap), upsertTrue)
		if err != nil {
			return fmt.Errorf("upsert minutes[%d-%s]: %w", minute, namespace, err)
		}
		return nil
	})
}

// UpsertQuant applies one quantile bucket's resource counts to the
// quants collection, selector {page, kind, quant} (grounded on
// quants_add_quants).
func UpsertQuant(ctx context.Context, coll *mongo.Collection, resources *registry.Resources, entry model.QuantEntry) error {
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		selector := bson.M{
			"page":  entry.Namespace,
			"kind":  string(entry.Kind),
			"quant": entry.Bucket,
		}
		inc := bson.M{}
		for i, count := range entry.Counts {
			if count == 0 {
				continue
			}
			inc[resources.Name(i)] = count
		}
		if len(inc) == 0 {
			return nil
		}
		_, err := coll.UpdateOne(ctx, selector, bson.M{"$inc": inc}, upsertTrue)
		if err != nil {
			return fmt.Errorf("upsert quants[%s-%s-%d]: %w", string(entry.Kind), entry.Namespace, entry.Bucket, err)
		}
		return nil
	})
}

// InsertRequest inserts one interesting request document, first moving
// any non-zero resource value from a top-level field into the
// request's "metrics" array (spec §4.5 step 1, grounded on the original
// importer's equivalent transform ahead of mongoc_collection_insert).
func InsertRequest(ctx context.Context, coll *mongo.Collection, resources *registry.Resources, doc bson.M) error {
	TransformRequestMetrics(resources, doc)
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		return nil
	})
}

// TransformRequestMetrics mutates doc in place: for every known
// resource present and non-zero at the top level, it is moved into a
// "metrics": [{n: name, v: value}, ...] array and the top-level key is
// deleted (spec §4.5 step 1).
func TransformRequestMetrics(resources *registry.Resources, doc bson.M) {
	var metricsArr bson.A
	for _, name := range resources.Names() {
		raw, ok := doc[name]
		if !ok {
			continue
		}
		v, ok := toFloat(raw)
		if !ok || v == 0 {
			delete(doc, name)
			continue
		}
		metricsArr = append(metricsArr, bson.M{"n": name, "v": v})
		delete(doc, name)
	}
	if len(metricsArr) > 0 {
		doc["metrics"] = metricsArr
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// InsertJSException inserts one JS-exception document into
// js_exceptions (spec §4.5 step "'j' ... context js_exception").
func InsertJSException(ctx context.Context, coll *mongo.Collection, doc bson.M) error {
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("insert js_exception: %w", err)
		}
		return nil
	})
}

// InsertEvent inserts one event document into events (spec §4.5 step
// "'e' ... context event").
func InsertEvent(ctx context.Context, coll *mongo.Collection, doc bson.M) error {
	return Upsert(ctx, DataRetryPolicy, func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
}

// EnsureKnownDatabase records dbName in logjam-global.metadata's
// {name: "databases"} $addToSet document, using the 5-retry metadata
// policy (spec §4.6, grounded on ensure_known_database).
func EnsureKnownDatabase(ctx context.Context, globalMeta *mongo.Collection, dbName string) error {
	return Upsert(ctx, MetadataRetryPolicy, func(ctx context.Context) error {
		selector := bson.M{"name": "databases"}
		update := bson.M{"$addToSet": bson.M{"value": dbName}}
		_, err := globalMeta.UpdateOne(ctx, selector, update, upsertTrue)
		if err != nil {
			return fmt.Errorf("ensure known database %s: %w", dbName, err)
		}
		return nil
	})
}
