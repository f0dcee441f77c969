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

package workers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"logjam/internal/bsonenc"
	"logjam/internal/dedup"
	"logjam/internal/logging"
	"logjam/internal/metrics"
	"logjam/internal/registry"
	"logjam/internal/store"
	"logjam/internal/transport"
)

// requestIDLength is the expected hex-encoded UUID length a request_id
// must have to be stored as a binary _id rather than a generated
// ObjectID (spec §4.5 step 2, §7 "invalid UUID-length request_id").
const requestIDLength = 32

// RequestWriter is one of the W=10 request-writer pool instances (spec
// §4.5): it transforms and inserts individual interesting requests, JS
// exceptions and events, publishing an error record to the live-stream
// for high-severity requests.
type RequestWriter struct {
	id         int
	shards     map[string]*store.Shard
	shardNames []string
	resources  *registry.Resources
	marker     *dedup.Marker
	pusher     *transport.Pusher
	cache      *store.CollectionCache
	log        zerolog.Logger
}

// NewRequestWriter builds a RequestWriter. pusher may be nil, in which
// case error records are simply not published (matching a dry-run
// deployment with no live-stream configured).
func NewRequestWriter(id int, shards map[string]*store.Shard, shardNames []string, resources *registry.Resources, marker *dedup.Marker, pusher *transport.Pusher, base zerolog.Logger) *RequestWriter {
	return &RequestWriter{
		id:         id,
		shards:     shards,
		shardNames: shardNames,
		resources:  resources,
		marker:     marker,
		pusher:     pusher,
		log:        logging.Component(base, "request-writer", id),
	}
}

func (w *RequestWriter) shardFor(info *registry.StreamInfo) *store.Shard {
	if info.DBShardIndex < 0 || info.DBShardIndex >= len(w.shardNames) {
		return nil
	}
	return w.shards[w.shardNames[info.DBShardIndex]]
}

func (w *RequestWriter) cacheFor(shard *store.Shard) *store.CollectionCache {
	if w.cache == nil {
		w.cache = store.NewCollectionCache(shard.Client)
	}
	return w.cache
}

// Run drains in (the parser pool's round-robin WriterMessage fan-out)
// and tick (spec §4.5's own housekeeping: ping every 5 ticks, drop the
// collection cache every 3600-(id+1) ticks) until ctx is cancelled.
func (w *RequestWriter) Run(ctx context.Context, in <-chan transport.WriterMessage, tick <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			w.handle(ctx, msg)
		case n := <-tick:
			w.onTick(ctx, n)
		}
	}
}

func (w *RequestWriter) handle(ctx context.Context, msg transport.WriterMessage) {
	shard := w.shardFor(msg.Stream)
	if shard == nil {
		w.log.Warn().Str("db", msg.DBName).Int("shard_index", msg.Stream.DBShardIndex).Msg("request-writer: no shard configured for stream")
		return
	}
	cache := w.cacheFor(shard)

	switch msg.Tag {
	case transport.TagRequest:
		w.handleRequest(ctx, cache, msg)
	case transport.TagJSException:
		w.handleSideDoc(ctx, cache, msg, store.CollectionJSExceptions, "js_exception")
	case transport.TagEvent:
		w.handleSideDoc(ctx, cache, msg, store.CollectionEvents, "event")
	}
}

func (w *RequestWriter) handleRequest(ctx context.Context, cache *store.CollectionCache, msg transport.WriterMessage) {
	requestID, _ := msg.Raw["request_id"].(string)

	if w.marker != nil && requestID != "" {
		first, err := w.marker.FirstDelivery(ctx, msg.DBName, requestID)
		if err != nil {
			w.log.Warn().Err(err).Str("db", msg.DBName).Str("request_id", requestID).Msg("dedup check failed, proceeding with insert")
		} else if !first {
			w.log.Debug().Str("db", msg.DBName).Str("request_id", requestID).Msg("duplicate request delivery, skipping insert")
			return
		}
	}

	errCtx := msg.DBName + ":" + requestID
	doc, err := bsonenc.ConvertMap(msg.Raw, errCtx)
	if err != nil {
		w.log.Warn().Err(err).Str("ctx", errCtx).Msg("convert request to bson")
		metrics.MessagesDropped.WithLabelValues("bson_convert").Inc()
		return
	}
	doc["_id"] = requestObjectID(requestID, w.log)

	coll := cache.Get(msg.DBName, store.CollectionRequests)
	if err := store.InsertRequest(ctx, coll, w.resources, doc); err != nil {
		w.log.Warn().Err(err).Str("ctx", errCtx).Msg("insert request")
		metrics.StorageErrors.WithLabelValues("request-writer").Inc()
		return
	}

	severity, _ := msg.Raw["severity"].(int)
	if severity > 1 {
		w.publishErrorRecord(msg, requestID, severity)
	}
}

// requestObjectID returns the request_id as a binary UUID when it is
// exactly requestIDLength hex characters, else logs a warning and
// generates a fresh ObjectID (spec §4.5 step 2).
func requestObjectID(requestID string, log zerolog.Logger) interface{} {
	if len(requestID) == requestIDLength {
		if raw, err := hex.DecodeString(requestID); err == nil && len(raw) == 16 {
			var id [16]byte
			copy(id[:], raw)
			return bsonenc.NewBinaryUUID(id)
		}
	}
	log.Warn().Str("request_id", requestID).Msg("invalid request_id length, generating fresh id")
	return primitive.NewObjectID()
}

// errorRecord is the error-stream payload composed for severity>1
// requests (spec §4.5 step 5).
type errorRecord struct {
	RequestID    string `json:"request_id"`
	Severity     int    `json:"severity"`
	Action       string `json:"action"`
	ResponseCode int    `json:"response_code"`
	Time         string `json:"time"`
	Description  string `json:"description"`
}

func (w *RequestWriter) publishErrorRecord(msg transport.WriterMessage, requestID string, severity int) {
	if w.pusher == nil {
		return
	}
	action, _ := msg.Raw["page"].(string)
	responseCode, _ := msg.Raw["response_code"].(int)
	startedAt, _ := msg.Raw["started_at"].(string)

	rec := errorRecord{
		RequestID:    requestID,
		Severity:     severity,
		Action:       action,
		ResponseCode: responseCode,
		Time:         startedAt,
		Description:  descriptionFor(msg.Raw, severity),
	}
	body, err := json.Marshal([]errorRecord{rec})
	if err != nil {
		w.log.Warn().Err(err).Str("request_id", requestID).Msg("marshal error record")
		return
	}

	appEnv := strings.ToLower(msg.Stream.Key)
	keys := []string{appEnv + ",all_pages", appEnv + "," + strings.ToLower(strings.TrimPrefix(msg.Module, "::"))}
	for _, key := range keys {
		if err := w.pusher.Push(transport.LiveStreamMessage{Key: key, Body: body}); err != nil {
			w.log.Warn().Err(err).Str("key", key).Msg("publish error record")
		}
	}
}

// descriptionFor returns the first lines[i][2] whose lines[i][0] >=
// severity, else the sentinel "------ unknown ------" (spec §4.5 step 5).
func descriptionFor(raw map[string]interface{}, severity int) string {
	lines, ok := raw["lines"].([]interface{})
	if !ok {
		return "------ unknown ------"
	}
	for _, entry := range lines {
		line, ok := entry.([]interface{})
		if !ok || len(line) < 3 {
			continue
		}
		level, ok := lineLevel(line[0])
		if !ok || level < severity {
			continue
		}
		if desc, ok := line[2].(string); ok {
			return desc
		}
	}
	return "------ unknown ------"
}

func lineLevel(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func (w *RequestWriter) handleSideDoc(ctx context.Context, cache *store.CollectionCache, msg transport.WriterMessage, collection, errCtxKind string) {
	errCtx := msg.DBName + ":" + errCtxKind
	doc, err := bsonenc.ConvertMap(msg.Raw, errCtx)
	if err != nil {
		w.log.Warn().Err(err).Str("ctx", errCtx).Msg("convert to bson")
		metrics.MessagesDropped.WithLabelValues("bson_convert").Inc()
		return
	}

	coll := cache.Get(msg.DBName, collection)
	var insertErr error
	switch errCtxKind {
	case "js_exception":
		insertErr = store.InsertJSException(ctx, coll, doc)
	case "event":
		insertErr = store.InsertEvent(ctx, coll, doc)
	}
	if insertErr != nil {
		w.log.Warn().Err(insertErr).Str("ctx", errCtx).Msg("insert " + errCtxKind)
		metrics.StorageErrors.WithLabelValues("request-writer").Inc()
	}
}

func (w *RequestWriter) onTick(ctx context.Context, n int) {
	if n%5 == 0 {
		for name, err := range store.Ping(ctx, w.shards) {
			if err != nil {
				w.log.Warn().Err(err).Str("shard", name).Msg("request-writer ping failed")
			}
		}
	}
	if period := 3600 - (w.id + 1); period > 0 && n%period == 0 {
		if w.cache != nil {
			w.cache.Reset()
		}
	}
}
