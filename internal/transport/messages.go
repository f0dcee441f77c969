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

// Package transport carries the tagged inter-worker messages and the
// NATS-backed ingress/egress boundaries (spec §9 "Tagged messages", §6
// "External Interfaces").
package transport

import (
	"logjam/internal/model"
	"logjam/internal/registry"
)

// Tag is the single-byte discriminator every inter-worker message
// carries, matching the wire tags the original importer multiplexed onto
// its inproc sockets.
type Tag byte

const (
	TagTotals      Tag = 't'
	TagMinutes     Tag = 'm'
	TagQuants      Tag = 'q'
	TagRequest     Tag = 'r'
	TagJSException Tag = 'j'
	TagEvent       Tag = 'e'
)

// RawMessage is one decoded ingress frame: a publisher stream key, a
// topic string used for §4.2 step 5 dispatch, and the JSON payload.
type RawMessage struct {
	Stream string
	Topic  string
	Body   []byte
}

// IndexerRequest is the fire-and-forget message a parser sends on
// Processor creation, so the indexer can build indices ahead of the
// first write (spec §4.2 step 4, §9 ordering guarantee (c)).
type IndexerRequest struct {
	DBName string
	Stream *registry.StreamInfo
}

// UpdaterMessage is a controller -> stats-updater tick shipment. Exactly
// one of Totals, Minutes or Quants is populated, selected by Tag (spec
// §4.3 step 5, §4.4).
type UpdaterMessage struct {
	Tag     Tag
	DBName  string
	Stream  *registry.StreamInfo
	Totals  map[string]*model.Increments // Tag == TagTotals: namespace -> bundle
	Minutes map[string]*model.Increments // Tag == TagMinutes: "<minute>-<namespace>" -> bundle
	Quants  []model.QuantEntry           // Tag == TagQuants
}

// WriterMessage is a parser -> request-writer handoff: an individual
// interesting request, JS exception, or event (spec §4.5).
type WriterMessage struct {
	Tag    Tag // TagRequest, TagJSException or TagEvent
	DBName string
	Stream *registry.StreamInfo
	Module string
	Raw    map[string]interface{}
}

// LiveStreamMessage is a 2-frame (key, json) publish on the live-stream
// channel (spec §4.3 step 3, §4.5 step 5).
type LiveStreamMessage struct {
	Key  string
	Body []byte
}
