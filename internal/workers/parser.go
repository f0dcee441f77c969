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
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"logjam/internal/errkind"
	"logjam/internal/logging"
	"logjam/internal/metrics"
	"logjam/internal/model"
	"logjam/internal/parse"
	"logjam/internal/registry"
	"logjam/internal/transport"
)

// TickSnapshot is what a Parser hands back to the controller on tick:
// its accumulated per-database Processor map and how many messages it
// parsed this tick (spec §4.3 step 1).
type TickSnapshot struct {
	Processors map[string]*model.Processor
	Parsed     uint64
}

// Parser is one of the N parser pool instances (spec §4.2): it owns one
// JSON decoder worth of parsing logic and one aggregation map keyed by
// database name, reset fresh on every controller tick.
type Parser struct {
	ID        int
	resources *registry.Resources
	streams   *registry.Streams

	indexerOut chan<- transport.IndexerRequest
	writerOut  []chan<- transport.WriterMessage // round-robin by db_name shard
	writerSel  func(dbName string) int

	log zerolog.Logger

	mu         sync.Mutex
	processors map[string]*model.Processor
	parsed     uint64
}

// NewParser builds a Parser. writerSel selects which of writerOut's
// channels owns a given db_name (spec §4.5's "connects to all of them,
// distributing round-robin" — generalized to a stable rendezvous choice
// so a writer's in-memory per-db caches stay warm across ticks).
func NewParser(id int, resources *registry.Resources, streams *registry.Streams, indexerOut chan<- transport.IndexerRequest, writerOut []chan<- transport.WriterMessage, writerSel func(string) int, base zerolog.Logger) *Parser {
	return &Parser{
		ID:         id,
		resources:  resources,
		streams:    streams,
		indexerOut: indexerOut,
		writerOut:  writerOut,
		writerSel:  writerSel,
		log:        logging.Component(base, "parser", id),
		processors: make(map[string]*model.Processor),
	}
}

// Run drains in until ctx is cancelled, dispatching each RawMessage and
// answering requests arriving on tickReq with a fresh TickSnapshot.
func (p *Parser) Run(ctx context.Context, in <-chan transport.RawMessage, tickReq <-chan chan TickSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			p.handle(ctx, raw)
		case reply := <-tickReq:
			reply <- p.snapshotAndReset()
		}
	}
}

func (p *Parser) snapshotAndReset() TickSnapshot {
	p.mu.Lock()
	snap := TickSnapshot{Processors: p.processors, Parsed: p.parsed}
	p.processors = make(map[string]*model.Processor)
	p.parsed = 0
	p.mu.Unlock()
	return snap
}

func (p *Parser) handle(ctx context.Context, raw transport.RawMessage) {
	topic := parse.ClassifyTopic(raw.Topic)
	if topic == parse.TopicUnknown {
		p.log.Warn().Str("topic", raw.Topic).Msg("unknown topic, dropping")
		metrics.MessagesDropped.WithLabelValues("unknown_topic").Inc()
		return
	}

	decoded, err := decodeRaw(raw.Body)
	if err != nil {
		p.log.Warn().Err(err).Msg("malformed JSON, dropping")
		metrics.MessagesDropped.WithLabelValues("malformed_json").Inc()
		return
	}

	info, ok := p.streams.Lookup(raw.Stream)
	if !ok {
		p.log.Warn().Str("stream", raw.Stream).Msg("unknown stream, dropping")
		metrics.MessagesDropped.WithLabelValues("unknown_stream").Inc()
		return
	}

	startedRaw, _ := decoded["started_at"].(string)
	startedAt, err := model.ParseStartedAt(startedRaw, time.Now())
	if err != nil {
		p.log.Warn().Err(err).Str("started_at", startedRaw).Msg("invalid started_at, dropping")
		metrics.MessagesDropped.WithLabelValues("bad_started_at").Inc()
		return
	}

	dbName := model.DBName(info.App, info.Env, startedAt)
	proc := p.processorFor(ctx, dbName, info)

	switch topic {
	case parse.TopicRequest:
		p.handleRequest(proc, info, decoded)
	case parse.TopicJSException:
		p.handleJSException(proc, decoded)
	case parse.TopicEvent:
		parse.SetupEvent(decoded)
		p.forwardWriter(dbName, info, transport.TagEvent, "", decoded)
	case parse.TopicFrontendPage:
		if _, oversize := parse.SetupFrontendPage(decoded); oversize {
			p.log.Warn().Msg("oversize frontend page_time, dropping")
			metrics.MessagesDropped.WithLabelValues("oversize_page_time").Inc()
		}
	case parse.TopicFrontendAjax:
		if _, oversize := parse.SetupFrontendAjax(decoded); oversize {
			p.log.Warn().Msg("oversize frontend ajax_time, dropping")
			metrics.MessagesDropped.WithLabelValues("oversize_ajax_time").Inc()
		}
	}

	p.mu.Lock()
	p.parsed++
	p.mu.Unlock()
}

func (p *Parser) handleRequest(proc *model.Processor, info *registry.StreamInfo, decoded map[string]interface{}) {
	rd, interesting, ignored := parse.ApplyRequest(p.resources, info, decoded)
	if ignored {
		return
	}
	parse.Aggregate(p.resources, proc, decoded, rd)

	if interesting {
		metrics.RequestsInteresting.Inc()
		p.forwardWriter(proc.DBName, info, transport.TagRequest, rd.Module, decoded)
	}
}

func (p *Parser) handleJSException(proc *model.Processor, decoded map[string]interface{}) {
	data := parse.SetupJSException(decoded)
	parse.AggregateJSException(proc, data)
	p.forwardWriter(proc.DBName, proc.Stream, transport.TagJSException, data.Module, decoded)
}

func (p *Parser) forwardWriter(dbName string, info *registry.StreamInfo, tag transport.Tag, module string, decoded map[string]interface{}) {
	idx := p.writerSel(dbName) % len(p.writerOut)
	msg := transport.WriterMessage{Tag: tag, DBName: dbName, Stream: info, Module: module, Raw: decoded}
	transport.Send(context.Background(), p.log, "request-writer", p.writerOut[idx], msg)
}

func (p *Parser) processorFor(ctx context.Context, dbName string, info *registry.StreamInfo) *model.Processor {
	p.mu.Lock()
	proc, ok := p.processors[dbName]
	if !ok {
		proc = model.NewProcessor(dbName, info, p.resources)
		p.processors[dbName] = proc
	}
	p.mu.Unlock()
	if !ok {
		transport.Send(ctx, p.log, "indexer", p.indexerOut, transport.IndexerRequest{DBName: dbName, Stream: info})
	}
	return proc
}

func decodeRaw(body []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, errkind.Drop
	}
	return m, nil
}
