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

package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"logjam/internal/metrics"
)

// requestStreamPrefix mirrors the original importer's habit of also
// listening on a per-stream "request-stream-<S>" subject so a single
// publisher can target one stream's parsers directly (spec §4.1).
const requestStreamPrefix = "request-stream-"

// Subscriber fans NATS messages for the configured streams into a single
// bounded Go channel that the subscriber worker drains and republishes as
// RawMessage (spec §4.1 "Subscriber"). Grounded on the teacher pack's NATS
// writer/reader pattern (other_examples mjs-influx-spout-1 writer.go),
// adapted from a publish-only wrapper to a subscribe-only fan-in.
type Subscriber struct {
	conn  *nats.Conn
	subs  []*nats.Subscription
	queue chan RawMessage
	log   zerolog.Logger
}

// NewSubscriber connects to url and subscribes to every stream key in
// streams. An empty streams list subscribes to every frame (">", spec
// §4.1 "with no stream_subscriptions configured, subscribe to
// everything"). queueCapacity sizes the fan-in buffer (spec §5 default
// queue depths).
func NewSubscriber(url string, streams []string, queueCapacity int, log zerolog.Logger) (*Subscriber, error) {
	conn, err := nats.Connect(url, nats.Name("logjam-importer"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	s := &Subscriber{
		conn:  conn,
		queue: make(chan RawMessage, queueCapacity),
		log:   log,
	}

	subjects := subjectsFor(streams)
	for _, subject := range subjects {
		subject := subject
		sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
			s.handle(subject, msg)
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe %q: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return s, nil
}

// subjectsFor computes the NATS subject list for a configured stream set.
func subjectsFor(streams []string) []string {
	if len(streams) == 0 {
		return []string{">"}
	}
	subjects := make([]string, 0, len(streams)*2)
	for _, stream := range streams {
		subjects = append(subjects, stream, requestStreamPrefix+stream)
	}
	return subjects
}

// topicHeader carries the logical topic (spec §4.1's "3-frame message
// (stream, topic, body)") alongside the NATS subject, which carries the
// stream key (after any "request-stream-" prefix is removed) — mirroring Pusher's own use of
// a header ("Logjam-Key") to carry routing metadata NATS subjects don't
// naturally express.
const topicHeader = "Logjam-Topic"

func (s *Subscriber) handle(subject string, msg *nats.Msg) {
	topic := msg.Header.Get(topicHeader)
	if topic == "" {
		topic = msg.Subject
	}
	if strings.HasPrefix(topic, requestStreamPrefix) {
		topic = strings.TrimPrefix(topic, requestStreamPrefix)
	}
	stream := strings.TrimPrefix(msg.Subject, requestStreamPrefix)
	raw := RawMessage{Stream: stream, Topic: topic, Body: msg.Data}
	metrics.MessagesReceived.WithLabelValues(topicPrefix(topic)).Inc()

	select {
	case s.queue <- raw:
	default:
		s.log.Warn().Str("subject", subject).Msg("subscriber fan-in queue full, dropping message")
		metrics.MessagesDropped.WithLabelValues("subscriber_queue_full").Inc()
	}
}

func topicPrefix(topic string) string {
	if i := strings.IndexByte(topic, '.'); i >= 0 {
		return topic[:i]
	}
	return topic
}

// Messages returns the channel of fanned-in raw messages.
func (s *Subscriber) Messages() <-chan RawMessage {
	return s.queue
}

// Close drains subscriptions and closes the underlying connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.conn.Close()
}

// Run blocks until ctx is cancelled, then closes the subscriber. Intended
// to run in its own goroutine so callers can select on ctx.Done()
// elsewhere.
func (s *Subscriber) Run(ctx context.Context) {
	<-ctx.Done()
	s.Close()
}
