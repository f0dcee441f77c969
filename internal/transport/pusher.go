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
	"fmt"

	"github.com/nats-io/nats.go"
)

// Pusher publishes LiveStreamMessage frames onto NATS, the egress
// boundary spec §4.3/§4.5 calls "publish to live stream". Grounded on
// the teacher pack's NATS writer wrapper (other_examples mjs-influx-spout-1
// writer.go): a thin struct holding a *nats.Conn plus a fixed subject
// prefix, counting what it sends.
type Pusher struct {
	conn    *nats.Conn
	subject string
	sent    uint64
}

// NewPusher connects to url and returns a Pusher that publishes under
// subject.
func NewPusher(url, subject string) (*Pusher, error) {
	conn, err := nats.Connect(url, nats.Name("logjam-importer-live-stream"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Pusher{conn: conn, subject: subject}, nil
}

// Push publishes one live-stream frame, keyed by msg.Key as a NATS header
// so subscribers can filter without deserializing the body.
func (p *Pusher) Push(msg LiveStreamMessage) error {
	natsMsg := nats.NewMsg(p.subject)
	natsMsg.Header.Set("Logjam-Key", msg.Key)
	natsMsg.Data = msg.Body
	if err := p.conn.PublishMsg(natsMsg); err != nil {
		return fmt.Errorf("publish live stream: %w", err)
	}
	p.sent++
	return nil
}

// Sent reports how many frames have been published.
func (p *Pusher) Sent() uint64 {
	return p.sent
}

// Close flushes and closes the underlying connection.
func (p *Pusher) Close() {
	_ = p.conn.Drain()
}
