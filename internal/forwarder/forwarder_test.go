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

package forwarder

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func TestCompressProducesValidZlibStream(t *testing.T) {
	body := []byte(`{"action":"Orders#show","total_time":12.5}`)
	compressed, err := compress(body)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read decompressed: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("decompressed = %q, want %q", got, body)
	}
}

func TestEnqueueDropsOnFullQueue(t *testing.T) {
	f := &Forwarder{
		queue: make(chan []byte, 1),
		log:   zerolog.Nop(),
	}

	f.enqueue(&nats.Msg{Data: []byte("first")})
	f.enqueue(&nats.Msg{Data: []byte("second")})

	if f.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", f.Dropped())
	}
	select {
	case body := <-f.queue:
		if string(body) != "first" {
			t.Fatalf("queued body = %q, want %q", body, "first")
		}
	default:
		t.Fatal("expected the first message to have been queued")
	}
}

func TestEnqueueCopiesMessageData(t *testing.T) {
	f := &Forwarder{
		queue: make(chan []byte, 1),
		log:   zerolog.Nop(),
	}

	data := []byte("mutate-me")
	f.enqueue(&nats.Msg{Data: data})
	data[0] = 'X'

	got := <-f.queue
	if string(got) != "mutate-me" {
		t.Fatalf("queued body = %q, want a copy unaffected by later mutation of the source slice", got)
	}
}

func TestOnTickResetsSinceTickCounter(t *testing.T) {
	f := &Forwarder{log: zerolog.Nop(), sinceTick: 3}
	f.onTick()
	if f.sinceTick != 0 {
		t.Fatalf("sinceTick = %d, want 0 after onTick", f.sinceTick)
	}
}
