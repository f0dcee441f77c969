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

// Package forwarder is the second program of spec §4.8: it pulls
// already-queued payloads off an internal subject, zlib-compresses each
// one into a single outbound frame, and pushes it to a downstream
// collector subject with a bounded send high-water-mark. Grounded on
// internal/transport's Subscriber/Pusher NATS idiom (pull side modeled
// as a plain subscribe, push side as a publish-only connection) and on
// the teacher's persistence/kafka.go batching shape ("intentionally
// avoid importing a specific broker library" — here the broker is NATS
// both ends, so the shape is reused but the avoidance is not).
package forwarder

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"logjam/internal/config"
)

// Forwarder is the running state of the forwarder program.
type Forwarder struct {
	pullConn *nats.Conn
	pullSub  *nats.Subscription
	pushConn *nats.Conn
	subject  string
	hwm      int

	queue chan []byte

	sent      uint64
	dropped   uint64
	sinceTick uint64

	log zerolog.Logger
}

// New connects both ends of the forwarder and starts draining incoming
// payloads into a bounded queue. cfg.PushURL defaults to cfg.NATSURL when
// empty (single-cluster deployment, separate subject only).
func New(cfg config.ForwarderSection, log zerolog.Logger) (*Forwarder, error) {
	pullConn, err := nats.Connect(cfg.NATSURL, nats.Name("logjam-forwarder-pull"))
	if err != nil {
		return nil, fmt.Errorf("connect forwarder pull side: %w", err)
	}

	pushURL := cfg.PushURL
	if pushURL == "" {
		pushURL = cfg.NATSURL
	}
	pushConn, err := nats.Connect(pushURL, nats.Name("logjam-forwarder-push"))
	if err != nil {
		pullConn.Close()
		return nil, fmt.Errorf("connect forwarder push side: %w", err)
	}

	hwm := cfg.HighWaterMark
	if hwm <= 0 {
		hwm = 10000
	}

	f := &Forwarder{
		pullConn: pullConn,
		pushConn: pushConn,
		subject:  cfg.PushSubject,
		hwm:      hwm,
		queue:    make(chan []byte, hwm),
		log:      log,
	}

	sub, err := pullConn.Subscribe(cfg.PullSubject, f.enqueue)
	if err != nil {
		pullConn.Close()
		pushConn.Close()
		return nil, fmt.Errorf("subscribe forwarder pull subject %q: %w", cfg.PullSubject, err)
	}
	f.pullSub = sub

	return f, nil
}

// enqueue is the pull-side subscription callback; it mirrors the
// subscriber's non-blocking-drop-on-full policy (spec §5 "subscriber's
// receive HWM... excess traffic is dropped at the transport") rather than
// the pipeline handoff's blocking-with-warning one, since the forwarder
// itself is the lossy tail of the pipeline.
func (f *Forwarder) enqueue(msg *nats.Msg) {
	body := make([]byte, len(msg.Data))
	copy(body, msg.Data)
	select {
	case f.queue <- body:
	default:
		atomic.AddUint64(&f.dropped, 1)
		f.log.Warn().Msg("forwarder push queue full, dropping message")
	}
}

// Run drains the queue, compressing and pushing each payload, until ctx
// is cancelled (spec §4.8's "$TERM" command) and logs a count-since-last
// tick once a second (spec §4.8's "tick" command).
func (f *Forwarder) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case body := <-f.queue:
			f.push(body)
		case <-ticker.C:
			f.onTick()
		}
	}
}

func (f *Forwarder) push(body []byte) {
	compressed, err := compress(body)
	if err != nil {
		f.log.Warn().Err(err).Msg("forwarder: compress payload")
		return
	}
	if err := f.pushConn.Publish(f.subject, compressed); err != nil {
		f.log.Warn().Err(err).Msg("forwarder: push payload")
		return
	}
	atomic.AddUint64(&f.sent, 1)
	atomic.AddUint64(&f.sinceTick, 1)
}

func (f *Forwarder) onTick() {
	n := atomic.SwapUint64(&f.sinceTick, 0)
	if n > 0 {
		f.log.Info().Uint64("count", n).Msg("forwarder tick")
	}
}

// Sent reports the total number of frames successfully pushed.
func (f *Forwarder) Sent() uint64 {
	return atomic.LoadUint64(&f.sent)
}

// Dropped reports the total number of pulled frames discarded because
// the push queue was full.
func (f *Forwarder) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}

// Close unsubscribes and closes both NATS connections.
func (f *Forwarder) Close() {
	if f.pullSub != nil {
		_ = f.pullSub.Unsubscribe()
	}
	f.pullConn.Close()
	_ = f.pushConn.Drain()
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
