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

// Command loadtest is a tiny load generator for the importer, adapted
// from tools/http-loadgen: same concurrency/mode shape (single key vs.
// an 80/20 hot/cold skew), but it publishes synthetic logjam request
// frames over NATS instead of issuing HTTP requests.
//
// Usage examples:
//
//	loadtest -nats=nats://127.0.0.1:4222 -stream=shop-production -mode=single -action=Orders#show -n=5000 -c=16
//	loadtest -nats=nats://127.0.0.1:4222 -stream=shop-production -mode=zipf -hot_action=Orders#show -cold_actions=20 -n=8000 -c=16
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		natsURL     = flag.String("nats", "nats://127.0.0.1:4222", "NATS connection URL")
		stream      = flag.String("stream", "shop-production", "Stream key (app-env) to publish under")
		modeS       = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		action      = flag.String("action", "Orders#show", "Action name for single mode")
		hotAction   = flag.String("hot_action", "Orders#show", "Hot action for zipf mode")
		coldN       = flag.Int("cold_actions", 20, "Number of cold actions to round-robin in zipf mode")
		totalCount  = flag.Int("n", 5000, "Total messages to publish")
		conc        = flag.Int("c", 8, "Number of concurrent publishers")
		hotEvery    = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of every N messages go to the hot action)")
		totalTimeMs = flag.Int("total_time_ms", 150, "Simulated total_time in ms (mean; jittered per message)")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *totalCount <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf && *hotEvery < 2 {
		*hotEvery = 2
	}

	conn, err := nats.Connect(*natsURL, nats.Name("logjam-loadtest"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect nats: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	start := time.Now()
	var sent int64

	worker := func(id, count int) {
		for i := 0; i < count; i++ {
			var act string
			if m == modeSingle {
				act = *action
			} else if ((i + id) % *hotEvery) != 0 {
				act = *hotAction
			} else {
				act = fmt.Sprintf("Cold%d#show", ((i+id)%*coldN)+1)
			}
			msg := buildMessage(*stream, act, *totalTimeMs, id, i)
			if err := conn.PublishMsg(msg); err != nil {
				time.Sleep(200 * time.Microsecond)
				continue
			}
			atomic.AddInt64(&sent, 1)
		}
	}

	per := *totalCount / *conc
	rem := *totalCount - per*(*conc)
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	_ = conn.Flush()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(atomic.LoadInt64(&sent)) / elapsed.Seconds()
	fmt.Printf("loadtest: mode=%s n=%d c=%d go=%d duration=%s throughput=%.0f msg/s\n",
		m, atomic.LoadInt64(&sent), *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}

// buildMessage constructs one synthetic request frame for action,
// encoding the logical topic as a Logjam-Topic header (internal/
// transport.Subscriber reads it back) since the subject itself carries
// only the stream key.
func buildMessage(stream, action string, totalTimeMs, id, i int) *nats.Msg {
	now := time.Now()
	jitter := (id*31 + i*7) % 50
	payload := map[string]interface{}{
		"action":          action,
		"started_at":      now.Format("2006-01-02T15:04:05"),
		"total_time":      float64(totalTimeMs + jitter),
		"gc_time":         0,
		"other_time":      1.5,
		"code":            200,
		"request_id":      fmt.Sprintf("%032x", id*1_000_003+i),
		"allocated_bytes": 1024 * (1 + i%64),
	}
	body, _ := json.Marshal(payload)

	msg := nats.NewMsg(stream)
	msg.Header.Set("Logjam-Topic", "logs."+action)
	msg.Data = body
	return msg
}
