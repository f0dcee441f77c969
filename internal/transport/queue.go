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

	"github.com/rs/zerolog"

	"logjam/internal/metrics"
)

// Send delivers msg to queue, trying a non-blocking send first. If the
// queue is full it logs a warning and falls back to a blocking send,
// mirroring the original importer's "queue full, blocking" behavior
// rather than dropping the message outright (spec §5 "Backpressure").
// It returns false only if ctx is cancelled before the blocking send
// completes.
func Send[T any](ctx context.Context, log zerolog.Logger, queueName string, queue chan<- T, msg T) bool {
	select {
	case queue <- msg:
		metrics.QueueDepth.WithLabelValues(queueName).Set(float64(len(queue)))
		return true
	default:
	}

	log.Warn().Str("queue", queueName).Int("capacity", cap(queue)).Msg("queue full, blocking sender")
	select {
	case queue <- msg:
		metrics.QueueDepth.WithLabelValues(queueName).Set(float64(len(queue)))
		return true
	case <-ctx.Done():
		return false
	}
}
