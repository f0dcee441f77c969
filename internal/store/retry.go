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
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"logjam/internal/errkind"
	"logjam/internal/metrics"
)

// lockConflictCode is the storage-engine lock-conflict error code the
// original importer retries on (TOKU_TX_LOCK_FAILED). Named generically
// here since the Go driver reports it the same way regardless of the
// underlying storage engine.
const lockConflictCode = 16759

// RetryPolicy bounds how many times a write is retried after a
// lock-conflict error before it is logged and dropped (spec §7 "Retry
// (transient storage)"). Data writes (totals/minutes/quants/requests/
// js_exceptions/events) get 2 retries; the logjam-global metadata update
// gets 5.
type RetryPolicy struct {
	MaxAttempts int
	Pool        string // metrics label
}

var (
	DataRetryPolicy     = RetryPolicy{MaxAttempts: 2, Pool: "data"}
	MetadataRetryPolicy = RetryPolicy{MaxAttempts: 5, Pool: "metadata"}
)

// Upsert runs fn (a single $inc-upsert attempt) up to policy.MaxAttempts
// extra times when it fails with a lock-conflict error, as a bounded
// for-loop rather than the original's goto retry (spec §9 "Retry via
// structured loops, not jumps"). Any other error is returned immediately
// for the caller to log-and-drop (errkind.Retry wraps the final error
// kind the caller should classify it as).
func Upsert(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !isLockConflict(err) {
			return err
		}
		if attempt < policy.MaxAttempts {
			metrics.StorageRetries.WithLabelValues(policy.Pool).Inc()
		}
	}
	metrics.StorageErrors.WithLabelValues(policy.Pool).Inc()
	return fmt.Errorf("%w: storage write failed after %d attempts: %v", errkind.Retry, policy.MaxAttempts+1, err)
}

func isLockConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && int(cmdErr.Code) == lockConflictCode {
		return true
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == lockConflictCode {
				return true
			}
		}
	}
	return false
}
