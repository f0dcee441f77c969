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

package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientAdapter narrows *redis.Client down to the Evaler surface.
type clientAdapter struct {
	rdb *redis.Client
}

func (c clientAdapter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return c.rdb.Eval(ctx, script, keys, args...).Result()
}

// NewClientMarker connects to addr and returns a Marker backed by it,
// with markers expiring after ttl.
func NewClientMarker(addr string, ttl time.Duration) *Marker {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return NewMarker(clientAdapter{rdb: rdb}, ttl)
}
