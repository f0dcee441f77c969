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

package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxClockDrift is the maximum allowed distance between a request's
// started_at and the process's wall clock before the message is rejected
// (spec §3 "Database naming", §8 scenario 4).
const MaxClockDrift = 3600 * time.Second

// startedAtLayouts accepts both the ISO 'T' separator and the legacy space
// separator spec §3 calls out ("accepted as ISO with T or space
// separator").
var startedAtLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05Z07:00",
}

// ParseStartedAt parses a started_at timestamp string and validates it is
// within MaxClockDrift of now. Both Drop-and-log cases from spec §7
// ("missing/invalid started_at") funnel through this function.
func ParseStartedAt(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("model: started_at is empty")
	}
	var parsed time.Time
	var err error
	ok := false
	for _, layout := range startedAtLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			ok = true
			break
		}
	}
	if !ok {
		return time.Time{}, fmt.Errorf("model: started_at %q does not match any accepted layout: %w", raw, err)
	}
	drift := now.Sub(parsed)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxClockDrift {
		return time.Time{}, fmt.Errorf("model: started_at %q drifts %s from wall clock (max %s)", raw, drift, MaxClockDrift)
	}
	return parsed, nil
}

// DBName builds the "logjam-<app>-<env>-<YYYY-MM-DD>" database name from a
// stream's app/env and a parsed started_at (spec §3 "Database naming").
func DBName(app, env string, startedAt time.Time) string {
	return fmt.Sprintf("logjam-%s-%s-%s", app, env, startedAt.Format("2006-01-02"))
}

// MinuteOf computes "60*HH + MM" from a started_at string's characters at
// positions 11-15 (spec §4.2e), i.e. the "HH:MM" substring immediately
// following the date. Using the already-parsed time is equivalent and
// avoids re-slicing the raw string, so callers should prefer MinuteOf.
func MinuteOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// MinuteFromRaw recovers the minute-of-day directly from the raw
// started_at string's characters at positions 11-15, matching spec
// §4.2e literally for callers that only have the raw string (e.g. when
// validating a minute key parsed back out of a "<minute>-<namespace>"
// aggregation key during tests).
func MinuteFromRaw(raw string) (int, error) {
	if len(raw) < 16 {
		return 0, fmt.Errorf("model: started_at %q too short to extract HH:MM", raw)
	}
	hhmm := raw[11:16]
	sep := strings.IndexByte(hhmm, ':')
	if sep != 2 {
		return 0, fmt.Errorf("model: started_at %q missing HH:MM separator", raw)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(hhmm, "%2d:%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("model: started_at %q malformed HH:MM: %w", raw, err)
	}
	return hh*60 + mm, nil
}
