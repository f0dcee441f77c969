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

// Package errkind models the error taxonomy from spec §7 (drop-and-log,
// retry, warn, fatal) as a small sentinel type that call sites can
// wrap with fmt.Errorf("...: %w", errkind.Drop) and that worker loops can
// classify with errors.Is without re-deriving policy at every call site.
package errkind

import "errors"

// Kind identifies which of the four error-handling policies in spec §7
// applies to a given error.
type Kind error

var (
	// Drop marks a recoverable, per-message error: malformed JSON, a bad
	// or missing started_at, an unknown topic, an unknown stream, a
	// malformed caller_id, an oversize frontend timing value, or an
	// invalid request_id length. The message is logged and discarded.
	Drop Kind = errors.New("drop")

	// Retry marks a transient storage error (a storage-engine lock
	// conflict). The caller retries per a bounded policy before falling
	// back to logging the failing document and moving on.
	Retry Kind = errors.New("retry")

	// Warn marks a soft-fail condition that does not abort the current
	// operation: an outbound socket that would block, invalid UTF-8 that
	// was transcoded from Windows-1252, or trailing bytes after a parsed
	// JSON document.
	Warn Kind = errors.New("warn")

	// Fatal marks an unrecoverable condition that aborts the process: an
	// unknown control command, a missing config file, or a socket bind
	// that failed after its retry budget.
	Fatal Kind = errors.New("fatal")
)

// Is reports whether err was produced by wrapping one of the Kind
// sentinels above (via fmt.Errorf("...: %w", kind)).
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
