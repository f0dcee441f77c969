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

// Package bsonenc converts parsed telemetry JSON into BSON documents safe
// to hand to the document store, applying the key-escaping and string
// transcoding rules from spec §4.7.
package bsonenc

import "strings"

const (
	// dotReplacement is U+2024 ONE DOT LEADER, a 3-byte UTF-8 sequence
	// substituted for '.' in BSON keys (Mongo forbids literal dots).
	dotReplacement = "․"
	// dollarReplacement is U+00A4 CURRENCY SIGN, a 2-byte UTF-8 sequence
	// substituted for '$' in BSON keys (Mongo forbids a leading '$').
	dollarReplacement = "¤"
)

// EscapeKey rewrites a document key so it is safe to store: '.' becomes
// U+2024, '$' becomes U+00A4. The substitution is reversible since
// neither replacement character can occur in telemetry field names.
func EscapeKey(key string) string {
	if !strings.ContainsAny(key, ".$") {
		return key
	}
	key = strings.ReplaceAll(key, ".", dotReplacement)
	key = strings.ReplaceAll(key, "$", dollarReplacement)
	return key
}

// EscapeURI applies the secondary, URI-style escaping variant used for
// names embedded in an "others" key rather than a BSON document key
// (e.g. js_exceptions.<desc>): '.' becomes "%2E", '$' becomes "%24".
func EscapeURI(name string) string {
	if !strings.ContainsAny(name, ".$") {
		return name
	}
	name = strings.ReplaceAll(name, ".", "%2E")
	name = strings.ReplaceAll(name, "$", "%24")
	return name
}

// EscapeExceptionClass replaces '.' and '$' with '_', the variant spec
// §4.2j calls for when rewriting an exception class name before it is
// folded into the "exceptions.<name>" others key.
func EscapeExceptionClass(class string) string {
	if !strings.ContainsAny(class, ".$") {
		return class
	}
	class = strings.ReplaceAll(class, ".", "_")
	class = strings.ReplaceAll(class, "$", "_")
	return class
}
