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

package bsonenc

import (
	"strings"
	"unicode/utf8"
)

// win1252Table maps bytes 0x80-0xFF to their Windows-1252 code points.
// 0x00-0x7F are ASCII-identical in both encodings and need no table
// entry. Bytes 0x81, 0x8D, 0x8F, 0x90 and 0x9D are unassigned in
// Windows-1252 proper; the original importer's win1252_to_utf8 maps all
// five to U+FFFD REPLACEMENT CHARACTER rather than to their raw byte
// value, and this table follows that exactly.
var win1252Table = [128]rune{
	0x20AC, 0xFFFD, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0xFFFD, 0x017D, 0xFFFD,
	0xFFFD, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0xFFFD, 0x017E, 0x0178,
	0x00A0, 0x00A1, 0x00A2, 0x00A3, 0x00A4, 0x00A5, 0x00A6, 0x00A7,
	0x00A8, 0x00A9, 0x00AA, 0x00AB, 0x00AC, 0x00AD, 0x00AE, 0x00AF,
	0x00B0, 0x00B1, 0x00B2, 0x00B3, 0x00B4, 0x00B5, 0x00B6, 0x00B7,
	0x00B8, 0x00B9, 0x00BA, 0x00BB, 0x00BC, 0x00BD, 0x00BE, 0x00BF,
	0x00C0, 0x00C1, 0x00C2, 0x00C3, 0x00C4, 0x00C5, 0x00C6, 0x00C7,
	0x00C8, 0x00C9, 0x00CA, 0x00CB, 0x00CC, 0x00CD, 0x00CE, 0x00CF,
	0x00D0, 0x00D1, 0x00D2, 0x00D3, 0x00D4, 0x00D5, 0x00D6, 0x00D7,
	0x00D8, 0x00D9, 0x00DA, 0x00DB, 0x00DC, 0x00DD, 0x00DE, 0x00DF,
	0x00E0, 0x00E1, 0x00E2, 0x00E3, 0x00E4, 0x00E5, 0x00E6, 0x00E7,
	0x00E8, 0x00E9, 0x00EA, 0x00EB, 0x00EC, 0x00ED, 0x00EE, 0x00EF,
	0x00F0, 0x00F1, 0x00F2, 0x00F3, 0x00F4, 0x00F5, 0x00F6, 0x00F7,
	0x00F8, 0x00F9, 0x00FA, 0x00FB, 0x00FC, 0x00FD, 0x00FE, 0x00FF,
}

// DecodeWindows1252Byte returns the Unicode code point Windows-1252
// assigns to b.
func DecodeWindows1252Byte(b byte) rune {
	if b < 0x80 {
		return rune(b)
	}
	return win1252Table[b-0x80]
}

// nulLiteralEscape is the six-character literal escape substituted for an
// embedded NUL byte, since BSON strings are NUL-terminated C strings on
// the wire (spec §4.7). Built from Unicode escapes so the source file
// itself never contains a raw NUL byte.
var nulLiteralEscape = string([]rune{'\\', 'u', '0', '0', '0', '0'})

// TranscodeString returns s unchanged (aside from NUL-escaping) if it is
// already valid UTF-8; otherwise every byte is reinterpreted as
// Windows-1252 and the whole string is re-encoded as UTF-8 (spec §4.7
// "invalid byte sequences are interpreted as Windows-1252").
func TranscodeString(s string) string {
	if utf8.ValidString(s) {
		return escapeNUL(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(DecodeWindows1252Byte(s[i]))
	}
	return escapeNUL(b.String())
}

func escapeNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, string(rune(0)), nulLiteralEscape)
}
