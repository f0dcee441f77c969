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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decode unmarshals raw JSON into a tree of map[string]interface{},
// []interface{}, json.Number, string, bool and nil, preserving the
// integer/double distinction the spec requires (§4.7 "integers, doubles,
// ... map directly") by decoding numbers as json.Number rather than
// collapsing everything to float64.
func Decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("bsonenc: decode: %w", err)
	}
	return v, nil
}

// Convert recursively rewrites a decoded JSON tree into a BSON-ready
// value: map keys are escaped (EscapeKey), strings are transcoded
// (TranscodeString), json.Number becomes int64 or float64, and objects
// become bson.M / arrays become bson.A (spec §4.7).
func Convert(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := bson.M{}
		for k, val := range t {
			out[EscapeKey(k)] = Convert(val)
		}
		return out
	case []interface{}:
		out := make(bson.A, len(t))
		for i, val := range t {
			out[i] = Convert(val)
		}
		return out
	case json.Number:
		return convertNumber(t)
	case string:
		return TranscodeString(t)
	default:
		return v // bool, nil pass through unchanged
	}
}

func convertNumber(n json.Number) interface{} {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(string(n), 64)
	return f
}

// ConvertDocument decodes raw JSON and converts it into a bson.M,
// reporting errCtx (e.g. "<db_name>:<request_id>") on failure as spec
// §4.3 step 3 requires.
func ConvertDocument(raw []byte, errCtx string) (bson.M, error) {
	decoded, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("bsonenc: %s: %w", errCtx, err)
	}
	m, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("bsonenc: %s: top-level JSON value is not an object", errCtx)
	}
	converted := Convert(m)
	doc, ok := converted.(bson.M)
	if !ok {
		return nil, fmt.Errorf("bsonenc: %s: conversion did not yield a document", errCtx)
	}
	return doc, nil
}

// ConvertMap converts an already-decoded JSON object (as produced by a
// parser that needed the tree in hand before BSON conversion, e.g. to
// read request fields) into a bson.M, reporting errCtx on failure.
func ConvertMap(m map[string]interface{}, errCtx string) (bson.M, error) {
	converted := Convert(m)
	doc, ok := converted.(bson.M)
	if !ok {
		return nil, fmt.Errorf("bsonenc: %s: conversion did not yield a document", errCtx)
	}
	return doc, nil
}

// NewBinaryUUID wraps a 16-byte request id as a legacy (subtype 0x03)
// BSON binary value for storage as _id (spec §4.5 step 2).
func NewBinaryUUID(id [16]byte) primitive.Binary {
	return primitive.Binary{Subtype: 0x03, Data: id[:]}
}
