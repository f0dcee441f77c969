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

import "math"

// QuantKind is the single-character quantile family discriminator used in
// the "<kind>-<quant>-<namespace>" key (spec §3 "Quantile bucketing").
type QuantKind byte

const (
	QuantKindTime   QuantKind = 't'
	QuantKindMemory QuantKind = 'm'
)

// Bucket computes the quantile bucket for a single metric value given its
// family step d, per spec §3:
//
//	Bucket = (ceil(floor(value/d))+1) * d
//
// floor(value/d) is already integer-valued for any non-negative value, so
// the ceil is a no-op; it is kept to mirror the original bucketing formula
// verbatim rather than algebraically simplified away.
func Bucket(value, step float64) int {
	return int((math.Ceil(math.Floor(value/step)) + 1) * step)
}

// TimeStep, ObjectsStep and BytesStep are the per-family step sizes from
// spec §3.
const (
	TimeStep    = 100.0
	ObjectsStep = 10000.0
	BytesStep   = 100000.0
)
