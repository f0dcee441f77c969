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

package parse

import (
	"logjam/internal/bsonenc"
	"logjam/internal/model"
)

// JSExceptionData is the page/module/minute scratch computed for a
// javascript.* topic message (spec §4.2 "JS-exception handling").
type JSExceptionData struct {
	Page        string
	Module      string
	Minute      int
	Description string
}

// SetupJSException takes page from logjam_action as-is (defaulting to
// "Unknown#unknown_method" when absent; no "#unknown_method" suffix is
// appended to a present value), derives module and minute the same way a
// backend request does, and pulls the exception description out of the
// payload.
func SetupJSException(raw map[string]interface{}) *JSExceptionData {
	page, ok := getString(raw, "logjam_action")
	if !ok {
		page = "Unknown#unknown_method"
	}
	data := &JSExceptionData{
		Page:   page,
		Module: setupModule(page),
		Minute: setupMinute(raw),
	}
	data.Description, _ = getString(raw, "description")
	return data
}

// AggregateJSException adds only the "others" counter
// "js_exceptions.<desc>" (URI-escaped) to the page/module/all_pages totals,
// per spec §4.2: "Increments add only to others under
// js_exceptions.<desc>".
func AggregateJSException(proc *model.Processor, data *JSExceptionData) {
	proc.AddModule(data.Module)
	key := "js_exceptions." + bsonenc.EscapeURI(data.Description)
	add := func(inc *model.Increments) { inc.AddOther(key, 1) }
	add(proc.TotalsFor(data.Page))
	add(proc.TotalsFor(data.Module))
	add(proc.TotalsFor(allPages))
}
