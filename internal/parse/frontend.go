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

// Oversize thresholds past which a frontend timing is nonsensical and the
// message is dropped rather than aggregated (spec §7 "oversize frontend
// page_time/ajax_time").
const (
	maxPageTimeMs = 300000
	maxAjaxTimeMs = 60000
)

// FrontendData is the page/module/minute/time scratch for a
// frontend.page*/frontend.ajax* message. Frontend/ajax handling is
// currently inert (spec §4.2, §9 open question): the fields are computed
// so the parser can validate and log them, but they are neither
// aggregated into a Processor nor forwarded to a writer.
type FrontendData struct {
	Page      string
	Module    string
	Minute    int
	TotalTime float64
}

// SetupFrontendPage computes FrontendData for a frontend.page* message and
// reports whether page_time exceeds the sanity threshold.
func SetupFrontendPage(raw map[string]interface{}) (data *FrontendData, oversize bool) {
	data = setupFrontendCommon(raw, "page_time")
	return data, data.TotalTime > maxPageTimeMs
}

// SetupFrontendAjax computes FrontendData for a frontend.ajax* message and
// reports whether ajax_time exceeds the sanity threshold.
func SetupFrontendAjax(raw map[string]interface{}) (data *FrontendData, oversize bool) {
	data = setupFrontendCommon(raw, "ajax_time")
	return data, data.TotalTime > maxAjaxTimeMs
}

func setupFrontendCommon(raw map[string]interface{}, timeField string) *FrontendData {
	page := setupPage(raw)
	return &FrontendData{
		Page:      page,
		Module:    setupModule(page),
		Minute:    setupMinute(raw),
		TotalTime: setupTime(raw, timeField),
	}
}
