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
	"strconv"
	"strings"

	"logjam/internal/bsonenc"
	"logjam/internal/model"
	"logjam/internal/registry"
)

const allPages = "all_pages"

// RequestData is the per-request scratch computed by SetupRequest, mirroring
// the original importer's request_data_t (spec §4.2 a-i).
type RequestData struct {
	Page         string
	Module       string
	ResponseCode int
	Severity     int
	Minute       int
	TotalTime    float64
	OtherTime    float64
	HeapGrowth   int
	Exceptions   []string
}

// SetupRequest mutates raw in place (adding/normalizing "page", "response_code",
// "severity", "minute", "other_time", "allocated_memory"), matching the
// original C importer's processor_setup_* family, and returns the
// scratch fields the rest of request handling needs.
func SetupRequest(resources *registry.Resources, raw map[string]interface{}) *RequestData {
	rd := &RequestData{}
	rd.Page = setupPage(raw)
	rd.Module = setupModule(rd.Page)
	rd.ResponseCode = setupResponseCode(raw)
	rd.Severity = setupSeverity(raw)
	rd.Minute = setupMinute(raw)
	rd.TotalTime = setupTime(raw, "total_time")
	rd.Exceptions = setupExceptions(raw)
	rd.OtherTime = setupOtherTime(resources, raw, rd.TotalTime)
	setupAllocatedMemory(raw)
	rd.HeapGrowth = setupHeapGrowth(raw)
	return rd
}

func setupPage(raw map[string]interface{}) string {
	page, ok := getString(raw, "action")
	if ok {
		delete(raw, "action")
	} else {
		page = "Unknown#unknown_method"
	}
	switch {
	case !strings.Contains(page, "#"):
		page += "#unknown_method"
	case strings.HasSuffix(page, "#"):
		page += "unknown_method"
	}
	raw["page"] = page
	return page
}

// setupModule derives "::Module" from a page string, taking the segment
// before ':' if present, else before '#', else leaving it empty (spec
// §4.2b).
func setupModule(page string) string {
	var name string
	if idx := strings.IndexByte(page, ':'); idx >= 0 {
		name = page[:idx]
	} else if idx := strings.IndexByte(page, '#'); idx >= 0 {
		name = page[:idx]
	}
	return "::" + name
}

func setupResponseCode(raw map[string]interface{}) int {
	code := 500
	if v, ok := getInt(raw, "code"); ok {
		code = v
		delete(raw, "code")
	}
	raw["response_code"] = code
	return code
}

func setupTime(raw map[string]interface{}, field string) float64 {
	t, ok := getFloat(raw, field)
	if !ok || t == 0 {
		t = 1.0
		raw[field] = t
	}
	return t
}

func setupSeverity(raw map[string]interface{}) int {
	if v, ok := getInt(raw, "severity"); ok {
		raw["severity"] = v
		return v
	}
	severity := 1
	if lines, ok := getArray(raw, "lines"); ok {
		if extracted := extractSeverityFromLines(lines); extracted != -1 {
			severity = extracted
		}
	}
	raw["severity"] = severity
	return severity
}

// extractSeverityFromLines returns the maximum lines[i][0] value, or -1 if
// no line is present or the maximum observed level is out of [0,5] (spec
// §4.2d "clamped to [0,5]").
func extractSeverityFromLines(lines []interface{}) int {
	level := -1
	for _, entry := range lines {
		line, ok := entry.([]interface{})
		if !ok || len(line) == 0 {
			continue
		}
		lvl, ok := toFloat(line[0])
		if !ok {
			continue
		}
		if int(lvl) > level {
			level = int(lvl)
		}
	}
	if level > 5 {
		return -1
	}
	return level
}

func setupMinute(raw map[string]interface{}) int {
	minute := 0
	if startedAt, ok := getString(raw, "started_at"); ok {
		if m, err := model.MinuteFromRaw(startedAt); err == nil {
			minute = m
		}
	}
	raw["minute"] = minute
	return minute
}

func setupOtherTime(resources *registry.Resources, raw map[string]interface{}, totalTime float64) float64 {
	other := totalTime
	for _, name := range resources.OtherTimeResources() {
		if v, ok := getFloat(raw, name); ok {
			other -= v
		}
	}
	raw["other_time"] = other
	return other
}

func setupAllocatedMemory(raw map[string]interface{}) {
	if _, ok := raw["allocated_memory"]; ok {
		return
	}
	objects, ok := getFloat(raw, "allocated_objects")
	if !ok {
		return
	}
	bytes, ok := getFloat(raw, "allocated_bytes")
	if !ok {
		return
	}
	raw["allocated_memory"] = bytes + 40*objects
}

func setupHeapGrowth(raw map[string]interface{}) int {
	v, _ := getInt(raw, "heap_growth")
	return v
}

func setupExceptions(raw map[string]interface{}) []string {
	arr, ok := getArray(raw, "exceptions")
	if !ok || len(arr) == 0 {
		delete(raw, "exceptions")
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FillIncrements applies one request's fields into inc: backend_count,
// per-resource metrics, apdex, response-code/severity labels, caller info
// and exception class labels (spec §4.2j).
func FillIncrements(resources *registry.Resources, raw map[string]interface{}, rd *RequestData, inc *model.Increments) {
	inc.BackendCount.Add(1)
	fillMetrics(resources, raw, inc)
	fillApdex(inc, rd)
	inc.AddOther("response."+itoa(rd.ResponseCode), 1)
	inc.AddOther("severity."+itoa(rd.Severity), 1)
	fillCallerInfo(raw, inc)
	fillExceptions(rd.Exceptions, inc)
}

func fillMetrics(resources *registry.Resources, raw map[string]interface{}, inc *model.Increments) {
	for _, name := range resources.Names() {
		if v, ok := getFloat(raw, name); ok {
			inc.AddMetricByName(name, v)
		}
	}
}

// fillApdex implements the happy/satisfied/tolerating/frustrated banding
// from spec §4.2j. The >=500 branch is kept exactly as the original
// importer had it (counting any server error as frustrated, regardless of
// how fast it failed) even though that conflates latency with errors.
func fillApdex(inc *model.Increments, rd *RequestData) {
	switch {
	case rd.TotalTime >= 2000 || rd.ResponseCode >= 500:
		inc.AddOther("apdex.frustrated", 1)
	case rd.TotalTime < 100:
		inc.AddOther("apdex.happy", 1)
		inc.AddOther("apdex.satisfied", 1)
	case rd.TotalTime < 500:
		inc.AddOther("apdex.satisfied", 1)
	case rd.TotalTime < 2000:
		inc.AddOther("apdex.tolerating", 1)
	}
}

// fillFrontendApdex implements the frontend/ajax apdex banding (fapdex.*),
// used by the page/ajax handlers rather than the backend request handler.
func fillFrontendApdex(inc *model.Increments, totalTime float64) {
	switch {
	case totalTime < 2000:
		inc.AddOther("fapdex.satisfied", 1)
	case totalTime < 8000:
		inc.AddOther("fapdex.tolerating", 1)
	default:
		inc.AddOther("fapdex.frustrated", 1)
	}
}

// fillCallerInfo parses caller_id = "<app>-<env>-<rid>" and combines it with
// caller_action into a "callers.<app>-<caller_action>" label, both
// key-escaped (spec §4.2j, §7 "malformed caller_id" is drop-and-log at this
// granularity: simply skipped).
func fillCallerInfo(raw map[string]interface{}, inc *model.Increments) {
	callerAction, ok := getString(raw, "caller_action")
	if !ok || callerAction == "" {
		return
	}
	callerID, ok := getString(raw, "caller_id")
	if !ok || callerID == "" {
		return
	}
	parts := strings.SplitN(callerID, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return
	}
	app := parts[0]
	label := "callers." + bsonenc.EscapeKey(app) + "-" + bsonenc.EscapeKey(callerAction)
	inc.AddOther(label, 1)
}

// fillExceptions rewrites each exception class ('.'/'$' -> '_') and
// increments "exceptions.<class>" (spec §4.2j).
func fillExceptions(exceptions []string, inc *model.Increments) {
	for _, class := range exceptions {
		inc.AddOther("exceptions."+bsonenc.EscapeExceptionClass(class), 1)
	}
}

// ModuleThreshold mirrors the registry's per-module override used by
// Interesting. It's a narrow interface so tests can fake a stream without
// building a full registry.StreamInfo.
type ModuleThreshold interface {
	ThresholdFor(module string) float64
}

// Interesting decides whether a request is worth forwarding to the
// request-writer pool (spec §4.2l). rd.Module is the "::Module" form;
// Interesting strips the leading "::" before calling ThresholdFor, so the
// lookup compares against configured per-module names without the
// prefix, matching the original importer's module+2 pointer arithmetic.
func Interesting(rd *RequestData, stream ModuleThreshold) bool {
	if rd.TotalTime > stream.ThresholdFor(strings.TrimPrefix(rd.Module, "::")) {
		return true
	}
	if rd.Severity > 1 {
		return true
	}
	if rd.ResponseCode >= 400 {
		return true
	}
	if len(rd.Exceptions) > 0 {
		return true
	}
	if rd.HeapGrowth > 0 {
		return true
	}
	return false
}

// IgnoreRequest reports whether request_info.url starts with prefix (spec
// §4.2l "skipped entirely").
func IgnoreRequest(raw map[string]interface{}, prefix string) bool {
	if prefix == "" {
		return false
	}
	info, ok := getObject(raw, "request_info")
	if !ok {
		return false
	}
	url, ok := getString(info, "url")
	if !ok {
		return false
	}
	return strings.HasPrefix(url, prefix)
}

// ApplyRequest runs the ignore check and, for a request that is not
// ignored, SetupRequest, and returns whether the request is interesting
// enough to forward to a writer. It does not touch any Processor; the
// caller passes the result to Aggregate for the increments fill.
func ApplyRequest(resources *registry.Resources, stream *registry.StreamInfo, raw map[string]interface{}) (rd *RequestData, interesting bool, ignored bool) {
	if IgnoreRequest(raw, stream.IgnoredRequestPfx) {
		return nil, false, true
	}
	rd = SetupRequest(resources, raw)
	return rd, Interesting(rd, stream), false
}

// Aggregate folds rd/raw's increments into proc's totals and minutes maps
// for page, module and all_pages, and its quants map for page and
// all_pages only (spec §4.2k, supplemented with the module/all_pages
// minute rows the original importer also maintains).
func Aggregate(resources *registry.Resources, proc *model.Processor, raw map[string]interface{}, rd *RequestData) {
	proc.AddModule(rd.Module)
	proc.IncrementRequestCount()

	apply := func(inc *model.Increments) { FillIncrements(resources, raw, rd, inc) }
	apply(proc.TotalsFor(rd.Page))
	apply(proc.TotalsFor(rd.Module))
	apply(proc.TotalsFor(allPages))

	apply(proc.MinuteFor(rd.Minute, rd.Page))
	apply(proc.MinuteFor(rd.Minute, rd.Module))
	apply(proc.MinuteFor(rd.Minute, allPages))

	addQuants(resources, proc, raw, rd)
}

func addQuants(resources *registry.Resources, proc *model.Processor, raw map[string]interface{}, rd *RequestData) {
	for _, name := range resources.Names() {
		v, ok := getFloat(raw, name)
		if !ok || v <= 0 {
			continue
		}
		idx, ok := resources.Index(name)
		if !ok {
			continue
		}
		step := model.TimeStep
		kind := model.QuantKindTime
		switch idx {
		case resources.AllocatedObjectsIndex():
			step, kind = model.ObjectsStep, model.QuantKindMemory
		case resources.AllocatedBytesIndex():
			step, kind = model.BytesStep, model.QuantKindMemory
		default:
			fam, ok := resources.Family(name)
			if !ok || fam != registry.FamilyTime {
				continue
			}
		}
		bucket := model.Bucket(v, step)
		proc.AddQuant(kind, rd.Page, bucket, idx)
		proc.AddQuant(kind, allPages, bucket, idx)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
