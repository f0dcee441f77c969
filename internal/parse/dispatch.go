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

import "strings"

// Topic is the classification of an inbound message's topic string,
// dispatched by prefix (spec §4.2 step 5).
type Topic int

const (
	TopicUnknown Topic = iota
	TopicRequest
	TopicJSException
	TopicEvent
	TopicFrontendPage
	TopicFrontendAjax
)

// ClassifyTopic maps a raw topic string to a Topic by prefix match.
func ClassifyTopic(topic string) Topic {
	switch {
	case strings.HasPrefix(topic, "logs"):
		return TopicRequest
	case strings.HasPrefix(topic, "javascript"):
		return TopicJSException
	case strings.HasPrefix(topic, "events"):
		return TopicEvent
	case strings.HasPrefix(topic, "frontend.page"):
		return TopicFrontendPage
	case strings.HasPrefix(topic, "frontend.ajax"):
		return TopicFrontendAjax
	default:
		return TopicUnknown
	}
}
