// Copyright 2025 Kadir Pekel
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

package planner

import (
	"regexp"
	"strings"
)

var (
	fencedJSONOpen  = regexp.MustCompile("(?m)^```json\\s*")
	fencedJSONClose = regexp.MustCompile("(?m)```\\s*$")
)

// sanitizeModelJSON strips a ```json fenced-code-block wrapper some
// chat models add around structured output even when asked for raw
// JSON, grounded on the source's sanitize_gpt_response.
func sanitizeModelJSON(s string) string {
	s = fencedJSONOpen.ReplaceAllString(s, "")
	s = fencedJSONClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
