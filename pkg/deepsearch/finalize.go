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

package deepsearch

import "regexp"

// htmlBodyTag matches an opening or closing <html> or <body> tag
// (attributes allowed), so a final-output node's own markup doesn't
// end up double-wrapped when its partial is folded into the overall
// final answer.
var htmlBodyTag = regexp.MustCompile(`(?i)</?(html|body)[^>]*>`)

func stripHTMLBodyTags(s string) string {
	return htmlBodyTag.ReplaceAllString(s, "")
}
