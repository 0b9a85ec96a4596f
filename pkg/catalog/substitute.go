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

package catalog

import "strings"

// substitutePlaceholders deep-copies desc and substitutes every
// "${var}" placeholder in its string fields using vars. Unresolved
// placeholders are left intact rather than failing the build (spec
// §4.2), so a descriptor missing a credential still participates in
// planning and simply carries an unexpanded token.
//
// Substitution is idempotent: running it again on an already-resolved
// descriptor is a no-op, since a fully-resolved string contains no more
// "${...}" tokens to replace.
func substitutePlaceholders(desc ToolDescriptor, vars map[string]string) ToolDescriptor {
	out := desc
	out.Name = expand(desc.Name, vars)
	out.AllowedLibraries = append([]string(nil), desc.AllowedLibraries...)
	for i, lib := range out.AllowedLibraries {
		out.AllowedLibraries[i] = expand(lib, vars)
	}
	out.Instructions = expand(desc.Instructions, vars)
	out.CodeExample = expand(desc.CodeExample, vars)
	return out
}

func expand(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start

		b.WriteString(s[:start])
		key := s[start+2 : end]
		if val, ok := vars[key]; ok {
			b.WriteString(val)
		} else {
			// Leave the token intact; unresolved placeholders do not fail.
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	return b.String()
}
