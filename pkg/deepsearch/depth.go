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

// Profile is the per-depth tuning the research DAG targets: how many
// final/functional nodes a run should aim to produce, the minimum
// token budget per model call, and the external search ceiling (spec
// §6 depth profile table).
type Profile struct {
	MinFinal       int
	MinFunctional  int
	MinTokens      int
	MaxWebResults  int
	MaxScrapeChars int
}

var depthProfiles = map[int]Profile{
	1: {MinFinal: 1, MinFunctional: 1, MinTokens: 3000, MaxWebResults: 1, MaxScrapeChars: 60000},
	2: {MinFinal: 2, MinFunctional: 2, MinTokens: 5000, MaxWebResults: 2, MaxScrapeChars: 80000},
	3: {MinFinal: 3, MinFunctional: 3, MinTokens: 7000, MaxWebResults: 3, MaxScrapeChars: 100000},
	4: {MinFinal: 4, MinFunctional: 4, MinTokens: 9000, MaxWebResults: 4, MaxScrapeChars: 120000},
}

var depth5Profile = Profile{MinFinal: 5, MinFunctional: 5, MinTokens: 11000, MaxWebResults: 5, MaxScrapeChars: 140000}

// ProfileForDepth returns the tuning for depth. Depths 1-4 have their
// own distinct row; any depth 5 or above clamps to the depth-5 row.
//
// The source this is ported from has an overlapping-elif bug that
// checks "depth >= 3" before "depth >= 4", silently folding depths 4
// and 5 into the depth-3 row. That contradicts both this table's own
// distinct rows and the "depth >= 5 clamps to the depth-5 profile"
// boundary behavior, so it is not reproduced here; depths 3 and 4 each
// get their own row.
func ProfileForDepth(depth int) Profile {
	if depth >= 5 {
		return depth5Profile
	}
	if p, ok := depthProfiles[depth]; ok {
		return p
	}
	return depthProfiles[1]
}
