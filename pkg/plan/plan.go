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

// Package plan defines the Plan/Step data model shared by the planner,
// the step executor, and the validator's callers — the code agent's
// one chain-of-steps representation (spec §3).
package plan

import "fmt"

// Step is one validated, executable unit of a Plan. JSON tags match the
// field names the planner prompt asks the model to return (spec §3),
// so a plan round-trips through the model gateway without a separate
// wire-format struct.
type Step struct {
	Name        string   `json:"subtask_name"`
	ChosenTool  string   `json:"chosen_tool"`
	InputFrom   string   `json:"input_from_subtask"`
	Description string   `json:"description"`
	Imports     []string `json:"imports"`
	Code        string   `json:"code"`
	Thought     string   `json:"thought"`
}

// Plan is an ordered chain of Steps produced by the planner prompt.
type Plan struct {
	MainTask        string `json:"main_task"`
	MainTaskThought string `json:"main_task_thought"`
	Steps           []Step `json:"steps"`
}

// Validate checks the structural invariants spec §3 places on a Plan,
// independent of any one step's source: step names are unique, and
// every step after the first references an earlier step's name (or
// nothing) via InputFrom.
func (p *Plan) Validate() error {
	seen := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prior, dup := seen[s.Name]; dup {
			return fmt.Errorf("step %d: name %q duplicates step %d", i, s.Name, prior)
		}
		seen[s.Name] = i

		if s.InputFrom == "" {
			continue
		}
		predIdx, ok := seen[s.InputFrom]
		if !ok || predIdx >= i {
			return fmt.Errorf("step %d: input_from %q does not reference an earlier step", i, s.InputFrom)
		}
	}
	return nil
}

// StepIndex returns the 0-based index of the step named name, or -1.
func (p *Plan) StepIndex(name string) int {
	for i, s := range p.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}
