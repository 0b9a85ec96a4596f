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

// Package agentctlerr holds the sentinel error values every other
// package wraps with fmt.Errorf("...: %w", ...) rather than minting its
// own ad-hoc error type, so callers up the stack can classify a failure
// with a single errors.Is check regardless of which package produced
// it. This mirrors the teacher's habit of wrapped, %w-chained errors
// (see pkg/httpclient) generalized to the failure categories spec §7
// names explicitly.
package agentctlerr

import "errors"

var (
	// ErrValidation marks a step that failed static validation after
	// exhausting its repair budget (spec §4.3, §7).
	ErrValidation = errors.New("step failed validation")

	// ErrExecution marks a step whose sandboxed invocation raised, or
	// whose log emitted an [ERROR] marker, after exhausting its repair
	// budget (spec §4.4, §7).
	ErrExecution = errors.New("step failed execution")

	// ErrPlanShape marks a plan that doesn't satisfy the structural
	// invariants of §3 (duplicate step names, a later step's input_from
	// not referencing an earlier step, and the DAG equivalents for
	// deep-search agents).
	ErrPlanShape = errors.New("plan has invalid shape")

	// ErrModelProtocol marks a model response that couldn't be parsed
	// into the schema the caller expected (plan JSON, evaluator
	// verdict, repair result, RL feature vector, graph-evolution
	// nodes) after its own retry budget.
	ErrModelProtocol = errors.New("model response did not match expected schema")

	// ErrToolResolution marks a tool or toolkit-adapter entry that
	// could not be resolved into a descriptor (spec §7 "tool
	// resolution failure") and was dropped from the catalog.
	ErrToolResolution = errors.New("tool could not be resolved")

	// ErrExternalStore marks a failure reaching the graph, session, or
	// vector store (spec §7 "external-store failure").
	ErrExternalStore = errors.New("external store operation failed")

	// ErrSessionNotFound marks a resume/follow-up call naming a
	// session the store has no record of, whether it never existed or
	// was already completed and reset (spec §4.7).
	ErrSessionNotFound = errors.New("session not found")
)
