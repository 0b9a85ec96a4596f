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

// Package executor compiles and runs each step of a validated plan in
// an isolated evaluation sandbox, threading a carry dictionary from one
// step to the next and driving the validate/execute/repair cycle spec
// §4.4 describes.
//
// Each step gets its own yaegi interpreter (github.com/traefik/yaegi):
// a fresh sandbox per step, pre-seeded with the ambient bindings
// (logger, sessionID, events) the validator's name-resolution rule
// already treats as always-in-scope. Go has no exec(code, globals)
// primitive, so "injected ambient names" is rendered as a bootstrap
// snippet evaluated into the interpreter's main-package scope before
// the step's own source, using yaegi's Use/Exports mechanism to bind
// real Go values (the logger, the session id, the event emitter) in
// rather than trying to express them as interpretable literals.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/catalog"
	"github.com/agentctl/agentctl/pkg/plan"
	"github.com/agentctl/agentctl/pkg/validator"
)

// Config bounds the repair loop's two independent retry budgets (spec
// §4.4, §7): V counts validation-repair attempts, E counts
// execution-repair attempts, and the two are never traded against each
// other. Zero is a valid value for either and means "no retries, fail
// fast on the first failure" (spec §8).
type Config struct {
	ValidationRetries int // V, default 3
	ExecutionRetries  int // E, default 3
}

// DefaultConfig returns the spec's stated defaults (V=3, E=3).
func DefaultConfig() Config {
	return Config{ValidationRetries: 3, ExecutionRetries: 3}
}

// Repairer re-prompts the model with the agent's root prompt, the
// current plan, the failing step, and the error text, and returns the
// model's corrected subtask source.
type Repairer interface {
	Repair(ctx context.Context, rootPrompt string, pl *plan.Plan, stepIndex int, errorText string) (RepairResult, error)
}

// RepairResult is the model's response to a repair prompt.
type RepairResult struct {
	Reasoning        string
	CorrectedSubtask string
}

// RegenerationAttempt records one repair round-trip for observability
// (spec §4.4 "the executor records every regeneration attempt").
type RegenerationAttempt struct {
	StepIndex int
	Phase     string // "validation" or "execution"
	ErrorText string
	Reasoning string
}

// Executor runs a Plan's steps in order.
type Executor struct {
	Config    Config
	Repairer  Repairer
	Catalog   *catalog.Catalog
	SessionID string
	Events    EventEmitter

	Regenerations []RegenerationAttempt
}

// New returns an Executor with default retry budgets.
func New(cat *catalog.Catalog, repairer Repairer, sessionID string, events EventEmitter) *Executor {
	return &Executor{
		Config:    DefaultConfig(),
		Repairer:  repairer,
		Catalog:   cat,
		SessionID: sessionID,
		Events:    events,
	}
}

// StepResult is one step's outcome: the carry it produced and the log
// entries it emitted, for the Plan/Evaluate Loop's trimmed in-memory
// log (spec §4.5 step 3).
type StepResult struct {
	Carry      map[string]any
	LogEntries []string
}

// Run executes every step of pl in order, threading the carry
// dictionary, and returns each step's result keyed by step name so
// downstream consumers (the evaluator, deep-search) can address any
// step's output directly (spec §4.4 "stored under the step's name").
func (e *Executor) Run(ctx context.Context, rootPrompt string, pl *plan.Plan) (map[string]StepResult, error) {
	results := make(map[string]StepResult, len(pl.Steps))
	var predecessorCarry map[string]any
	var predecessorKeys []string

	for i := range pl.Steps {
		res, err := e.runStep(ctx, rootPrompt, pl, i, predecessorCarry, predecessorKeys)
		if err != nil {
			return results, err
		}
		results[pl.Steps[i].Name] = res
		predecessorCarry = res.Carry
		predecessorKeys = keysOf(res.Carry)
	}
	return results, nil
}

// runStep drives the full validate -> execute -> repair cycle for one
// step, mutating pl.Steps[stepIndex].Code in place as repairs land so
// later iterations of the Plan/Evaluate Loop see the corrected version
// (spec §4.4's repair description).
func (e *Executor) runStep(
	ctx context.Context,
	rootPrompt string,
	pl *plan.Plan,
	stepIndex int,
	predecessorCarry map[string]any,
	predecessorKeys []string,
) (StepResult, error) {
	step := &pl.Steps[stepIndex]
	multiStep := len(pl.Steps) > 1

	tool, _ := e.Catalog.Lookup(step.ChosenTool)

	validationAttempts := 0
	executionAttempts := 0

	for {
		res := validator.Validate(validator.Input{
			Source:                step.Code,
			StepName:              step.Name,
			StepIndex:             stepIndex,
			MultiStep:             multiStep,
			Tool:                  tool,
			PredecessorOutputKeys: predecessorKeys,
		})

		if !res.OK {
			if validationAttempts >= e.Config.ValidationRetries {
				return StepResult{}, fmt.Errorf("%w: step %q: %s", agentctlerr.ErrValidation, step.Name, strings.Join(res.Errors, "; "))
			}
			errorText := strings.Join(res.Errors, "; ")
			repaired, err := e.Repairer.Repair(ctx, rootPrompt, pl, stepIndex, errorText)
			if err != nil {
				return StepResult{}, fmt.Errorf("%w: step %q: repair call failed: %v", agentctlerr.ErrValidation, step.Name, err)
			}
			e.Regenerations = append(e.Regenerations, RegenerationAttempt{
				StepIndex: stepIndex, Phase: "validation", ErrorText: errorText, Reasoning: repaired.Reasoning,
			})
			validationAttempts++
			step.Code = repaired.CorrectedSubtask
			continue
		}

		carry, logEntries, errorText, runErr := e.evaluate(res.CanonicalSource, step.Name, stepIndex, predecessorCarry)
		if runErr == nil && errorText == "" {
			return StepResult{Carry: carry, LogEntries: logEntries}, nil
		}

		if executionAttempts >= e.Config.ExecutionRetries {
			if runErr != nil {
				return StepResult{}, fmt.Errorf("%w: step %q: %v", agentctlerr.ErrExecution, step.Name, runErr)
			}
			return StepResult{}, fmt.Errorf("%w: step %q: %s", agentctlerr.ErrExecution, step.Name, errorText)
		}

		if runErr != nil {
			errorText = runErr.Error()
		}
		repaired, err := e.Repairer.Repair(ctx, rootPrompt, pl, stepIndex, errorText)
		if err != nil {
			return StepResult{}, fmt.Errorf("%w: step %q: repair call failed: %v", agentctlerr.ErrExecution, step.Name, err)
		}
		e.Regenerations = append(e.Regenerations, RegenerationAttempt{
			StepIndex: stepIndex, Phase: "execution", ErrorText: errorText, Reasoning: repaired.Reasoning,
		})
		executionAttempts++
		step.Code = repaired.CorrectedSubtask
		// retry from validation, per spec §4.4 "retry from (a)".
	}
}

// evaluate compiles canonicalSource in a fresh sandbox and invokes the
// step's callable, returning its carry, the log entries it emitted,
// and either a non-empty errorText (an [ERROR] log marker was found,
// or the carry invariant was violated — both route to the
// execution-repair path rather than a Go error) or a non-nil err (a
// compile failure or a runtime panic recovered from the sandbox).
func (e *Executor) evaluate(
	canonicalSource, stepName string,
	stepIndex int,
	predecessorCarry map[string]any,
) (carry map[string]any, logEntries []string, errorText string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	stepLog := newStepLogger()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, nil, "", fmt.Errorf("sandbox: loading standard library symbols: %w", err)
	}
	if err := i.Use(ambientExports(stepLog, e.SessionID, e.Events)); err != nil {
		return nil, nil, "", fmt.Errorf("sandbox: loading ambient bindings: %w", err)
	}
	if _, err := i.Eval(ambientPreamble); err != nil {
		return nil, nil, "", fmt.Errorf("sandbox: bootstrapping ambient names: %w", err)
	}
	if _, err := i.Eval(canonicalSource); err != nil {
		return nil, nil, "", fmt.Errorf("compile: %w", err)
	}

	fnVal, err := i.Eval(stepName)
	if err != nil {
		return nil, nil, "", fmt.Errorf("compile: resolving %s: %w", stepName, err)
	}

	mark := stepLog.Len()

	var result map[string]any
	if stepIndex > 0 {
		fn, ok := fnVal.Interface().(func(map[string]any) map[string]any)
		if !ok {
			return nil, nil, "", fmt.Errorf("compile: %s does not have signature func(map[string]any) map[string]any", stepName)
		}
		result = fn(predecessorCarry)
	} else {
		fn, ok := fnVal.Interface().(func() map[string]any)
		if !ok {
			return nil, nil, "", fmt.Errorf("compile: %s does not have signature func() map[string]any", stepName)
		}
		result = fn()
	}

	emitted := stepLog.Since(mark)
	for _, entry := range emitted {
		if strings.Contains(entry, "[ERROR]") {
			return result, emitted, strings.Join(emitted, "\n"), nil
		}
	}

	if stepIndex > 0 {
		if dropped := droppedKeys(predecessorCarry, result); len(dropped) > 0 {
			return result, emitted, fmt.Sprintf("[ERROR] carry invariant violated: step %q dropped keys %v", stepName, dropped), nil
		}
	}

	return result, emitted, "", nil
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// droppedKeys returns predecessor keys missing from result, enforcing
// the carry invariant keys(C_{i-1}) ⊆ keys(C_i) (spec §8) at runtime as
// a backstop to the carry-preamble's maps.Clone contract.
func droppedKeys(predecessor, result map[string]any) []string {
	var dropped []string
	for k := range predecessor {
		if _, ok := result[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	return dropped
}
