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
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/plan"
)

// evaluationResponse is the wire shape of the evaluator's JSON verdict
// (spec §4.5 step 3).
type evaluationResponse struct {
	Satisfactory         bool       `json:"satisfactory"`
	Thoughts             string     `json:"thoughts"`
	FinalAnswer          string     `json:"final_answer"`
	NewPlan              *plan.Plan `json:"new_json_plan"`
	MaxIterationsReached bool       `json:"max_iterations_reached"`
}

// ModelEvaluator judges a plan iteration by prompting the model with
// the root prompt, the current plan, the iteration counter, the
// ceiling, and the trimmed log, grounded on the source's
// PlanEvaluator.evaluate.
type ModelEvaluator struct {
	Client model.Client
	Model  string
}

// NewModelEvaluator returns an Evaluator backed by client.
func NewModelEvaluator(client model.Client, modelName string) *ModelEvaluator {
	return &ModelEvaluator{Client: client, Model: modelName}
}

func (e *ModelEvaluator) Evaluate(ctx context.Context, rootPrompt string, pl *plan.Plan, iteration, maxIterations int, logs []string) (EvaluationResult, error) {
	planJSON, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return EvaluationResult{}, fmt.Errorf("marshaling plan: %w", err)
	}

	prompt := fmt.Sprintf(`You are evaluating the result of executing a plan against the
original request below. Judge whether the execution log satisfies the
request.

Original request:
%s

Current plan:
%s

Iteration %d of a maximum of %d.

Execution log:
%s

Return a single JSON object with fields: satisfactory (bool),
thoughts (string), final_answer (string, required when satisfactory or
when the iteration ceiling has been reached), new_json_plan (an object
with the same shape as the current plan, required when not
satisfactory and the ceiling has not been reached), and
max_iterations_reached (bool).`, rootPrompt, string(planJSON), iteration, maxIterations, strings.Join(logs, "\n"))

	raw, err := e.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          e.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return EvaluationResult{}, fmt.Errorf("evaluating plan: %w", err)
	}

	var resp evaluationResponse
	if err := json.Unmarshal([]byte(sanitizeModelJSON(raw)), &resp); err != nil {
		return EvaluationResult{}, fmt.Errorf("parsing evaluation JSON: %w", err)
	}

	return EvaluationResult{
		Satisfactory:         resp.Satisfactory,
		Thoughts:             resp.Thoughts,
		FinalAnswer:          resp.FinalAnswer,
		NewPlan:              resp.NewPlan,
		MaxIterationsReached: resp.MaxIterationsReached,
	}, nil
}
