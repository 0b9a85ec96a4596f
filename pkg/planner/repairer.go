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

	"github.com/agentctl/agentctl/pkg/executor"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/plan"
)

// repairResponse is the wire shape of a repair call's JSON response
// (spec §4.4: the model must return {reasoning, corrected_subtask}).
type repairResponse struct {
	Reasoning        string `json:"reasoning"`
	CorrectedSubtask string `json:"corrected_subtask"`
}

// ModelRepairer implements executor.Repairer by re-prompting the model
// with the agent's root prompt, the current plan, the failing step,
// and the error text.
type ModelRepairer struct {
	Client model.Client
	Model  string
}

// NewModelRepairer returns a Repairer backed by client.
func NewModelRepairer(client model.Client, modelName string) *ModelRepairer {
	return &ModelRepairer{Client: client, Model: modelName}
}

func (r *ModelRepairer) Repair(ctx context.Context, rootPrompt string, pl *plan.Plan, stepIndex int, errorText string) (executor.RepairResult, error) {
	step := pl.Steps[stepIndex]

	prompt := fmt.Sprintf(`The following step failed. Fix only this step's code; keep its name,
its tool, and its carry contract with the rest of the plan.

Original request:
%s

Step name: %s
Chosen tool: %s
Current code:
%s

Error:
%s

Return a single JSON object with fields: reasoning (string explaining
the fix) and corrected_subtask (the corrected source for this step
only).`, rootPrompt, step.Name, step.ChosenTool, step.Code, errorText)

	raw, err := r.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          r.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return executor.RepairResult{}, fmt.Errorf("repairing step %q: %w", step.Name, err)
	}

	var resp repairResponse
	if err := json.Unmarshal([]byte(sanitizeModelJSON(raw)), &resp); err != nil {
		return executor.RepairResult{}, fmt.Errorf("parsing repair JSON for step %q: %w", step.Name, err)
	}

	return executor.RepairResult{Reasoning: resp.Reasoning, CorrectedSubtask: resp.CorrectedSubtask}, nil
}
