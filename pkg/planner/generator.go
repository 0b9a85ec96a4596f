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

	"github.com/agentctl/agentctl/pkg/catalog"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/plan"
)

// ModelGenerator generates the initial plan by prompting the model
// gateway with the conversation and the tool catalog and parsing its
// JSON response into a Plan, grounded on the source's
// PlanGenerator.generate_plan.
type ModelGenerator struct {
	Client model.Client
	Model  string
}

// NewModelGenerator returns a Generator backed by client, using
// modelName for the planning call.
func NewModelGenerator(client model.Client, modelName string) *ModelGenerator {
	return &ModelGenerator{Client: client, Model: modelName}
}

func (g *ModelGenerator) GeneratePlan(ctx context.Context, history []model.Message, tools []catalog.ToolDescriptor) (*plan.Plan, string, error) {
	rootPrompt := buildPlanPrompt(history, tools)

	raw, err := g.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: rootPrompt}}, model.ChatOptions{
		Model:          g.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generating plan: %w", err)
	}

	var pl plan.Plan
	if err := json.Unmarshal([]byte(sanitizeModelJSON(raw)), &pl); err != nil {
		return nil, "", fmt.Errorf("parsing plan JSON: %w", err)
	}
	return &pl, rootPrompt, nil
}

func buildPlanPrompt(history []model.Message, tools []catalog.ToolDescriptor) string {
	var historyText strings.Builder
	for _, m := range history {
		fmt.Fprintf(&historyText, "%s: %s\n", m.Role, m.Content)
	}

	var toolsText strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&toolsText, "- %s: %s (allowed imports: %s)\n", t.Name, t.Instructions, strings.Join(t.AllowedLibraries, ", "))
	}

	return fmt.Sprintf(`You are an AI assistant that solves tasks by decomposing them into a
chain of functions (steps), each implemented with one of the tools
below and taking the entire dictionary returned by the previous step
as its input under the name previousOutput.

Conversation:
%s

Available tools:
%s

Return a single JSON object with fields: main_task, main_task_thought,
and steps (an array of {subtask_name, chosen_tool, input_from_subtask,
description, imports, code, thought}). The first step must take no
parameters; every later step must declare exactly one parameter named
previousOutput of type map[string]any and begin its body with
updatedDict := maps.Clone(previousOutput).`, historyText.String(), toolsText.String())
}
