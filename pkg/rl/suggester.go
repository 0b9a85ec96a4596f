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

package rl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/agentctl/agentctl/pkg/model"
)

// ModelSuggester asks a model to pick an action by number, mirroring
// RlMetaRag.llm_suggest_action's SUGGEST_ACTION_PROMPT call: the
// response is parsed as a bare integer index into actions, defaulting
// to actions[0] when it is not an integer or is out of range, as the
// original defaults to action 0. A failed model call is returned as an
// error.
type ModelSuggester struct {
	Client model.Client
	Model  string
}

// NewModelSuggester returns a Suggester backed by client, using
// modelName for every suggestion call.
func NewModelSuggester(client model.Client, modelName string) *ModelSuggester {
	return &ModelSuggester{Client: client, Model: modelName}
}

// SuggestAction implements Suggester.
func (s *ModelSuggester) SuggestAction(ctx context.Context, query string, actions []Action) (Action, error) {
	if len(actions) == 0 {
		return "", fmt.Errorf("rl: no actions to suggest from")
	}

	prompt := suggestActionPrompt(query, actions)
	raw, err := s.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{Model: s.Model})
	if err != nil {
		return "", fmt.Errorf("rl: suggestion call failed: %w", err)
	}

	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 || idx >= len(actions) {
		slog.Warn("rl: could not parse suggested action index, defaulting to first action", "response", raw)
		return actions[0], nil
	}
	return actions[idx], nil
}

func suggestActionPrompt(query string, actions []Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following query: %q, please determine the most appropriate action to use. ", query)
	b.WriteString("Select one of the following options by returning its corresponding number only:\n")
	for i, a := range actions {
		fmt.Fprintf(&b, "%d: %s\n", i, a)
	}
	b.WriteString("Return only the number.")
	return b.String()
}

var _ Suggester = (*ModelSuggester)(nil)
