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

// Package deepsearch is the two-phase research planner: it plans a
// fixed chain of sub-agent nodes in one up-front call, then walks it,
// optionally pausing to ask the user a clarifying question, splicing
// in external search results, and growing a session-scoped knowledge
// graph with each node's reasoning artifacts as it goes (spec §4.6).
package deepsearch

import "github.com/agentctl/agentctl/pkg/model"

// Output types a DAGAgentNode can produce.
const (
	OutputFunctional = "functional"
	OutputFinal      = "final"
)

// Session states.
const (
	StateIdle                = "idle"
	StateRunningChain         = "running_chain"
	StateWaitingForUserAnswer = "waiting_for_user_answer"
	StateCompleted            = "completed"
)

// MaxInputAgents is the most upstream nodes a single node's prompt may
// draw observations from.
const MaxInputAgents = 2

// Node is one sub-agent step in the research DAG.
type Node struct {
	Nickname            string   `json:"nickname"`
	LLMPrompt           string   `json:"llm_prompt"`
	InputFromAgents     []string `json:"input_from_agents,omitempty"`
	UserQuestions       []string `json:"user_questions,omitempty"`
	UserAnswers         []string `json:"user_answers,omitempty"`
	ExternalSearchQuery string   `json:"external_search_query,omitempty"`
	OutputType          string   `json:"output_type"`
	Observation         string   `json:"observation,omitempty"`
}

// pendingQuestions reports whether node has asked more questions than
// it has received answers for.
func (n Node) pendingQuestions() bool {
	return len(n.UserQuestions) > len(n.UserAnswers)
}

// Session is one suspendable, resumable deep-search run (spec §4.7
// persisted state layout, key `planner-<session_id>`).
type Session struct {
	SessionID     string          `json:"session_id"`
	UserID        string          `json:"user_id"`
	ChatHistory   []model.Message `json:"chat_history"`
	State         string          `json:"state"`
	Chain         []Node          `json:"json_chain"`
	StepIndex     int             `json:"step_index"`
	Depth         int             `json:"depth"`
	DataSources   []string        `json:"data_sources,omitempty"`
	FinalPartials []string        `json:"final_partials,omitempty"`
	MemoryLogs    []string        `json:"memory_logs,omitempty"`
	FinalAnswer   string          `json:"final_answer,omitempty"`
}

// current returns a pointer to the node at StepIndex, or nil if the
// chain has been fully walked.
func (s *Session) current() *Node {
	if s.StepIndex < 0 || s.StepIndex >= len(s.Chain) {
		return nil
	}
	return &s.Chain[s.StepIndex]
}

// nodeByNickname looks up an already-processed node by nickname, for
// resolving a later node's input_from_agents references.
func (s *Session) nodeByNickname(nickname string) (Node, bool) {
	for _, n := range s.Chain {
		if n.Nickname == nickname {
			return n, true
		}
	}
	return Node{}, false
}
