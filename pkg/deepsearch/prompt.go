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

import (
	"fmt"
	"strings"

	"github.com/agentctl/agentctl/pkg/graph"
	"github.com/agentctl/agentctl/pkg/model"
)

// planChainExample is a worked sample chain, spliced into the planner
// prompt as a concrete reference shape, matching
// SYSTEM_PROMPT_AGENT_PLANNER's JSON_CHAIN_EXAMPLE.
const planChainExample = `{
  "agents": [
    {
      "nickname": "MarketAnalysis",
      "llm_prompt": "Conduct a comprehensive market analysis of the request.",
      "input_from_agents": [],
      "user_questions": ["What specific products or services are involved?"],
      "external_search_query": "market analysis",
      "output_type": "functional"
    },
    {
      "nickname": "DetailedPlan",
      "llm_prompt": "Using the market analysis, write a detailed final plan.",
      "input_from_agents": ["MarketAnalysis"],
      "user_questions": [],
      "output_type": "final"
    }
  ]
}`

// planPrompt assembles the up-front planner call: the user's request,
// a worked example, and the depth-derived minima the generated chain
// must satisfy, matching SYSTEM_PROMPT_AGENT_PLANNER.
func planPrompt(sess *Session, profile Profile) string {
	var b strings.Builder

	b.WriteString("You are a world expert at making efficient plans to solve any task using an agent chain planning strategy. ")
	b.WriteString("Break the user's request down into subtasks, each handled by one agent in a chain. Each agent has:\n\n")
	b.WriteString("- nickname: a unique identifier for the agent\n")
	b.WriteString("- llm_prompt: a specific, well-structured task description for that agent\n")
	b.WriteString("- input_from_agents: an array of up to 2 nicknames of earlier, functional-output agents whose observations feed this agent\n")
	b.WriteString("- user_questions: information only the user can supply, as questions in the user's own language\n")
	b.WriteString("- external_search_query: optional, a targeted web search query for up-to-date or specialized information\n")
	b.WriteString(`- output_type: "functional" (feeds later agents only) or "final" (becomes part of the aggregated final answer)` + "\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. List agents in the chain array in chronological execution order: a dependent agent must come after every agent it draws input from.\n")
	b.WriteString("2. Return JSON only, nothing before or after it.\n")
	fmt.Fprintf(&b, "3. The chain must include at least %d agents with output_type \"final\".\n", profile.MinFinal)
	fmt.Fprintf(&b, "4. The chain must include at least %d agents with output_type \"functional\".\n", profile.MinFunctional)
	b.WriteString("5. input_from_agents may only name agents with output_type \"functional\", never \"final\".\n")
	fmt.Fprintf(&b, "6. input_from_agents may name at most %d agents.\n\n", MaxInputAgents)

	b.WriteString("Example:\n")
	b.WriteString(planChainExample)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "User request: %s\n\n", lastUserMessage(sess.ChatHistory))
	b.WriteString(`Return a single JSON object: {"agents": [...]}, each agent an object with the fields above.`)

	return b.String()
}

// answerPrompt assembles the prompt for node's observation call: its
// own instruction, the observations of only the upstream nodes it
// named in input_from_agents (never the whole chain), any answers the
// user has given its questions so far, and spliced external search
// results.
func answerPrompt(sess *Session, node *Node, profile Profile, results []SearchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User request: %s\n\n", lastUserMessage(sess.ChatHistory))
	fmt.Fprintf(&b, "Your task: %s\n\n", node.LLMPrompt)

	if len(node.InputFromAgents) > 0 {
		b.WriteString("Context from prior steps:\n")
		for _, name := range node.InputFromAgents {
			if upstream, ok := sess.nodeByNickname(name); ok {
				fmt.Fprintf(&b, "- %s: %s\n", name, upstream.Observation)
			}
		}
		b.WriteString("\n")
	}

	for i, a := range node.UserAnswers {
		if i < len(node.UserQuestions) {
			fmt.Fprintf(&b, "You asked: %s\nThe user answered: %s\n\n", node.UserQuestions[i], a)
		}
	}

	if len(results) > 0 {
		b.WriteString("External search results:\n")
		for _, r := range results {
			fmt.Fprintf(&b, "- %s (%s): %.500s\n", r.Title, r.URL, r.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Write at least %d tokens of grounded, specific analysis. "+
		"If you need information only the user can provide, return\n"+
		"user_questions instead of an observation.\n", profile.MinTokens)

	b.WriteString(`Return a single JSON object with fields: observation
(string, empty if asking questions) and user_questions (array of
strings, empty if not asking questions).`)

	return b.String()
}

// egotPrompt assembles the prompt asking the model to extend the
// knowledge graph with the reasoning artifacts node's freshly-produced
// observation surfaced: zero or more named concepts/entities and the
// relations connecting them to each other or to the graph as it stands,
// matching EGOT_GENERATION_PROMPT. This never grows the DAG itself —
// see planPrompt for that.
func egotPrompt(sess *Session, node *Node, existing map[string]graph.Node) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Initial user request: %s\n\n", lastUserMessage(sess.ChatHistory))
	fmt.Fprintf(&b, "Agent %q just produced this output:\n%s\n\n", node.Nickname, node.Observation)

	if len(existing) > 0 {
		b.WriteString("The current knowledge graph (node_id: name/concept/thought/entity_type):\n")
		for id, n := range existing {
			fmt.Fprintf(&b, "- %s: %v / %v / %v / %v\n", id, n.Properties["name"], n.Properties["concept"], n.Properties["thought"], n.Properties["entity_type"])
		}
		b.WriteString("\n")
	}

	b.WriteString(`Extract and integrate the key concepts from this output into the
knowledge graph. Return a single JSON object with fields: nodes (array
of objects, each with name, concept, thought, and entity_type e.g.
Person, Organization, Location, Event, Concept) and edges (array of
objects with from, to, and relation, where from/to are each an object
with type ("new" or "existing") and either index (position in this
nodes array, for "new") or id (a node_id from the current knowledge
graph, for "existing")). Return an empty nodes array if this output
adds nothing new.`)

	return b.String()
}

// lastUserMessage returns the most recent user turn in history, the
// request every node's prompt is ultimately answering.
func lastUserMessage(history []model.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

