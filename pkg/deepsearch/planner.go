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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/graph"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/store"
)

// planAgentWire is the wire shape of one agent in the up-front chain
// call's response.
type planAgentWire struct {
	Nickname            string   `json:"nickname"`
	LLMPrompt           string   `json:"llm_prompt"`
	InputFromAgents     []string `json:"input_from_agents"`
	UserQuestions       []string `json:"user_questions"`
	ExternalSearchQuery string   `json:"external_search_query"`
	OutputType          string   `json:"output_type"`
}

type planResponse struct {
	Agents []planAgentWire `json:"agents"`
}

// answerResponse is the wire shape of a node's observation call.
type answerResponse struct {
	Observation   string   `json:"observation"`
	UserQuestions []string `json:"user_questions"`
}

// egotNodeWire is the wire shape of one knowledge-graph artifact the
// evolution call proposes.
type egotNodeWire struct {
	Name       string `json:"name"`
	Concept    string `json:"concept"`
	Thought    string `json:"thought"`
	EntityType string `json:"entity_type"`
}

// egotEndpointWire is the wire shape of one edge endpoint: either
// "new" (index into the accompanying nodes array) or "existing" (id, a
// real graph-store node ID pulled from the live graph snapshot handed
// to the model).
type egotEndpointWire struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	ID    string `json:"id"`
}

type egotEdgeWire struct {
	From     egotEndpointWire `json:"from"`
	To       egotEndpointWire `json:"to"`
	Relation string            `json:"relation"`
}

type egotResponse struct {
	Nodes []egotNodeWire `json:"nodes"`
	Edges []egotEdgeWire `json:"edges"`
}

// Planner runs the research DAG: one session at a time, suspending to
// the session store whenever a node needs a user answer, and growing a
// session-scoped knowledge graph of reasoning artifacts alongside the
// (fixed, up-front-planned) chain of sub-agent nodes.
type Planner struct {
	Sessions  store.Store
	Graph     graph.Store
	Client    model.Client
	Model     string
	Searcher  ExternalSearcher // optional; nil skips external search entirely
	PurgeDone bool             // purge the session's graph once it completes
}

// NewPlanner returns a Planner backed by the given collaborators.
func NewPlanner(sessions store.Store, g graph.Store, client model.Client, modelName string, searcher ExternalSearcher) *Planner {
	return &Planner{Sessions: sessions, Graph: g, Client: client, Model: modelName, Searcher: searcher}
}

// Start plans the full agent chain for the user's request in one
// up-front call, then runs it to completion or the first suspension
// point.
func (p *Planner) Start(ctx context.Context, sessionID, userID string, chatHistory []model.Message, depth int) (*Session, error) {
	sess := &Session{
		SessionID:   sessionID,
		UserID:      userID,
		ChatHistory: chatHistory,
		State:       StateRunningChain,
		Depth:       depth,
	}

	profile := ProfileForDepth(depth)
	nodes, err := p.plan(ctx, sess, profile)
	if err != nil {
		return nil, fmt.Errorf("planning agent chain: %w", err)
	}
	sess.Chain = validateAndRepairChain(nodes)

	return p.advance(ctx, sess)
}

// Resume loads a suspended session, appends userAnswer to the node
// waiting on it, and continues running.
func (p *Planner) Resume(ctx context.Context, sessionID, userAnswer string) (*Session, error) {
	sess, err := p.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != StateWaitingForUserAnswer {
		return nil, fmt.Errorf("resuming session %s: not waiting for a user answer (state=%s)", sessionID, sess.State)
	}

	node := sess.current()
	if node == nil {
		return nil, fmt.Errorf("resuming session %s: step index %d out of range", sessionID, sess.StepIndex)
	}
	node.UserAnswers = append(node.UserAnswers, userAnswer)
	sess.State = StateRunningChain

	return p.advance(ctx, sess)
}

func (p *Planner) load(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	found, err := store.LoadJSON(ctx, p.Sessions, store.PlannerKey(sessionID), &sess)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	if !found {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, agentctlerr.ErrSessionNotFound)
	}
	return &sess, nil
}

func (p *Planner) save(ctx context.Context, sess *Session) error {
	if err := store.SaveJSON(ctx, p.Sessions, store.PlannerKey(sess.SessionID), sess); err != nil {
		return fmt.Errorf("saving session %s: %w", sess.SessionID, err)
	}
	return nil
}

// advance walks the (fixed-length, up-front-planned) chain from
// sess.StepIndex until it either suspends for a user answer or runs
// off the end of the chain, at which point the session completes. The
// chain itself never grows here; only the knowledge graph does, via
// evolve.
func (p *Planner) advance(ctx context.Context, sess *Session) (*Session, error) {
	profile := ProfileForDepth(sess.Depth)

	for sess.StepIndex < len(sess.Chain) {
		node := &sess.Chain[sess.StepIndex]

		if node.pendingQuestions() {
			sess.State = StateWaitingForUserAnswer
			if err := p.save(ctx, sess); err != nil {
				return nil, err
			}
			return sess, nil
		}

		var results []SearchResult
		if node.ExternalSearchQuery != "" && p.Searcher != nil {
			r, err := p.Searcher.Search(ctx, node.ExternalSearchQuery, profile.MaxWebResults, profile.MaxScrapeChars)
			if err != nil {
				slog.Warn("external search failed", "session", sess.SessionID, "node", node.Nickname, "error", err)
			} else {
				results = r
			}
		}

		answer, err := p.answer(ctx, sess, node, profile, results)
		if err != nil {
			return nil, fmt.Errorf("answering node %q: %w", node.Nickname, err)
		}
		if len(answer.UserQuestions) > 0 {
			node.UserQuestions = answer.UserQuestions
			sess.State = StateWaitingForUserAnswer
			if err := p.save(ctx, sess); err != nil {
				return nil, err
			}
			return sess, nil
		}
		node.Observation = answer.Observation

		if err := p.evolve(ctx, sess, node); err != nil {
			return nil, fmt.Errorf("growing knowledge graph from node %q: %w", node.Nickname, err)
		}

		if node.OutputType == OutputFinal {
			sess.FinalPartials = append(sess.FinalPartials, node.Observation)
		}

		sess.StepIndex++

		if err := p.save(ctx, sess); err != nil {
			return nil, err
		}
	}

	sess.FinalAnswer = assembleFinalAnswer(sess.FinalPartials)
	sess.State = StateCompleted
	if err := p.save(ctx, sess); err != nil {
		return nil, err
	}

	if p.PurgeDone {
		if err := p.Graph.Purge(ctx, sess.SessionID); err != nil {
			slog.Warn("purging completed session's graph failed", "session", sess.SessionID, "error", err)
		}
	}

	return sess, nil
}

// plan makes the single up-front model call that produces the entire
// bounded agent chain before any node runs.
func (p *Planner) plan(ctx context.Context, sess *Session, profile Profile) ([]Node, error) {
	prompt := planPrompt(sess, profile)

	raw, err := p.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          p.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return nil, err
	}

	var resp planResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}

	nodes := make([]Node, len(resp.Agents))
	for i, a := range resp.Agents {
		nodes[i] = Node{
			Nickname:            a.Nickname,
			LLMPrompt:           a.LLMPrompt,
			InputFromAgents:     a.InputFromAgents,
			UserQuestions:       a.UserQuestions,
			ExternalSearchQuery: a.ExternalSearchQuery,
			OutputType:          a.OutputType,
		}
	}
	return nodes, nil
}

// validateAndRepairChain enforces the chain properties a planned
// agent's input_from_agents must satisfy (spec §8): at most
// MaxInputAgents entries, each naming an earlier, functional-output
// agent. Violating entries are dropped rather than rejecting the whole
// chain.
func validateAndRepairChain(nodes []Node) []Node {
	functionalSoFar := make(map[string]bool, len(nodes))

	for i := range nodes {
		n := &nodes[i]
		kept := make([]string, 0, len(n.InputFromAgents))
		for _, name := range n.InputFromAgents {
			if len(kept) >= MaxInputAgents {
				break
			}
			if functionalSoFar[name] {
				kept = append(kept, name)
			}
		}
		n.InputFromAgents = kept

		if n.OutputType == OutputFunctional {
			functionalSoFar[n.Nickname] = true
		}
	}

	return nodes
}

func (p *Planner) answer(ctx context.Context, sess *Session, node *Node, profile Profile, results []SearchResult) (answerResponse, error) {
	prompt := answerPrompt(sess, node, profile, results)

	raw, err := p.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          p.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return answerResponse{}, err
	}

	var resp answerResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return answerResponse{}, fmt.Errorf("parsing answer JSON: %w", err)
	}
	return resp, nil
}

// evolve asks the model to extract reasoning artifacts from node's
// freshly-produced observation and integrate them into the session's
// knowledge graph. It never grows sess.Chain — the chain is fixed by
// plan — only the graph store.
func (p *Planner) evolve(ctx context.Context, sess *Session, node *Node) error {
	existing, err := p.Graph.Graph(ctx, sess.SessionID)
	if err != nil {
		return fmt.Errorf("reading current graph: %w", err)
	}

	prompt := egotPrompt(sess, node, existing)
	raw, err := p.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          p.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		return err
	}

	var resp egotResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fmt.Errorf("parsing evolve JSON: %w", err)
	}
	if len(resp.Nodes) == 0 {
		return nil
	}

	batch := make([]map[string]any, len(resp.Nodes))
	for i, n := range resp.Nodes {
		batch[i] = map[string]any{
			"agent_nickname": node.Nickname,
			"name":           n.Name,
			"concept":        n.Concept,
			"thought":        n.Thought,
			"entity_type":    n.EntityType,
		}
	}

	edges := make([]graph.EdgeSpec, 0, len(resp.Edges))
	for _, e := range resp.Edges {
		from, ok := resolveEgotEndpoint(e.From, len(resp.Nodes), existing)
		if !ok {
			slog.Warn("dropping evolve edge with unresolvable endpoint", "session", sess.SessionID, "node", node.Nickname)
			continue
		}
		to, ok := resolveEgotEndpoint(e.To, len(resp.Nodes), existing)
		if !ok {
			slog.Warn("dropping evolve edge with unresolvable endpoint", "session", sess.SessionID, "node", node.Nickname)
			continue
		}
		edges = append(edges, graph.EdgeSpec{From: from, To: to, Label: e.Relation})
	}

	if _, err := p.Graph.CreateBatch(ctx, sess.SessionID, batch, edges); err != nil {
		return err
	}
	return nil
}

// resolveEgotEndpoint resolves one evolve-call edge endpoint: "new"
// indexes into the batch this call is about to create (bounds-checked
// against newCount); "existing" must name a real ID already present in
// the live graph snapshot handed to the model.
func resolveEgotEndpoint(e egotEndpointWire, newCount int, existing map[string]graph.Node) (graph.Endpoint, bool) {
	switch e.Type {
	case "new":
		if e.Index < 0 || e.Index >= newCount {
			return graph.Endpoint{}, false
		}
		return graph.Endpoint{Kind: graph.EndpointNew, Index: e.Index}, true
	case "existing":
		if _, ok := existing[e.ID]; !ok {
			return graph.Endpoint{}, false
		}
		return graph.Endpoint{Kind: graph.EndpointExisting, ID: e.ID}, true
	default:
		return graph.Endpoint{}, false
	}
}

// assembleFinalAnswer joins every final-output node's observation
// into one document, wrapped as the html fragment spec §4.6 calls for.
func assembleFinalAnswer(partials []string) string {
	body := ""
	for i, p := range partials {
		if i > 0 {
			body += "\n"
		}
		body += stripHTMLBodyTags(p)
	}
	return "<html><body>" + body + "</body></html>"
}
