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

package deepsearch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/deepsearch"
	"github.com/agentctl/agentctl/pkg/graph"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/store"
)

// scriptedClient returns its scripted responses in order, regardless
// of prompt content, so a test can pin down an exact call sequence.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Chat(ctx context.Context, history []model.Message, opts model.ChatOptions) (string, error) {
	if c.calls >= len(c.responses) {
		return "", errors.New("scriptedClient: ran out of scripted responses")
	}
	r := c.responses[c.calls]
	c.calls++
	return r, nil
}

func (c *scriptedClient) Embed(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func history(userText string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: userText}}
}

func TestPlanner_StartPlansChainUpFrontThenCompletes(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"agents": [{"nickname": "root", "llm_prompt": "research X", "input_from_agents": [], "output_type": "final"}]}`,
		`{"observation": "root done", "user_questions": []}`,
		`{"nodes": [], "edges": []}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-1", "user-1", history("research X"), 1)
	require.NoError(t, err)

	assert.Equal(t, deepsearch.StateCompleted, sess.State)
	require.Len(t, sess.Chain, 1)
	assert.Equal(t, "root", sess.Chain[0].Nickname)
	assert.Contains(t, sess.FinalAnswer, "root done")
}

func TestPlanner_StartSuspendsOnUserQuestionsSeededFromThePlanCall(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"agents": [{"nickname": "root", "llm_prompt": "research X", "input_from_agents": [], "user_questions": ["which time period?"], "output_type": "final"}]}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-2", "user-1", history("research X"), 1)
	require.NoError(t, err)

	assert.Equal(t, deepsearch.StateWaitingForUserAnswer, sess.State)
	assert.Equal(t, []string{"which time period?"}, sess.Chain[0].UserQuestions)
	assert.Equal(t, 1, client.calls, "only the up-front plan call should have run")
}

func TestPlanner_ResumeAppendsAnswerAndContinues(t *testing.T) {
	sessions := store.NewMemory()
	g := graph.NewMemory()
	client := &scriptedClient{responses: []string{
		`{"agents": [{"nickname": "root", "llm_prompt": "research X", "input_from_agents": [], "user_questions": ["which time period?"], "output_type": "final"}]}`,
	}}

	p := deepsearch.NewPlanner(sessions, g, client, "gpt-x", nil)
	_, err := p.Start(context.Background(), "sess-3", "user-1", history("research X"), 1)
	require.NoError(t, err)

	client.responses = append(client.responses,
		`{"observation": "root done", "user_questions": []}`,
		`{"nodes": [], "edges": []}`,
	)

	sess, err := p.Resume(context.Background(), "sess-3", "the last decade")
	require.NoError(t, err)
	assert.Equal(t, deepsearch.StateCompleted, sess.State)
	assert.Equal(t, []string{"the last decade"}, sess.Chain[0].UserAnswers)
}

func TestPlanner_ResumeUnknownSessionReturnsErrSessionNotFound(t *testing.T) {
	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), &scriptedClient{}, "gpt-x", nil)
	_, err := p.Resume(context.Background(), "never-started", "answer")
	assert.True(t, errors.Is(err, agentctlerr.ErrSessionNotFound))
}

func TestPlanner_EvolveWritesKnowledgeGraphArtifactsWithoutGrowingTheChain(t *testing.T) {
	g := graph.NewMemory()
	client := &scriptedClient{responses: []string{
		`{"agents": [
			{"nickname": "root", "llm_prompt": "survey", "input_from_agents": [], "output_type": "functional"},
			{"nickname": "child", "llm_prompt": "conclude", "input_from_agents": ["root"], "output_type": "final"}
		]}`,
		`{"observation": "root done", "user_questions": []}`,
		`{"nodes": [{"name": "Thing", "concept": "concept", "thought": "thought", "entity_type": "Concept"}], "edges": []}`,
		`{"observation": "child done", "user_questions": []}`,
		`{"nodes": [], "edges": []}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), g, client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-4", "user-1", history("research X"), 1)
	require.NoError(t, err)

	require.Equal(t, deepsearch.StateCompleted, sess.State)
	require.Len(t, sess.Chain, 2, "evolve must never grow the planned chain")
	assert.Equal(t, "child", sess.Chain[1].Nickname)
	assert.Equal(t, "child done", sess.Chain[1].Observation)
	assert.Contains(t, sess.FinalAnswer, "child done")

	full, err := g.Graph(context.Background(), "sess-4")
	require.NoError(t, err)
	require.Len(t, full, 1, "only root's evolve call produced an artifact")
	for _, n := range full {
		assert.Equal(t, "root", n.Properties["agent_nickname"])
		assert.Equal(t, "Thing", n.Properties["name"])
	}
}

func TestPlanner_StartRepairsInvalidInputFromAgentsReferences(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"agents": [
			{"nickname": "A", "llm_prompt": "a", "input_from_agents": [], "output_type": "functional"},
			{"nickname": "B", "llm_prompt": "b", "input_from_agents": [], "output_type": "functional"},
			{"nickname": "C", "llm_prompt": "c", "input_from_agents": [], "output_type": "functional"},
			{"nickname": "D", "llm_prompt": "d", "input_from_agents": ["A", "B", "C"], "output_type": "final"}
		]}`,
		`{"observation": "a", "user_questions": []}`, `{"nodes": [], "edges": []}`,
		`{"observation": "b", "user_questions": []}`, `{"nodes": [], "edges": []}`,
		`{"observation": "c", "user_questions": []}`, `{"nodes": [], "edges": []}`,
		`{"observation": "d", "user_questions": []}`, `{"nodes": [], "edges": []}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-5", "user-1", history("research X"), 1)
	require.NoError(t, err)

	require.Len(t, sess.Chain, 4)
	assert.Equal(t, []string{"A", "B"}, sess.Chain[3].InputFromAgents, "must truncate to MaxInputAgents")
}

func TestPlanner_StartDropsInputFromAgentsReferencingANonFunctionalOrLaterAgent(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"agents": [
			{"nickname": "F1", "llm_prompt": "f1", "input_from_agents": [], "output_type": "final"},
			{"nickname": "F2", "llm_prompt": "f2", "input_from_agents": ["F1", "F3"], "output_type": "final"}
		]}`,
		`{"observation": "f1", "user_questions": []}`, `{"nodes": [], "edges": []}`,
		`{"observation": "f2", "user_questions": []}`, `{"nodes": [], "edges": []}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-6", "user-1", history("research X"), 1)
	require.NoError(t, err)

	assert.Empty(t, sess.Chain[1].InputFromAgents, "F1 is not functional and F3 does not exist")
}

func TestPlanner_FinalAnswerWrapsPartialsInHTMLBody(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"agents": [{"nickname": "root", "llm_prompt": "research X", "input_from_agents": [], "output_type": "final"}]}`,
		`{"observation": "<html><body>insight one</body></html>", "user_questions": []}`,
		`{"nodes": [], "edges": []}`,
	}}

	p := deepsearch.NewPlanner(store.NewMemory(), graph.NewMemory(), client, "gpt-x", nil)
	sess, err := p.Start(context.Background(), "sess-7", "user-1", history("research X"), 1)
	require.NoError(t, err)

	assert.Equal(t, "<html><body>insight one</body></html>", sess.FinalAnswer)
}

func TestProfileForDepth_ClampsAboveFiveToDepthFiveRow(t *testing.T) {
	p3 := deepsearch.ProfileForDepth(3)
	p4 := deepsearch.ProfileForDepth(4)
	p5 := deepsearch.ProfileForDepth(5)
	p9 := deepsearch.ProfileForDepth(9)

	assert.NotEqual(t, p3, p4, "depth 3 and 4 must have distinct profiles")
	assert.Equal(t, p5, p9, "depth 9 must clamp to the depth-5 profile")
	assert.Equal(t, 7000, p3.MinTokens)
	assert.Equal(t, 9000, p4.MinTokens)
	assert.Equal(t, 11000, p5.MinTokens)
}
