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

package rl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/rl"
	"github.com/agentctl/agentctl/pkg/store"
)

type fakeClient struct {
	chatResp string
	chatErr  error
}

func (f *fakeClient) Chat(ctx context.Context, history []model.Message, opts model.ChatOptions) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatResp, nil
}

func (f *fakeClient) Embed(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	return nil, nil
}

// stubSuggester always returns the same fixed action, for tests that
// only care about which branch Selector took, not what a model would
// say.
type stubSuggester struct {
	action rl.Action
	err    error
}

func (s *stubSuggester) SuggestAction(ctx context.Context, query string, actions []rl.Action) (rl.Action, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.action, nil
}

func TestRingBuffer_EvictsOldestWhenFull(t *testing.T) {
	b := rl.NewRingBuffer(2)
	b.Add(rl.Sample{Action: "a"})
	b.Add(rl.Sample{Action: "b"})
	b.Add(rl.Sample{Action: "c"})

	assert.Equal(t, 2, b.Len())
	samples := b.Samples()
	assert.Equal(t, rl.Action("b"), samples[0].Action)
	assert.Equal(t, rl.Action("c"), samples[1].Action)
}

func TestErrorBuffer_EvictsOldestWhenFull(t *testing.T) {
	b := rl.NewErrorBuffer(2)
	b.Add(1.0)
	b.Add(0.0)
	b.Add(2.0)

	assert.Equal(t, 2, b.Len())
	assert.InDelta(t, 1.0, b.Mean(), 1e-9) // (0 + 2) / 2
}

func TestErrorBuffer_StoresAbsoluteValue(t *testing.T) {
	b := rl.NewErrorBuffer(5)
	b.Add(-4.0)
	assert.InDelta(t, 4.0, b.Mean(), 1e-9)
}

func TestErrorBuffer_MeanOfEmptyBufferIsZero(t *testing.T) {
	b := rl.NewErrorBuffer(5)
	assert.Equal(t, 0.0, b.Mean())
}

func TestTabularEstimator_UpdateMovesQTowardReward(t *testing.T) {
	e := rl.NewTabularEstimator()
	features := []float64{1.0, 2.0}

	_, err := e.Update(features, "a", 1.0, nil, nil, false)
	require.NoError(t, err)
	_, err = e.Update(features, "a", 1.0, nil, nil, false)
	require.NoError(t, err)

	assert.Greater(t, e.Predict(features, "a"), 0.0)
	assert.Equal(t, 0.0, e.Predict(features, "b")) // unseen action defaults to 0
}

func TestTabularEstimator_BootstrapUpdateIncludesDiscountedNextStateMax(t *testing.T) {
	e := rl.NewTabularEstimator()
	e.Alpha = 1.0 // collapse Q <- target for a direct assertion
	e.Gamma = 0.5
	features := []float64{1.0}
	next := []float64{2.0}

	_, err := e.Update(next, "x", 10.0, nil, nil, false)
	require.NoError(t, err)

	tdError, err := e.Update(features, "a", 1.0, next, []rl.Action{"x", "y"}, true)
	require.NoError(t, err)

	// target = reward + gamma*maxQ(next) = 1.0 + 0.5*10.0 = 6.0
	assert.InDelta(t, 6.0, tdError, 1e-9)
	assert.InDelta(t, 6.0, e.Predict(features, "a"), 1e-9)
}

func TestTabularEstimator_BootstrapUpdateRequiresNextState(t *testing.T) {
	e := rl.NewTabularEstimator()
	_, err := e.Update([]float64{1}, "a", 1.0, nil, nil, true)
	assert.Error(t, err)
}

func TestApproxEstimator_UpdateMovesPredictionTowardReward(t *testing.T) {
	e := rl.NewApproxEstimator(3, 0.5)
	features := []float64{1, 0, 0}

	before := e.Predict(features, "a")
	_, err := e.Update(features, "a", 10, nil, nil, false)
	require.NoError(t, err)
	after := e.Predict(features, "a")

	assert.Greater(t, after, before)
}

func TestApproxEstimator_BootstrapUpdateIncludesDiscountedNextStateMax(t *testing.T) {
	e := rl.NewApproxEstimator(1, 1.0)
	e.Gamma = 0.5
	next := []float64{1}

	_, err := e.Update(next, "x", 10.0, nil, nil, false)
	require.NoError(t, err)

	tdError, err := e.Update([]float64{1}, "a", 1.0, next, []rl.Action{"x", "y"}, true)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, tdError, 1e-9)
}

func TestApproxEstimator_RejectsMismatchedFeatureLength(t *testing.T) {
	e := rl.NewApproxEstimator(3, 0.5)
	_, err := e.Update([]float64{1, 2}, "a", 1.0, nil, nil, false)
	assert.Error(t, err)
}

func TestApproxEstimator_RejectsMismatchedNextFeatureLengthOnBootstrap(t *testing.T) {
	e := rl.NewApproxEstimator(3, 0.5)
	_, err := e.Update([]float64{1, 2, 3}, "a", 1.0, []float64{1, 2}, []rl.Action{"a"}, true)
	assert.Error(t, err)
}

func TestSelector_BelowRecentErrorWindowConsultsSuggester(t *testing.T) {
	est := rl.NewTabularEstimator()
	errs := rl.NewErrorBuffer(100)
	cfg := rl.DefaultSelectorConfig()
	cfg.RecentErrorWindow = 5

	sel := rl.NewSelector(cfg, est, errs, &stubSuggester{action: "b"})
	action, err := sel.Select(context.Background(), "a query", []float64{1}, []rl.Action{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("b"), action)
}

func TestSelector_HighRecentErrorMeanConsultsSuggesterEvenWithEnoughHistory(t *testing.T) {
	est := rl.NewTabularEstimator()
	errs := rl.NewErrorBuffer(5)
	for i := 0; i < 5; i++ {
		errs.Add(1.0) // mean 1.0 > default threshold 0.5
	}
	cfg := rl.DefaultSelectorConfig()
	cfg.RecentErrorWindow = 5

	sel := rl.NewSelector(cfg, est, errs, &stubSuggester{action: "a"})
	action, err := sel.Select(context.Background(), "a query", []float64{1}, []rl.Action{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("a"), action)
}

func TestSelector_LowRecentErrorWithZeroEpsilonExploitsBestAction(t *testing.T) {
	est := rl.NewTabularEstimator()
	features := []float64{1}
	_, err := est.Update(features, "a", 1.0, nil, nil, false)
	require.NoError(t, err)
	_, err = est.Update(features, "b", 10.0, nil, nil, false)
	require.NoError(t, err)

	errs := rl.NewErrorBuffer(5)
	for i := 0; i < 5; i++ {
		errs.Add(0.0) // below threshold, enough history
	}

	cfg := rl.SelectorConfig{InitialEpsilon: 0, MinEpsilon: 0, DecayPerEpisode: 1, RecentErrorWindow: 5, ErrorThreshold: 0.5}
	sel := rl.NewSelector(cfg, est, errs, &stubSuggester{action: "a"})

	action, err := sel.Select(context.Background(), "a query", features, []rl.Action{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("b"), action)
}

func TestSelector_NoActionsIsAnError(t *testing.T) {
	sel := rl.NewSelector(rl.DefaultSelectorConfig(), rl.NewTabularEstimator(), rl.NewErrorBuffer(10), &stubSuggester{})
	_, err := sel.Select(context.Background(), "a query", []float64{1}, nil)
	assert.Error(t, err)
}

func TestSelector_SuggesterFailurePropagatesError(t *testing.T) {
	cfg := rl.DefaultSelectorConfig()
	cfg.RecentErrorWindow = 5
	sel := rl.NewSelector(cfg, rl.NewTabularEstimator(), rl.NewErrorBuffer(5), &stubSuggester{err: errors.New("model unavailable")})

	_, err := sel.Select(context.Background(), "a query", []float64{1}, []rl.Action{"a", "b"})
	assert.Error(t, err)
}

func TestApplyRating_UpdatesEstimatorAndClearsPendingKey(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, rl.SavePending(ctx, s, "sess-1", rl.PendingRecord{
		Features: []float64{1, 2},
		Action:   "code_agent",
	}))

	est := rl.NewTabularEstimator()
	errs := rl.NewErrorBuffer(10)
	buf := rl.NewRingBuffer(10)

	require.NoError(t, rl.ApplyRating(ctx, s, est, errs, buf, "sess-1", 0.9))

	assert.Greater(t, est.Predict([]float64{1, 2}, "code_agent"), 0.0)
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, 1, errs.Len())

	_, err := s.Get(ctx, store.RLUpdateKey("sess-1"))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestApplyRating_UnknownSessionReturnsErrSessionNotFound(t *testing.T) {
	s := store.NewMemory()
	err := rl.ApplyRating(context.Background(), s, rl.NewTabularEstimator(), rl.NewErrorBuffer(10), rl.NewRingBuffer(10), "never-rated", 1.0)
	assert.True(t, errors.Is(err, agentctlerr.ErrSessionNotFound))
}

func TestVectorize_HasFixedLength(t *testing.T) {
	v := rl.Vectorize(rl.DefaultRLState("please fix this bug in my script"))
	assert.Len(t, v, rl.FeatureCount)
}

func TestVectorize_OneHotsMatchedCategories(t *testing.T) {
	state := rl.RLState{QuestionType: rl.QuestionTypes[2], Domain: rl.Domains[1]}
	v := rl.Vectorize(state)

	assert.Equal(t, 1.0, v[2])
	assert.Equal(t, 1.0, v[len(rl.QuestionTypes)+1])
}

func TestModelFeatureExtractor_ValidResponseIsParsed(t *testing.T) {
	client := &fakeClient{chatResp: `["fact", "science", true, 0.2, 0.1, 5, 0.4, 0.3, 0.1]`}
	extractor := rl.NewModelFeatureExtractor(client, "gpt-4o-mini")

	state := extractor.Extract(context.Background(), "what is the speed of light?")
	assert.Equal(t, "fact", state.QuestionType)
	assert.Equal(t, "science", state.Domain)
	assert.True(t, state.HasEntities)
	assert.Equal(t, 5, state.QueryLength)
}

func TestModelFeatureExtractor_UnparsableResponseFallsBackToDefault(t *testing.T) {
	client := &fakeClient{chatResp: "not json"}
	extractor := rl.NewModelFeatureExtractor(client, "gpt-4o-mini")

	state := extractor.Extract(context.Background(), "please fix this bug in my script")
	assert.Equal(t, rl.DefaultRLState("please fix this bug in my script"), state)
}

func TestModelFeatureExtractor_CallFailureFallsBackToDefault(t *testing.T) {
	client := &fakeClient{chatErr: errors.New("backend down")}
	extractor := rl.NewModelFeatureExtractor(client, "gpt-4o-mini")

	state := extractor.Extract(context.Background(), "please fix this bug in my script")
	assert.Equal(t, rl.DefaultRLState("please fix this bug in my script"), state)
}

func TestModelSuggester_ValidResponseSelectsAction(t *testing.T) {
	client := &fakeClient{chatResp: "1"}
	s := rl.NewModelSuggester(client, "gpt-4o-mini")

	action, err := s.SuggestAction(context.Background(), "a query", []rl.Action{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("b"), action)
}

func TestModelSuggester_UnparsableResponseDefaultsToFirstAction(t *testing.T) {
	client := &fakeClient{chatResp: "not a number"}
	s := rl.NewModelSuggester(client, "gpt-4o-mini")

	action, err := s.SuggestAction(context.Background(), "a query", []rl.Action{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("a"), action)
}

func TestModelSuggester_OutOfRangeIndexDefaultsToFirstAction(t *testing.T) {
	client := &fakeClient{chatResp: "9"}
	s := rl.NewModelSuggester(client, "gpt-4o-mini")

	action, err := s.SuggestAction(context.Background(), "a query", []rl.Action{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, rl.Action("a"), action)
}
