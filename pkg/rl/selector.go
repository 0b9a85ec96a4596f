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
	"math/rand"

	"github.com/agentctl/agentctl/pkg/metrics"
)

// SelectorConfig tunes the epsilon-greedy schedule and the
// recent-error gate that falls back to a model suggestion.
type SelectorConfig struct {
	// InitialEpsilon is the exploration probability before any decay.
	InitialEpsilon float64

	// MinEpsilon is the floor the decay never goes below.
	MinEpsilon float64

	// DecayPerEpisode multiplies epsilon after each episode (0 < x <= 1).
	DecayPerEpisode float64

	// RecentErrorWindow is N: the estimator's error history must hold at
	// least this many entries before Select will trust it at all,
	// matching RlMetaRag.select_rag_technique's len(error_list) check.
	RecentErrorWindow int

	// ErrorThreshold is θ: if the mean of the TD errors held in the
	// error buffer exceeds this, Select falls back to the model
	// suggestion regardless of how much history exists.
	ErrorThreshold float64
}

// DefaultSelectorConfig returns reasonable epsilon-decay bookkeeping
// and the RlMetaRag defaults for the recent-error gate (n_recent=50,
// error_threshold=0.5).
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		InitialEpsilon:    1.0,
		MinEpsilon:        0.05,
		DecayPerEpisode:   0.99,
		RecentErrorWindow: 50,
		ErrorThreshold:    0.5,
	}
}

// Suggester asks a model to pick an action directly, bypassing the
// estimator entirely. Selector calls it when the estimator hasn't seen
// enough history, or has recently been wrong too often to trust.
type Suggester interface {
	SuggestAction(ctx context.Context, query string, actions []Action) (Action, error)
}

// Selector picks an Action for a feature vector: below the recent-error
// gate it defers to a Suggester; above it, it explores with probability
// epsilon (decayed by episode count) and otherwise exploits the
// estimator's highest-predicted action.
type Selector struct {
	Config    SelectorConfig
	Estimator Estimator
	Errors    *ErrorBuffer
	Suggester Suggester
	episode   int
	rand      *rand.Rand

	// Metrics records the selection mode and the chosen action; nil is
	// a safe no-op.
	Metrics *metrics.Metrics
}

// NewSelector returns a Selector backed by estimator, errors and
// suggester.
func NewSelector(cfg SelectorConfig, estimator Estimator, errors *ErrorBuffer, suggester Suggester) *Selector {
	return &Selector{
		Config:    cfg,
		Estimator: estimator,
		Errors:    errors,
		Suggester: suggester,
		rand:      rand.New(rand.NewSource(1)),
	}
}

// Select returns one of actions for a query and its feature vector.
//
// When the error buffer holds fewer than RecentErrorWindow entries, or
// their mean exceeds ErrorThreshold, the estimator isn't trusted yet:
// Select consults Suggester with a strategy-suggestion prompt instead,
// matching §4.8's "consult the model... use its integer answer." Only
// once the estimator has enough low-error history does Select fall
// back to ordinary epsilon-greedy exploitation.
func (s *Selector) Select(ctx context.Context, query string, features []float64, actions []Action) (Action, error) {
	if len(actions) == 0 {
		return "", fmt.Errorf("rl: no actions to select from")
	}

	if s.Errors.Len() < s.Config.RecentErrorWindow || s.Errors.Mean() > s.Config.ErrorThreshold {
		chosen, err := s.Suggester.SuggestAction(ctx, query, actions)
		if err != nil {
			return "", fmt.Errorf("rl: suggesting action: %w", err)
		}
		s.Metrics.RLAction(string(chosen), "llm_suggested")
		return chosen, nil
	}

	if s.rand.Float64() < s.epsilon() {
		chosen := actions[s.rand.Intn(len(actions))]
		s.Metrics.RLAction(string(chosen), "explore")
		return chosen, nil
	}

	best := actions[0]
	bestScore := s.Estimator.Predict(features, best)
	for _, a := range actions[1:] {
		score := s.Estimator.Predict(features, a)
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	s.Metrics.RLAction(string(best), "exploit")
	return best, nil
}

// epsilon returns the current exploration probability, decayed by
// episode count and floored at MinEpsilon.
func (s *Selector) epsilon() float64 {
	eps := s.Config.InitialEpsilon
	for i := 0; i < s.episode; i++ {
		eps *= s.Config.DecayPerEpisode
	}
	if eps < s.Config.MinEpsilon {
		eps = s.Config.MinEpsilon
	}
	return eps
}

// AdvanceEpisode decays epsilon one step further. Callers advance once
// per completed session, not once per selection.
func (s *Selector) AdvanceEpisode() {
	s.episode++
}
