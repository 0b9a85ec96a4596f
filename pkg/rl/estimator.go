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
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Estimator predicts the expected reward of taking action given
// features, and updates its belief once a reward is observed.
//
// Update computes the TD target Q ← Q + α·(target − Q). When bootstrap
// is false, target is reward alone (the terminal, deferred-reward case
// a human rating produces). When bootstrap is true, target is
// reward + γ·max(Q(nextFeatures, a)) over nextActions, matching
// QLearningAgent.update_q_value's two branches. Update also returns the
// signed TD error (target − the pre-update prediction), for callers
// that feed it into an ErrorBuffer, which stores its absolute value.
type Estimator interface {
	Predict(features []float64, action Action) float64
	Update(features []float64, action Action, reward float64, nextFeatures []float64, nextActions []Action, bootstrap bool) (tdError float64, err error)
}

// TabularEstimator tracks a Q value per (discretized feature bucket,
// action) pair, updated by a TD step rather than a running average.
// Fine for small, low-dimensional feature spaces; exact on features it
// has actually seen, blind to interpolation between buckets.
type TabularEstimator struct {
	mu      sync.Mutex
	buckets map[string]map[Action]float64

	// Alpha is the learning rate and Gamma the discount factor applied
	// to every update.
	Alpha float64
	Gamma float64
}

// NewTabularEstimator returns an empty TabularEstimator with the
// QLearningAgent defaults: alpha 0.1, gamma 0.9.
func NewTabularEstimator() *TabularEstimator {
	return &TabularEstimator{
		buckets: make(map[string]map[Action]float64),
		Alpha:   0.1,
		Gamma:   0.9,
	}
}

func (e *TabularEstimator) Predict(features []float64, action Action) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.predictLocked(features, action)
}

func (e *TabularEstimator) predictLocked(features []float64, action Action) float64 {
	actions, ok := e.buckets[bucketKey(features)]
	if !ok {
		return 0
	}
	return actions[action]
}

func (e *TabularEstimator) maxQLocked(features []float64, actions []Action) float64 {
	best := 0.0
	for i, a := range actions {
		q := e.predictLocked(features, a)
		if i == 0 || q > best {
			best = q
		}
	}
	return best
}

func (e *TabularEstimator) Update(features []float64, action Action, reward float64, nextFeatures []float64, nextActions []Action, bootstrap bool) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := bucketKey(features)
	actions, ok := e.buckets[key]
	if !ok {
		actions = make(map[Action]float64)
		e.buckets[key] = actions
	}

	current := actions[action]
	target := reward
	if bootstrap {
		if len(nextFeatures) == 0 || len(nextActions) == 0 {
			return 0, fmt.Errorf("rl: bootstrap update requires next-state features and actions")
		}
		target = reward + e.Gamma*e.maxQLocked(nextFeatures, nextActions)
	}

	tdError := target - current
	actions[action] = current + e.Alpha*tdError
	return tdError, nil
}

// bucketKey discretizes a feature vector to one decimal place so
// nearby observations share a bucket instead of each carving out its
// own never-revisited table row.
func bucketKey(features []float64) string {
	key := ""
	for _, f := range features {
		key += fmt.Sprintf("%.1f|", f)
	}
	return key
}

// ApproxEstimator is a linear function approximator, one weight vector
// per action, trained by stochastic gradient TD updates. Scales to
// high-dimensional or continuous feature spaces a tabular estimator
// would never revisit the same bucket twice in, the Go counterpart of
// QLearningAgent's "neural" mode (here a single linear layer rather
// than a Keras MLP, since gonum has no autodiff stack).
type ApproxEstimator struct {
	mu           sync.Mutex
	weights      map[Action]*mat.VecDense
	featureCount int
	learningRate float64

	// Gamma is the discount factor applied to bootstrapped updates.
	Gamma float64
}

// NewApproxEstimator returns an ApproxEstimator for features of length
// featureCount, trained with the given learning rate and the
// QLearningAgent default discount factor of 0.9.
func NewApproxEstimator(featureCount int, learningRate float64) *ApproxEstimator {
	return &ApproxEstimator{
		weights:      make(map[Action]*mat.VecDense),
		featureCount: featureCount,
		learningRate: learningRate,
		Gamma:        0.9,
	}
}

func (e *ApproxEstimator) weightsFor(action Action) *mat.VecDense {
	w, ok := e.weights[action]
	if !ok {
		w = mat.NewVecDense(e.featureCount, nil)
		e.weights[action] = w
	}
	return w
}

func (e *ApproxEstimator) Predict(features []float64, action Action) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.predictLocked(features, action)
}

func (e *ApproxEstimator) predictLocked(features []float64, action Action) float64 {
	if len(features) != e.featureCount {
		return 0
	}
	w := e.weightsFor(action)
	x := mat.NewVecDense(e.featureCount, features)
	return mat.Dot(w, x)
}

func (e *ApproxEstimator) maxQLocked(features []float64, actions []Action) float64 {
	best := 0.0
	for i, a := range actions {
		q := e.predictLocked(features, a)
		if i == 0 || q > best {
			best = q
		}
	}
	return best
}

func (e *ApproxEstimator) Update(features []float64, action Action, reward float64, nextFeatures []float64, nextActions []Action, bootstrap bool) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(features) != e.featureCount {
		return 0, fmt.Errorf("rl: feature vector has %d entries, estimator expects %d", len(features), e.featureCount)
	}

	w := e.weightsFor(action)
	x := mat.NewVecDense(e.featureCount, features)
	prediction := mat.Dot(w, x)

	target := reward
	if bootstrap {
		if len(nextFeatures) != e.featureCount || len(nextActions) == 0 {
			return 0, fmt.Errorf("rl: bootstrap update requires a next-state feature vector of length %d and next actions", e.featureCount)
		}
		target = reward + e.Gamma*e.maxQLocked(nextFeatures, nextActions)
	}
	tdError := target - prediction

	w.AddScaledVec(w, e.learningRate*tdError, x)
	return tdError, nil
}

var (
	_ Estimator = (*TabularEstimator)(nil)
	_ Estimator = (*ApproxEstimator)(nil)
)
