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

// Package metrics exposes a small set of Prometheus counters for the
// ambient stack: plan iterations, repair attempts, and RL action
// selection, following the teacher's CounterVec-per-concern shape.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a registry-scoped set of counters. A nil *Metrics is a
// safe no-op, so callers that don't care about metrics can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	planIterations   *prometheus.CounterVec
	repairAttempts   *prometheus.CounterVec
	rlActionsChosen  *prometheus.CounterVec
	rlExploreVsExploit *prometheus.CounterVec
}

// New registers and returns a fresh Metrics instance.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		planIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentctl_plan_iterations_total",
			Help: "Plan/evaluate loop iterations, labeled by outcome.",
		}, []string{"outcome"}),
		repairAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentctl_repair_attempts_total",
			Help: "Step repair attempts, labeled by outcome.",
		}, []string{"outcome"}),
		rlActionsChosen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentctl_rl_actions_chosen_total",
			Help: "RL meta-selector action choices, labeled by the chosen action.",
		}, []string{"action"}),
		rlExploreVsExploit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentctl_rl_selection_mode_total",
			Help: "RL meta-selector decisions, labeled by explore or exploit.",
		}, []string{"mode"}),
	}

	registry.MustRegister(m.planIterations, m.repairAttempts, m.rlActionsChosen, m.rlExploreVsExploit)
	return m
}

// Registry exposes the underlying Prometheus registry, e.g. for a
// promhttp.HandlerFor(...) scrape endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PlanIteration(outcome string) {
	if m == nil {
		return
	}
	m.planIterations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RepairAttempt(outcome string) {
	if m == nil {
		return
	}
	m.repairAttempts.WithLabelValues(outcome).Inc()
}

// RLAction records a meta-selector decision. mode is one of
// "llm_suggested" (warm-up or high-recent-error gate), "explore"
// (epsilon-greedy random pick) or "exploit" (argmax over the estimator).
func (m *Metrics) RLAction(action, mode string) {
	if m == nil {
		return
	}
	m.rlActionsChosen.WithLabelValues(action).Inc()
	m.rlExploreVsExploit.WithLabelValues(mode).Inc()
}
