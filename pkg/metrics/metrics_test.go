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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/agentctl/agentctl/pkg/metrics"
)

func TestMetrics_PlanIteration_IncrementsCounterByOutcome(t *testing.T) {
	m := metrics.New()

	m.PlanIteration("satisfactory")
	m.PlanIteration("satisfactory")
	m.PlanIteration("replanned")

	count, err := testutil.GatherAndCount(m.Registry(), "agentctl_plan_iterations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_RLAction_RecordsActionAndMode(t *testing.T) {
	m := metrics.New()

	m.RLAction("search", "explore")
	m.RLAction("search", "exploit")
	m.RLAction("search", "llm_suggested")

	families, err := m.Registry().Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsANoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.PlanIteration("satisfactory")
		m.RepairAttempt("fixed")
		m.RLAction("search", "explore")
		assert.Nil(t, m.Registry())
	})
}
