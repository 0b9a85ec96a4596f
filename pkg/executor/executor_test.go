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

package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/catalog"
	"github.com/agentctl/agentctl/pkg/executor"
	"github.com/agentctl/agentctl/pkg/plan"
)

type fakeRepairer struct {
	results []executor.RepairResult
	calls   int
}

func (f *fakeRepairer) Repair(ctx context.Context, rootPrompt string, pl *plan.Plan, stepIndex int, errorText string) (executor.RepairResult, error) {
	r := f.results[f.calls]
	f.calls++
	return r, nil
}

func testCatalog(t *testing.T, tools ...catalog.ToolDescriptor) *catalog.Catalog {
	t.Helper()
	var raw []catalog.RawSource
	for i := range tools {
		tt := tools[i]
		raw = append(raw, catalog.RawSource{Origin: catalog.OriginUser, User: &tt})
	}
	b := &catalog.Builder{}
	cat, dropped := b.Build(context.Background(), raw)
	require.Empty(t, dropped)
	return cat
}

func TestExecutor_SingleStepHappyPath(t *testing.T) {
	cat := testCatalog(t, catalog.ToolDescriptor{Name: "stats", AllowedLibraries: []string{"math"}})
	pl := &plan.Plan{Steps: []plan.Step{
		{Name: "get_mean", ChosenTool: "stats", Code: `func get_mean() map[string]any {
	updatedDict := map[string]any{}
	values := []float64{1, 2, 3}
	var sum float64
	for _, v := range values {
		sum += v
	}
	updatedDict["mean"] = sum / float64(len(values))
	return updatedDict
}`},
	}}

	ex := executor.New(cat, &fakeRepairer{}, "sess-1", nil)
	results, err := ex.Run(context.Background(), "root prompt", pl)
	require.NoError(t, err)
	assert.Equal(t, 2.0, results["get_mean"].Carry["mean"])
	assert.Empty(t, ex.Regenerations)
}

func TestExecutor_TwoStepCarry(t *testing.T) {
	cat := testCatalog(t,
		catalog.ToolDescriptor{Name: "geocode", AllowedLibraries: []string{"math"}},
		catalog.ToolDescriptor{Name: "format", AllowedLibraries: []string{"fmt", "maps"}},
	)
	pl := &plan.Plan{Steps: []plan.Step{
		{Name: "get_coordinates", ChosenTool: "geocode", Code: `func get_coordinates() map[string]any {
	updatedDict := map[string]any{}
	updatedDict["coordinates"] = "48.8566,2.3522"
	return updatedDict
}`},
		{Name: "format_output", ChosenTool: "format", InputFrom: "get_coordinates", Code: `import (
	"fmt"
	"maps"
)

func format_output(previousOutput map[string]any) map[string]any {
	updatedDict := maps.Clone(previousOutput)
	updatedDict["formatted"] = fmt.Sprintf("coords: %v", previousOutput["coordinates"])
	return updatedDict
}`},
	}}

	ex := executor.New(cat, &fakeRepairer{}, "sess-1", nil)
	results, err := ex.Run(context.Background(), "root prompt", pl)
	require.NoError(t, err)
	assert.Equal(t, "coords: 48.8566,2.3522", results["format_output"].Carry["formatted"])
	assert.Equal(t, "48.8566,2.3522", results["format_output"].Carry["coordinates"])
}

func TestExecutor_ValidationRepairFlow(t *testing.T) {
	cat := testCatalog(t, catalog.ToolDescriptor{Name: "scrape", AllowedLibraries: []string{"github.com/PuerkitoBio/goquery"}})

	badCode := `import "net/http"

func fetch_page() map[string]any {
	updatedDict := map[string]any{}
	return updatedDict
}`
	fixedCode := `func fetch_page() map[string]any {
	updatedDict := map[string]any{}
	updatedDict["title"] = "ok"
	return updatedDict
}`

	pl := &plan.Plan{Steps: []plan.Step{{Name: "fetch_page", ChosenTool: "scrape", Code: badCode}}}
	rep := &fakeRepairer{results: []executor.RepairResult{{Reasoning: "drop disallowed import", CorrectedSubtask: fixedCode}}}

	ex := executor.New(cat, rep, "sess-1", nil)
	results, err := ex.Run(context.Background(), "root prompt", pl)
	require.NoError(t, err)
	assert.Equal(t, "ok", results["fetch_page"].Carry["title"])
	assert.Equal(t, 1, rep.calls)
	require.Len(t, ex.Regenerations, 1)
	assert.Equal(t, "validation", ex.Regenerations[0].Phase)
}

func TestExecutor_ExecutionRepairFlowOnErrorMarker(t *testing.T) {
	cat := testCatalog(t, catalog.ToolDescriptor{Name: "stats"})

	badCode := `func get_mean() map[string]any {
	updatedDict := map[string]any{}
	logger.Error("division failed")
	return updatedDict
}`
	fixedCode := `func get_mean() map[string]any {
	updatedDict := map[string]any{}
	updatedDict["mean"] = 2.0
	return updatedDict
}`

	pl := &plan.Plan{Steps: []plan.Step{{Name: "get_mean", ChosenTool: "stats", Code: badCode}}}
	rep := &fakeRepairer{results: []executor.RepairResult{{Reasoning: "fix division", CorrectedSubtask: fixedCode}}}

	ex := executor.New(cat, rep, "sess-1", nil)
	results, err := ex.Run(context.Background(), "root prompt", pl)
	require.NoError(t, err)
	assert.Equal(t, 2.0, results["get_mean"].Carry["mean"])
	require.Len(t, ex.Regenerations, 1)
	assert.Equal(t, "execution", ex.Regenerations[0].Phase)
}

func TestExecutor_ValidationBudgetExhaustedIsFatal(t *testing.T) {
	cat := testCatalog(t, catalog.ToolDescriptor{Name: "stats"})

	badCode := `import "os/exec"

func get_mean() map[string]any {
	updatedDict := map[string]any{}
	return updatedDict
}`
	pl := &plan.Plan{Steps: []plan.Step{{Name: "get_mean", ChosenTool: "stats", Code: badCode}}}
	rep := &fakeRepairer{results: []executor.RepairResult{
		{CorrectedSubtask: badCode},
		{CorrectedSubtask: badCode},
	}}

	ex := executor.New(cat, rep, "sess-1", nil)
	ex.Config = executor.Config{ValidationRetries: 2, ExecutionRetries: 2}
	_, err := ex.Run(context.Background(), "root prompt", pl)
	require.Error(t, err)
	assert.ErrorIs(t, err, agentctlerr.ErrValidation)
	assert.Equal(t, 2, rep.calls)
}

func TestExecutor_ZeroValidationBudgetFailsFastWithoutRepair(t *testing.T) {
	cat := testCatalog(t, catalog.ToolDescriptor{Name: "stats"})

	badCode := `import "os/exec"

func get_mean() map[string]any {
	updatedDict := map[string]any{}
	return updatedDict
}`
	pl := &plan.Plan{Steps: []plan.Step{{Name: "get_mean", ChosenTool: "stats", Code: badCode}}}
	rep := &fakeRepairer{}

	ex := executor.New(cat, rep, "sess-1", nil)
	ex.Config = executor.Config{ValidationRetries: 0, ExecutionRetries: 0}
	_, err := ex.Run(context.Background(), "root prompt", pl)
	require.Error(t, err)
	assert.Equal(t, 0, rep.calls)
}
