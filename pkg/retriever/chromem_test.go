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

package retriever_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/retriever"
)

func TestChromemRetriever_UpsertThenSearchReturnsNearestNeighbor(t *testing.T) {
	r := retriever.NewChromemRetriever()
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "docs", "a", []float32{1, 0, 0}, map[string]any{"content": "alpha"}))
	require.NoError(t, r.Upsert(ctx, "docs", "b", []float32{0, 1, 0}, map[string]any{"content": "beta"}))

	results, err := r.Search(ctx, "docs", []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "alpha", results[0].Content)
}

func TestChromemRetriever_SearchOnEmptyCollectionReturnsNoResults(t *testing.T) {
	r := retriever.NewChromemRetriever()

	results, err := r.Search(context.Background(), "empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemRetriever_DistinctCollectionsDoNotLeak(t *testing.T) {
	r := retriever.NewChromemRetriever()
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "one", "x", []float32{1, 0}, map[string]any{"content": "only in one"}))

	results, err := r.Search(ctx, "two", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
