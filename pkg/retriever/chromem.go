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

package retriever

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemRetriever is an in-process Retriever with no external
// dependency, used for the single-process demo and in tests. Vectors
// are pre-computed by the caller; the embedding function chromem-go
// requires is never invoked.
type ChromemRetriever struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemRetriever returns a Retriever backed by an in-memory
// chromem-go database.
func NewChromemRetriever() *ChromemRetriever {
	return &ChromemRetriever{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

func (r *ChromemRetriever) collection(name string) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if col, ok := r.collections[name]; ok {
		return col, nil
	}
	col, err := r.db.GetOrCreateCollection(name, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("retriever: get/create collection %q: %w", name, err)
	}
	r.collections[name] = col
	return col, nil
}

func noEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("retriever: chromem backend requires pre-computed vectors")
}

func (r *ChromemRetriever) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	col, err := r.collection(collection)
	if err != nil {
		return err
	}

	strMetadata := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMetadata[k] = fmt.Sprint(v)
	}
	content, _ := metadata["content"].(string)

	doc := chromem.Document{ID: id, Content: content, Metadata: strMetadata, Embedding: vector}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("retriever: upsert %q: %w", id, err)
	}
	return nil
}

func (r *ChromemRetriever) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	col, err := r.collection(collection)
	if err != nil {
		return nil, err
	}

	if n := col.Count(); topK > n {
		topK = n
	}
	if topK <= 0 {
		return []Result{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("retriever: search %q: %w", collection, err)
	}

	out := make([]Result, 0, len(results))
	for _, res := range results {
		metadata := make(map[string]any, len(res.Metadata))
		for k, v := range res.Metadata {
			metadata[k] = v
		}
		out = append(out, Result{ID: res.ID, Score: res.Similarity, Content: res.Content, Metadata: metadata})
	}
	return out, nil
}

var _ Retriever = (*ChromemRetriever)(nil)
