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

// Package retriever backs the tool catalog's retrieve_context builtin
// with a pluggable vector store: Qdrant for a real deployment, chromem-go for
// the single-process demo and tests.
package retriever

import "context"

// Result is one nearest-neighbor hit, uniform across backends.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Retriever upserts and searches pre-computed embedding vectors. Both
// backends accept vectors computed elsewhere (the model gateway's
// embedding call); neither backend embeds text itself.
type Retriever interface {
	Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)
}
