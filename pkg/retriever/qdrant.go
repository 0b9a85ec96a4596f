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

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the Qdrant-backed Retriever.
type QdrantConfig struct {
	Host   string
	Port   int // default 6334, the gRPC port
	APIKey string
	UseTLS bool
}

// QdrantRetriever is a Retriever backed by a running Qdrant instance,
// creating collections on first upsert with the vector's own
// dimensionality.
type QdrantRetriever struct {
	client *qdrant.Client
}

// NewQdrantRetriever dials cfg.Host:cfg.Port.
func NewQdrantRetriever(cfg QdrantConfig) (*QdrantRetriever, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("retriever: dial qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantRetriever{client: client}, nil
}

func (r *QdrantRetriever) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	exists, err := r.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("retriever: check collection %q: %w", collection, err)
	}
	if !exists {
		err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(len(vector)),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("retriever: create collection %q: %w", collection, err)
		}
	}

	payload := make(map[string]*qdrant.Value, len(metadata))
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("retriever: convert metadata %q: %w", k, err)
		}
		payload[k] = val
	}

	_, err = r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("retriever: upsert %q: %w", id, err)
	}
	return nil
}

func (r *QdrantRetriever) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	searchResult, err := r.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retriever: search %q: %w", collection, err)
	}

	out := make([]Result, 0, len(searchResult.Result))
	for _, p := range searchResult.Result {
		metadata := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			metadata[k] = v.AsInterface()
		}
		content, _ := metadata["content"].(string)
		out = append(out, Result{
			ID:       p.Id.GetUuid(),
			Score:    p.Score,
			Content:  content,
			Metadata: metadata,
		})
	}
	return out, nil
}

var _ Retriever = (*QdrantRetriever)(nil)
