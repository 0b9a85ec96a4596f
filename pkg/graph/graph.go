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

// Package graph is the session-scoped knowledge graph deep-search
// writes its reasoning artifacts and their relations into (spec §4.6,
// §9 Design Notes).
// Every node and query is labeled with its owning session, so one
// backend can host many concurrent sessions without cross-talk, and a
// session's graph is dropped in one call when it completes.
package graph

import "context"

// Node is one persisted knowledge-graph node: its properties (whatever
// the caller passed to CreateNode/CreateBatch, e.g. agent_nickname,
// name, concept, thought) plus the relations fanning out of it.
type Node struct {
	ID         string
	Properties map[string]any
	Relations  []Relation
}

// Relation is one outgoing edge from a Node.
type Relation struct {
	ToID  string
	Label string
}

// EndpointKind distinguishes an edge endpoint that refers to a node
// created earlier in the SAME batch (by its position in that batch)
// from one that refers to an already-persisted node by its real store
// ID.
type EndpointKind string

const (
	// EndpointNew refers to a node by its zero-based position in the
	// nodes slice passed to the same CreateBatch call.
	EndpointNew EndpointKind = "new"

	// EndpointExisting refers to a node already in the store, by ID.
	EndpointExisting EndpointKind = "existing"
)

// Endpoint is one side of an EdgeSpec.
type Endpoint struct {
	Kind  EndpointKind
	Index int    // used when Kind == EndpointNew
	ID    string // used when Kind == EndpointExisting
}

// EdgeSpec describes one edge to create as part of a batch. From and
// To may each reference a node being created in the same batch (by
// position) or one that already exists (by ID), so a batch can express
// forward references, self-loops, and cycles that a naive
// create-nodes-then-create-edges pass over two separate calls cannot.
type EdgeSpec struct {
	From  Endpoint
	To    Endpoint
	Label string
}

// Store is the session-scoped knowledge graph surface deep-search
// writes into.
type Store interface {
	// CreateNode persists one node under sessionID and returns its
	// store-assigned ID.
	CreateNode(ctx context.Context, sessionID string, properties map[string]any) (string, error)

	// CreateEdge links two already-persisted nodes under sessionID.
	CreateEdge(ctx context.Context, sessionID, fromID, toID, label string) error

	// CreateBatch creates every node in nodes in one pass, then
	// resolves and creates every edge in edges, so edges may reference
	// nodes created earlier in the same nodes slice. It returns the
	// store-assigned ID of each node in nodes, in order.
	CreateBatch(ctx context.Context, sessionID string, nodes []map[string]any, edges []EdgeSpec) ([]string, error)

	// Graph returns every node under sessionID, keyed by ID, each with
	// its outgoing relations populated.
	Graph(ctx context.Context, sessionID string) (map[string]Node, error)

	// Purge deletes every node and edge under sessionID.
	Purge(ctx context.Context, sessionID string) error
}
