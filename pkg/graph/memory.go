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

package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store, for tests and single-worker runs
// without a Neo4j deployment. It implements the same two-pass batch
// semantics as Neo4jStore so callers can swap backends freely.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]map[string]Node
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]map[string]Node)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateNode(ctx context.Context, sessionID string, properties map[string]any) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	props := cloneProps(properties)
	props["id"] = id

	nodes := m.sessions[sessionID]
	if nodes == nil {
		nodes = make(map[string]Node)
		m.sessions[sessionID] = nodes
	}
	nodes[id] = Node{ID: id, Properties: props}
	return id, nil
}

func (m *Memory) CreateEdge(ctx context.Context, sessionID, fromID, toID, label string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := m.sessions[sessionID]
	from, ok := nodes[fromID]
	if !ok {
		return fmt.Errorf("creating edge: from-node %q not found in session %s", fromID, sessionID)
	}
	if _, ok := nodes[toID]; !ok {
		return fmt.Errorf("creating edge: to-node %q not found in session %s", toID, sessionID)
	}

	for _, r := range from.Relations {
		if r.ToID == toID && r.Label == label {
			return nil // MERGE semantics: already present, no-op
		}
	}
	from.Relations = append(from.Relations, Relation{ToID: toID, Label: label})
	nodes[fromID] = from
	return nil
}

func (m *Memory) CreateBatch(ctx context.Context, sessionID string, nodes []map[string]any, edges []EdgeSpec) ([]string, error) {
	ids := make([]string, len(nodes))
	for i, props := range nodes {
		id, err := m.CreateNode(ctx, sessionID, props)
		if err != nil {
			return nil, fmt.Errorf("creating batch node %d: %w", i, err)
		}
		ids[i] = id
	}

	for i, e := range edges {
		fromID, err := resolveEndpoint(e.From, ids)
		if err != nil {
			return nil, fmt.Errorf("resolving batch edge %d from-endpoint: %w", i, err)
		}
		toID, err := resolveEndpoint(e.To, ids)
		if err != nil {
			return nil, fmt.Errorf("resolving batch edge %d to-endpoint: %w", i, err)
		}
		if err := m.CreateEdge(ctx, sessionID, fromID, toID, e.Label); err != nil {
			return nil, fmt.Errorf("creating batch edge %d: %w", i, err)
		}
	}

	return ids, nil
}

func (m *Memory) Graph(ctx context.Context, sessionID string) (map[string]Node, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Node, len(m.sessions[sessionID]))
	for id, n := range m.sessions[sessionID] {
		relations := make([]Relation, len(n.Relations))
		copy(relations, n.Relations)
		out[id] = Node{ID: n.ID, Properties: cloneProps(n.Properties), Relations: relations}
	}
	return out, nil
}

func (m *Memory) Purge(ctx context.Context, sessionID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}
