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
	"regexp"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// sessionLabel matches the characters a session ID may use when it is
// interpolated directly into a Cypher label. Neo4j does not support
// parameterized labels, so every query below builds the label by
// string formatting; this guards against Cypher injection through a
// malformed session ID.
var sessionLabel = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// nodeLabel is the static label every node carries in addition to its
// dynamic session label, letting a purge-everything admin query find
// nodes across all sessions if ever needed.
const nodeLabel = "EGOT"

// Neo4jConfig configures the Neo4j-backed Store.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Neo4jStore implements Store against a Neo4j database, grounded on
// the source's EGoTEngine: every node and query carries a dynamic
// session-ID label, edges are a single CONNECTED relationship type
// carrying a relation property, and edge creation uses MERGE so
// re-running a batch is idempotent.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jStore opens a driver against cfg and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}
	return &Neo4jStore{driver: driver}, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) CreateNode(ctx context.Context, sessionID string, properties map[string]any) (string, error) {
	if !sessionLabel.MatchString(sessionID) {
		return "", fmt.Errorf("creating node: invalid session id %q", sessionID)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	id := uuid.NewString()
	props := cloneProps(properties)
	props["id"] = id

	query := fmt.Sprintf("CREATE (n:`%s`:%s $props)", sessionID, nodeLabel)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"props": props})
		return nil, err
	})
	if err != nil {
		return "", fmt.Errorf("creating node under session %s: %w", sessionID, err)
	}
	return id, nil
}

func (s *Neo4jStore) CreateEdge(ctx context.Context, sessionID, fromID, toID, label string) error {
	if !sessionLabel.MatchString(sessionID) {
		return fmt.Errorf("creating edge: invalid session id %q", sessionID)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := fmt.Sprintf("MATCH (a:`%s`:%s {id: $from}), (b:`%s`:%s {id: $to})\n"+
		"MERGE (a)-[r:CONNECTED {relation: $label}]->(b)", sessionID, nodeLabel, sessionID, nodeLabel)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"from": fromID, "to": toID, "label": label})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("creating edge %s -> %s under session %s: %w", fromID, toID, sessionID, err)
	}
	return nil
}

// CreateBatch creates every node first (one CreateNode write
// transaction per node), capturing a positional-index to real-ID map,
// then resolves and creates every
// edge in a second pass so edges may reference nodes created earlier
// in the same batch, grounded on the source's
// create_multiple_nodes_and_edges.
func (s *Neo4jStore) CreateBatch(ctx context.Context, sessionID string, nodes []map[string]any, edges []EdgeSpec) ([]string, error) {
	if !sessionLabel.MatchString(sessionID) {
		return nil, fmt.Errorf("creating batch: invalid session id %q", sessionID)
	}

	ids := make([]string, len(nodes))
	for i, props := range nodes {
		id, err := s.CreateNode(ctx, sessionID, props)
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
		if err := s.CreateEdge(ctx, sessionID, fromID, toID, e.Label); err != nil {
			return nil, fmt.Errorf("creating batch edge %d: %w", i, err)
		}
	}

	return ids, nil
}

func resolveEndpoint(ep Endpoint, batchIDs []string) (string, error) {
	switch ep.Kind {
	case EndpointNew:
		if ep.Index < 0 || ep.Index >= len(batchIDs) {
			return "", fmt.Errorf("new-node index %d out of range (batch has %d nodes)", ep.Index, len(batchIDs))
		}
		return batchIDs[ep.Index], nil
	case EndpointExisting:
		if ep.ID == "" {
			return "", fmt.Errorf("existing-node endpoint has no id")
		}
		return ep.ID, nil
	default:
		return "", fmt.Errorf("unknown endpoint kind %q", ep.Kind)
	}
}

func (s *Neo4jStore) Graph(ctx context.Context, sessionID string) (map[string]Node, error) {
	if !sessionLabel.MatchString(sessionID) {
		return nil, fmt.Errorf("reading graph: invalid session id %q", sessionID)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := fmt.Sprintf("MATCH (n:`%s`)\n"+
		"OPTIONAL MATCH (n)-[r:CONNECTED]->(m:`%s`)\n"+
		"RETURN n, r.relation AS relation, m.id AS target_id", sessionID, sessionID)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("reading graph for session %s: %w", sessionID, err)
	}

	records, _ := result.([]*neo4j.Record)
	nodes := make(map[string]Node)

	for _, rec := range records {
		nodeVal, ok := rec.Get("n")
		if !ok {
			continue
		}
		n, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}
		id, _ := n.Props["id"].(string)
		entry, exists := nodes[id]
		if !exists {
			entry = Node{ID: id, Properties: cloneProps(n.Props)}
		}

		if relVal, ok := rec.Get("relation"); ok && relVal != nil {
			if targetVal, ok := rec.Get("target_id"); ok && targetVal != nil {
				relation, _ := relVal.(string)
				targetID, _ := targetVal.(string)
				entry.Relations = append(entry.Relations, Relation{ToID: targetID, Label: relation})
			}
		}

		nodes[id] = entry
	}

	return nodes, nil
}

func (s *Neo4jStore) Purge(ctx context.Context, sessionID string) error {
	if !sessionLabel.MatchString(sessionID) {
		return fmt.Errorf("purging graph: invalid session id %q", sessionID)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := fmt.Sprintf("MATCH (n:`%s`) DETACH DELETE n", sessionID)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("purging graph for session %s: %w", sessionID, err)
	}
	return nil
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

var _ Store = (*Neo4jStore)(nil)
