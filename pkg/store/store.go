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

// Package store is the durable key-value interface for suspended
// deep-search sessions, out-of-band follow-up replies, and pending RL
// ratings (spec §4.7). Keys and values are plain strings; atomic set
// and delete suffice, no transactions are required. It is the one
// inter-worker synchronization point shared by every session (spec §5).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is the durable KV surface. Implementations must be safe for
// concurrent use across many sessions.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value for key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key namespaces (spec §4.7 / §6 persisted state layout).
const (
	plannerKeyPrefix  = "planner-"
	followupKeyPrefix = "followup:"
	rlUpdateKeyPrefix = "rl_update:"
)

// PlannerKey returns the key under which a suspended deep-search
// PlannerSession is persisted for sessionID.
func PlannerKey(sessionID string) string { return plannerKeyPrefix + sessionID }

// FollowupKey returns the key an out-of-band client reply is written
// to in order to unblock an interactive sub-task for sessionID.
func FollowupKey(sessionID string) string { return followupKeyPrefix + sessionID }

// RLUpdateKey returns the key an RLRecord awaiting a human rating is
// stored under for sessionID.
func RLUpdateKey(sessionID string) string { return rlUpdateKeyPrefix + sessionID }

// SaveJSON marshals v and writes it to key, for callers persisting a
// typed blob (a PlannerSession, an RLRecord) without this package
// needing to know their concrete type.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshaling value for key %q: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}

// LoadJSON reads key and unmarshals it into v. It returns
// (false, nil) if key is absent, so callers can distinguish "nothing
// persisted yet" from a real error.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: reading key %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("store: unmarshaling value for key %q: %w", key, err)
	}
	return true, nil
}
