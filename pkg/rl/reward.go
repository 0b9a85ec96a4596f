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

package rl

import (
	"context"
	"fmt"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/store"
)

// PendingRecord is what Select's caller persists immediately after
// choosing an action: the features and action, not yet a reward. The
// actual reward only exists once a human submits a rating, which may
// happen well after the session that produced it has ended.
type PendingRecord struct {
	Features []float64 `json:"features"`
	Action   Action    `json:"action"`
}

// SavePending persists rec under sessionID's rl_update key, so a later
// rating submission can find the (features, action) pair it applies
// to.
func SavePending(ctx context.Context, s store.Store, sessionID string, rec PendingRecord) error {
	if err := store.SaveJSON(ctx, s, store.RLUpdateKey(sessionID), rec); err != nil {
		return fmt.Errorf("rl: saving pending record for session %s: %w", sessionID, err)
	}
	return nil
}

// ApplyRating loads the pending record for sessionID, feeds
// (features, action, rating) into estimator as a non-bootstrapped
// update (a human rating is always the terminal, deferred reward for
// that session, never a mid-episode transition), records the TD error
// into errors so future Select calls can judge the estimator's recent
// accuracy, appends the observation to buffer, and deletes the pending
// key. Grounded on the source's handle_submit_evaluation handler (read
// rl_update:<session_id>, apply the update, delete the key).
func ApplyRating(ctx context.Context, s store.Store, estimator Estimator, errors *ErrorBuffer, buffer *RingBuffer, sessionID string, rating float64) error {
	var rec PendingRecord
	found, err := store.LoadJSON(ctx, s, store.RLUpdateKey(sessionID), &rec)
	if err != nil {
		return fmt.Errorf("rl: loading pending record for session %s: %w", sessionID, err)
	}
	if !found {
		return fmt.Errorf("rl: applying rating for session %s: %w", sessionID, agentctlerr.ErrSessionNotFound)
	}

	tdError, err := estimator.Update(rec.Features, rec.Action, rating, nil, nil, false)
	if err != nil {
		return fmt.Errorf("rl: updating estimator for session %s: %w", sessionID, err)
	}
	errors.Add(tdError)
	buffer.Add(Sample{Features: rec.Features, Action: rec.Action, Reward: rating})

	if err := s.Delete(ctx, store.RLUpdateKey(sessionID)); err != nil {
		return fmt.Errorf("rl: clearing pending record for session %s: %w", sessionID, err)
	}
	return nil
}
