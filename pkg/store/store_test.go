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

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/store"
)

type backend struct {
	name string
	new  func(t *testing.T) store.Store
}

func backends(t *testing.T) []backend {
	return []backend{
		{name: "memory", new: func(t *testing.T) store.Store { return store.NewMemory() }},
		{name: "redis", new: func(t *testing.T) store.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return store.NewRedis(client)
		}},
	}
}

func TestStore_GetMissingReturnsErrNotFound(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			_, err := s.Get(context.Background(), "nope")
			assert.True(t, errors.Is(err, store.ErrNotFound))
		})
	}
}

func TestStore_SetThenGetRoundTrips(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, store.PlannerKey("sess-1"), `{"state":"running_chain"}`))

			v, err := s.Get(ctx, store.PlannerKey("sess-1"))
			require.NoError(t, err)
			assert.Equal(t, `{"state":"running_chain"}`, v)
		})
	}
}

func TestStore_DeleteRemovesKey(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, store.FollowupKey("sess-2"), "yes"))
			require.NoError(t, s.Delete(ctx, store.FollowupKey("sess-2")))

			_, err := s.Get(ctx, store.FollowupKey("sess-2"))
			assert.True(t, errors.Is(err, store.ErrNotFound))
		})
	}
}

func TestStore_DeleteMissingKeyIsNotAnError(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			assert.NoError(t, s.Delete(context.Background(), store.RLUpdateKey("sess-3")))
		})
	}
}

func TestKeyNamespaces_AreDistinctPerSession(t *testing.T) {
	assert.Equal(t, "planner-abc", store.PlannerKey("abc"))
	assert.Equal(t, "followup:abc", store.FollowupKey("abc"))
	assert.Equal(t, "rl_update:abc", store.RLUpdateKey("abc"))
}

type blob struct {
	State string `json:"state"`
	Depth int    `json:"depth"`
}

func TestSaveJSONAndLoadJSON_RoundTrip(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			ctx := context.Background()
			key := store.PlannerKey("sess-4")

			require.NoError(t, store.SaveJSON(ctx, s, key, blob{State: "waiting_for_user_answer", Depth: 3}))

			var got blob
			found, err := store.LoadJSON(ctx, s, key, &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, blob{State: "waiting_for_user_answer", Depth: 3}, got)
		})
	}
}

func TestLoadJSON_MissingKeyReturnsFalseNoError(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.new(t)
			var got blob
			found, err := store.LoadJSON(context.Background(), s, store.PlannerKey("missing"), &got)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}
