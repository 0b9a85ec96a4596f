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

package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOllamaClient_PullsOnNotFoundThenRetries exercises the spec §4.1
// "model not found, pull it first" flow: the first /api/chat call
// reports a not-found error, the client pulls, then the retried call
// succeeds.
func TestOllamaClient_PullsOnNotFoundThenRetries(t *testing.T) {
	chatCalls := 0
	pulled := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			chatCalls++
			if chatCalls == 1 {
				_ = json.NewEncoder(w).Encode(ollamaChatResponse{Error: "model 'llama3.2' not found, try pulling it first"})
				return
			}
			_ = json.NewEncoder(w).Encode(ollamaChatResponse{
				Message: ollamaChatMessage{Role: "assistant", Content: "hello after pull"},
				Done:    true,
			})
		case "/api/pull":
			pulled = true
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	text, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{Model: "local_llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "hello after pull", text)
	assert.True(t, pulled, "expected the client to issue a pull request")
	assert.Equal(t, 2, chatCalls, "expected exactly one retry after the pull")
}

// TestOllamaClient_OtherErrorsSurfaceVerbatim checks that non-"not found"
// errors are not confused with the pull flow.
func TestOllamaClient_OtherErrorsSurfaceVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Error: "context deadline exceeded"})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	_, err := client.Chat(context.Background(), nil, ChatOptions{Model: "local_llama3.2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestOllamaClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}}})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	vectors, err := client.Embed(context.Background(), []string{"a", "b"}, "local_nomic-embed-text")
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}
