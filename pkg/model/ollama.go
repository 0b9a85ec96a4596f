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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentctl/agentctl/pkg/httpclient"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaTimeout = 300 * time.Second
)

// OllamaClient talks to a locally hosted Ollama daemon. It implements the
// "pull on not found" behavior of spec §4.1: if the daemon reports the
// model hasn't been pulled yet, the client issues a pull request, waits
// briefly for it to land, and retries the original call exactly once.
type OllamaClient struct {
	baseURL string
	http    *httpclient.Client
}

// NewOllamaClient builds a client for the Ollama daemon at baseURL. An
// empty baseURL defaults to the standard local port.
func NewOllamaClient(baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaClient{
		baseURL: baseURL,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: defaultOllamaTimeout}),
			httpclient.WithMaxRetries(3),
			httpclient.WithBaseDelay(2*time.Second),
		),
	}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// Chat implements Client.
func (c *OllamaClient) Chat(ctx context.Context, history []Message, opts ChatOptions) (string, error) {
	req := c.buildChatRequest(history, opts)

	resp, err := c.doChat(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		if isModelNotFoundError(resp.Error) {
			if pullErr := c.pullModel(ctx, opts.Model); pullErr != nil {
				return "", fmt.Errorf("ollama: pulling model %q after not-found: %w", opts.Model, pullErr)
			}
			resp, err = c.doChat(ctx, req)
			if err != nil {
				return "", err
			}
			if resp.Error != "" {
				return "", fmt.Errorf("ollama: %s", resp.Error)
			}
			return resp.Message.Content, nil
		}
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}

	return resp.Message.Content, nil
}

func (c *OllamaClient) buildChatRequest(history []Message, opts ChatOptions) ollamaChatRequest {
	messages := make([]ollamaChatMessage, 0, len(history))
	for _, m := range history {
		cm := ollamaChatMessage{Role: string(m.Role), Content: m.Content}
		if m.Image != nil && len(m.Image.Data) > 0 {
			cm.Images = []string{base64.StdEncoding.EncodeToString(m.Image.Data)}
		}
		messages = append(messages, cm)
	}

	req := ollamaChatRequest{
		Model:    strings.TrimPrefix(opts.Model, "local_"),
		Messages: messages,
		Stream:   false,
	}
	if opts.ResponseFormat == ResponseFormatJSON {
		req.Format = "json"
	}
	options := map[string]any{}
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		options["num_predict"] = *opts.MaxTokens
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}

func (c *OllamaClient) doChat(ctx context.Context, body ollamaChatRequest) (*ollamaChatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	return &out, nil
}

func isModelNotFoundError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") && strings.Contains(lower, "pull")
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// pullModel issues a blocking pull request and gives the daemon a short
// grace period to finish registering the model before the caller retries.
func (c *OllamaClient) pullModel(ctx context.Context, name string) error {
	payload, err := json.Marshal(ollamaPullRequest{Name: strings.TrimPrefix(name, "local_"), Stream: false})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if _, err := io.Copy(io.Discard, httpResp.Body); err != nil {
		return err
	}

	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// Embed implements Client.
func (c *OllamaClient) Embed(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: strings.TrimPrefix(modelName, "local_"), Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama: encode embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: build embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: embed request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read embed response: %w", err)
	}

	var out ollamaEmbedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ollama: decode embed response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Embeddings, nil
}

var _ Client = (*OllamaClient)(nil)
