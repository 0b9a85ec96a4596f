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
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// CloudClient routes chat and embedding calls to a hosted OpenAI-compatible
// API. Any model identifier not prefixed "local_" is routed here by the
// Gateway.
type CloudClient struct {
	client *openai.Client
}

// NewCloudClient builds a cloud client for the given API key. baseURL may
// be empty to use the default OpenAI endpoint, or set to point at any
// OpenAI-compatible gateway.
func NewCloudClient(apiKey, baseURL string) *CloudClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &CloudClient{client: openai.NewClientWithConfig(cfg)}
}

// Chat implements Client.
func (c *CloudClient) Chat(ctx context.Context, history []Message, opts ChatOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		cm := openai.ChatCompletionMessage{Role: string(m.Role)}
		if m.Image != nil {
			cm.MultiContent = []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: imagePartFor(m.Image)},
			}
		} else {
			cm.Content = m.Content
		}
		messages = append(messages, cm)
	}

	req := openai.ChatCompletionRequest{
		Model:    opts.Model,
		Messages: messages,
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.ResponseFormat == ResponseFormatJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func imagePartFor(img *ImageAttachment) *openai.ChatMessageImageURL {
	if img.URL != "" {
		return &openai.ChatMessageImageURL{URL: img.URL}
	}
	mime := img.MIMEType
	if mime == "" {
		mime = inferMIMEType(img.URL)
	}
	data := base64.StdEncoding.EncodeToString(img.Data)
	return &openai.ChatMessageImageURL{URL: fmt.Sprintf("data:%s;base64,%s", mime, data)}
}

// Embed implements Client.
func (c *CloudClient) Embed(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(modelName),
	}
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

var _ Client = (*CloudClient)(nil)
