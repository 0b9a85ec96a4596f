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

// Package model is the single call surface the rest of agentctl uses to
// reach chat and embedding back-ends.
//
// Concrete back-ends (cloud APIs, a local Ollama daemon) are adapters
// behind the Client interface; callers never branch on provider.
// Routing between them is the Gateway's job: a model identifier of the
// form "local_<name>" is sent to the local backend, everything else to
// the cloud backend.
package model

import (
	"context"
	"fmt"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
)

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of chat history.
type Message struct {
	Role    Role
	Content string

	// Image attaches a single image to a user turn, either by URL or by
	// inline base64 data. Inline data with no MIMEType set is sent as
	// application/octet-stream: ImageAttachment carries no file name,
	// so there is no extension to infer a type from.
	Image *ImageAttachment
}

// ImageAttachment carries a URL or inline base64 image payload.
type ImageAttachment struct {
	URL      string
	Data     []byte // base64-decoded bytes; mutually exclusive with URL
	MIMEType string
}

// ResponseFormat hints the back-end to constrain its output shape.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json_object"
)

// ChatOptions configures a single Chat call.
type ChatOptions struct {
	Model          string
	Temperature    *float64
	MaxTokens      *int
	ResponseFormat ResponseFormat
}

// Client is the gateway's call surface: chat and embeddings, nothing else.
// Implementations must be stateless and safe for concurrent use.
type Client interface {
	// Chat sends the full conversation history and returns a single
	// response string (the aggregated assistant turn).
	Chat(ctx context.Context, history []Message, opts ChatOptions) (string, error)

	// Embed returns one vector per input text, in the same order.
	Embed(ctx context.Context, texts []string, model string) ([][]float32, error)
}

// inferMIMEType maps a handful of common image extensions to MIME types.
// Unknown extensions fall back to octet-stream rather than failing, since
// the spec requires image assembly to be best-effort.
func inferMIMEType(nameOrURL string) string {
	ext := ""
	for i := len(nameOrURL) - 1; i >= 0 && i > len(nameOrURL)-6; i-- {
		if nameOrURL[i] == '.' {
			ext = nameOrURL[i:]
			break
		}
	}
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ErrModelProtocol wraps a back-end failure that survived the retry budget.
type ErrModelProtocol struct {
	Model string
	Err   error
}

func (e *ErrModelProtocol) Error() string {
	return fmt.Sprintf("model %q protocol failure: %v", e.Model, e.Err)
}

func (e *ErrModelProtocol) Unwrap() error { return e.Err }

// Is lets errors.Is(err, agentctlerr.ErrModelProtocol) classify a
// Gateway failure without callers needing this package's concrete type.
func (e *ErrModelProtocol) Is(target error) bool { return target == agentctlerr.ErrModelProtocol }
