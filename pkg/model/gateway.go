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
	"fmt"
	"strings"
)

const localModelPrefix = "local_"

// Gateway is the single call surface for the rest of agentctl. It routes
// "local_<name>" model identifiers to a locally hosted backend and every
// other identifier to a cloud backend, per spec §4.1. A Gateway is
// stateless and safe to share across goroutines; one instance per process
// is sufficient.
type Gateway struct {
	cloud Client
	local Client
}

// NewGateway wires a cloud and a local backend behind one Client surface.
// Either may be nil if that routing class is never exercised.
func NewGateway(cloud, local Client) *Gateway {
	return &Gateway{cloud: cloud, local: local}
}

// Chat implements Client, dispatching by model identifier prefix.
func (g *Gateway) Chat(ctx context.Context, history []Message, opts ChatOptions) (string, error) {
	backend, err := g.backendFor(opts.Model)
	if err != nil {
		return "", err
	}
	text, err := backend.Chat(ctx, history, opts)
	if err != nil {
		return "", &ErrModelProtocol{Model: opts.Model, Err: err}
	}
	return text, nil
}

// Embed implements Client, dispatching by model identifier prefix.
func (g *Gateway) Embed(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	backend, err := g.backendFor(modelName)
	if err != nil {
		return nil, err
	}
	vectors, err := backend.Embed(ctx, texts, modelName)
	if err != nil {
		return nil, &ErrModelProtocol{Model: modelName, Err: err}
	}
	return vectors, nil
}

func (g *Gateway) backendFor(modelName string) (Client, error) {
	if strings.HasPrefix(modelName, localModelPrefix) {
		if g.local == nil {
			return nil, fmt.Errorf("model %q routed to local backend, but none is configured", modelName)
		}
		return g.local, nil
	}
	if g.cloud == nil {
		return nil, fmt.Errorf("model %q routed to cloud backend, but none is configured", modelName)
	}
	return g.cloud, nil
}

var _ Client = (*Gateway)(nil)
