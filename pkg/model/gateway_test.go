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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name      string
	chatResp  string
	chatErr   error
	embedResp [][]float32
}

func (f *fakeClient) Chat(ctx context.Context, history []Message, opts ChatOptions) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatResp, nil
}

func (f *fakeClient) Embed(ctx context.Context, texts []string, model string) ([][]float32, error) {
	return f.embedResp, nil
}

func TestGateway_RoutesLocalPrefixToLocalBackend(t *testing.T) {
	local := &fakeClient{name: "local", chatResp: "from local"}
	cloud := &fakeClient{name: "cloud", chatResp: "from cloud"}
	gw := NewGateway(cloud, local)

	text, err := gw.Chat(context.Background(), nil, ChatOptions{Model: "local_llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "from local", text)
}

func TestGateway_RoutesUnprefixedToCloudBackend(t *testing.T) {
	local := &fakeClient{name: "local", chatResp: "from local"}
	cloud := &fakeClient{name: "cloud", chatResp: "from cloud"}
	gw := NewGateway(cloud, local)

	text, err := gw.Chat(context.Background(), nil, ChatOptions{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "from cloud", text)
}

func TestGateway_MissingBackendErrors(t *testing.T) {
	gw := NewGateway(nil, nil)

	_, err := gw.Chat(context.Background(), nil, ChatOptions{Model: "gpt-4o-mini"})
	assert.Error(t, err)

	_, err = gw.Chat(context.Background(), nil, ChatOptions{Model: "local_llama3.2"})
	assert.Error(t, err)
}

func TestGateway_WrapsBackendErrorAsModelProtocolError(t *testing.T) {
	cloud := &fakeClient{chatErr: assert.AnError}
	gw := NewGateway(cloud, nil)

	_, err := gw.Chat(context.Background(), nil, ChatOptions{Model: "gpt-4o-mini"})
	require.Error(t, err)

	var protoErr *ErrModelProtocol
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "gpt-4o-mini", protoErr.Model)
}

var _ Client = (*fakeClient)(nil)
