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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentctl/agentctl/pkg/config"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "agentctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_Load_AppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
model_gateway:
  cloud_model: gpt-4o-mini
`)
	cfg, err := config.NewLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.ModelGateway.CloudModel)
	assert.Equal(t, "http://localhost:11434", cfg.ModelGateway.OllamaURL)
	assert.Equal(t, 3, cfg.Executor.ValidationRetries)
	assert.Equal(t, 2, cfg.PlanLoop.MaxIterations)
	assert.Equal(t, "memory", cfg.SessionStore.Backend)
	assert.Equal(t, 0.05, cfg.RL.MinEpsilon)
}

func TestLoader_Load_ExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("TEST_AGENTCTL_API_KEY", "sk-from-env")
	dir := t.TempDir()
	path := writeConfig(t, dir, `
model_gateway:
  api_key: ${TEST_AGENTCTL_API_KEY}
`)
	cfg, err := config.NewLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.ModelGateway.APIKey)
}

func TestLoader_Watch_InvokesOnChangeOnFileRewrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
plan_loop:
  max_iterations: 2
`)
	changed := make(chan *config.Config, 1)
	loader := config.NewLoader(path, config.WithOnChange(func(cfg *config.Config) {
		changed <- cfg
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go loader.Watch(ctx)
	time.Sleep(50 * time.Millisecond) // let the watcher attach before rewriting

	require.NoError(t, os.WriteFile(path, []byte("plan_loop:\n  max_iterations: 5\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 5, cfg.PlanLoop.MaxIterations)
	case <-ctx.Done():
		t.Fatal("timed out waiting for config reload")
	}
}

func TestGetProviderAPIKey_ReadsCloudBackendFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	assert.Equal(t, "sk-test", config.GetProviderAPIKey("cloud"))
	assert.Equal(t, "", config.GetProviderAPIKey("local"))
}
