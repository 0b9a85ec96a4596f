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

// Package config loads the root Config tree from YAML, with
// environment-variable expansion and optional file-watch hot-reload.
// There is no separate Provider layer: the Loader reads the file itself.
package config

// Config is the root configuration tree.
type Config struct {
	ModelGateway ModelGatewayConfig `yaml:"model_gateway"`
	ToolCatalog  ToolCatalogConfig  `yaml:"tool_catalog"`
	Validator    ValidatorConfig    `yaml:"validator"`
	Executor     ExecutorConfig     `yaml:"executor"`
	PlanLoop     PlanLoopConfig     `yaml:"plan_loop"`
	DeepSearch   DeepSearchConfig   `yaml:"deep_search"`
	SessionStore SessionStoreConfig `yaml:"session_store"`
	GraphStore   GraphStoreConfig   `yaml:"graph_store"`
	RL           RLConfig           `yaml:"rl"`
	Browser      BrowserConfig      `yaml:"browser"`
}

// ModelGatewayConfig names the default cloud and local model
// identifiers and the cloud backend's credentials/endpoint.
type ModelGatewayConfig struct {
	CloudModel string `yaml:"cloud_model"`
	LocalModel string `yaml:"local_model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	OllamaURL  string `yaml:"ollama_url"`
}

type ToolCatalogConfig struct {
	BuiltinsEnabled bool              `yaml:"builtins_enabled"`
	DisabledNames   []string          `yaml:"disabled_names"`
	Variables       map[string]string `yaml:"variables"`
}

type ValidatorConfig struct {
	ExtraAllowedLibraries []string `yaml:"extra_allowed_libraries"`
}

type ExecutorConfig struct {
	ValidationRetries int `yaml:"validation_retries"`
	ExecutionRetries  int `yaml:"execution_retries"`
}

type PlanLoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// DeepSearchConfig holds depth-profile node budget overrides (spec §6).
// They are loaded from the file but nothing reads them: the deep-search
// planner always uses its built-in depth table.
type DeepSearchConfig struct {
	DepthOverrides map[string]int `yaml:"depth_overrides"`
}

// SessionStoreConfig selects the session store backend: "memory" or
// "redis".
type SessionStoreConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
}

// GraphStoreConfig selects the deep-search graph backend: "memory" or
// "neo4j".
type GraphStoreConfig struct {
	Backend  string `yaml:"backend"`
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RLConfig struct {
	InitialEpsilon  float64 `yaml:"initial_epsilon"`
	MinEpsilon      float64 `yaml:"min_epsilon"`
	DecayPerEpisode float64 `yaml:"decay_per_episode"`

	// RecentErrorWindow (N) and ErrorThreshold (θ) gate whether Select
	// trusts the estimator at all: below N observations, or with a mean
	// recent TD error above θ, Select consults the model suggester
	// instead of exploiting.
	RecentErrorWindow int     `yaml:"recent_error_window"`
	ErrorThreshold    float64 `yaml:"error_threshold"`
	ErrorBufferSize   int     `yaml:"error_buffer_size"`
	RingBufferSize    int     `yaml:"ring_buffer_size"`

	// Alpha and Gamma are the estimator's learning rate and discount
	// factor.
	Alpha float64 `yaml:"alpha"`
	Gamma float64 `yaml:"gamma"`

	// Estimator is "tabular" or "approximate".
	Estimator string `yaml:"estimator"`
}

type BrowserConfig struct {
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`
	PollTimeoutSeconds    int `yaml:"poll_timeout_seconds"`
}
