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

package config

// SetDefaults fills in every zero-valued field with its default,
// called once after YAML decoding so a config file only needs to name
// the fields it overrides.
func (c *Config) SetDefaults() {
	c.ModelGateway.SetDefaults()
	c.ToolCatalog.SetDefaults()
	c.Executor.SetDefaults()
	c.PlanLoop.SetDefaults()
	c.SessionStore.SetDefaults()
	c.GraphStore.SetDefaults()
	c.RL.SetDefaults()
	c.Browser.SetDefaults()
}

func (m *ModelGatewayConfig) SetDefaults() {
	if m.CloudModel == "" {
		m.CloudModel = "gpt-4o"
	}
	if m.OllamaURL == "" {
		m.OllamaURL = "http://localhost:11434"
	}
}

func (t *ToolCatalogConfig) SetDefaults() {
	// Builtins are opt-out, not opt-in: an empty config still gets the
	// built-in registry.
	if !t.BuiltinsEnabled && t.DisabledNames == nil && t.Variables == nil {
		t.BuiltinsEnabled = true
	}
}

func (e *ExecutorConfig) SetDefaults() {
	if e.ValidationRetries == 0 {
		e.ValidationRetries = 3
	}
	if e.ExecutionRetries == 0 {
		e.ExecutionRetries = 3
	}
}

func (p *PlanLoopConfig) SetDefaults() {
	if p.MaxIterations == 0 {
		p.MaxIterations = 2
	}
}

func (s *SessionStoreConfig) SetDefaults() {
	if s.Backend == "" {
		s.Backend = "memory"
	}
}

func (g *GraphStoreConfig) SetDefaults() {
	if g.Backend == "" {
		g.Backend = "memory"
	}
}

func (r *RLConfig) SetDefaults() {
	if r.InitialEpsilon == 0 {
		r.InitialEpsilon = 1.0
	}
	if r.MinEpsilon == 0 {
		r.MinEpsilon = 0.05
	}
	if r.DecayPerEpisode == 0 {
		r.DecayPerEpisode = 0.99
	}
	if r.RecentErrorWindow == 0 {
		r.RecentErrorWindow = 50
	}
	if r.ErrorThreshold == 0 {
		r.ErrorThreshold = 0.5
	}
	if r.ErrorBufferSize == 0 {
		r.ErrorBufferSize = 200
	}
	if r.RingBufferSize == 0 {
		r.RingBufferSize = 200
	}
	if r.Alpha == 0 {
		r.Alpha = 0.1
	}
	if r.Gamma == 0 {
		r.Gamma = 0.9
	}
	if r.Estimator == "" {
		r.Estimator = "tabular"
	}
}

func (b *BrowserConfig) SetDefaults() {
	if b.CommandTimeoutSeconds == 0 {
		b.CommandTimeoutSeconds = 5
	}
	if b.PollTimeoutSeconds == 0 {
		b.PollTimeoutSeconds = 60
	}
}
