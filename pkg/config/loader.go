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

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// debounceDelay coalesces the burst of fsnotify events a single save
// usually produces (most editors write-then-rename) into one reload.
const debounceDelay = 100 * time.Millisecond

// rewatchInterval and rewatchAttempts bound how long Watch keeps
// polling for a deleted config file to reappear before giving up.
const (
	rewatchInterval = 500 * time.Millisecond
	rewatchAttempts = 10
)

// Loader reads and, on request, watches a single YAML config file on
// disk. There is exactly one backend (the local filesystem): agentctl
// is a single-binary CLI with no config-service deployment to speak
// of, so the abstraction layer a multi-backend loader would need
// (consul/etcd/zookeeper sources, pluggable Provider types) has no
// second implementation to justify it.
type Loader struct {
	path string

	onChange func(*Config)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange sets a callback invoked with the reloaded Config each
// time the file changes on disk. Only meaningful when Watch is also
// called.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) { l.onChange = fn }
}

// NewLoader creates a Loader reading path, resolved to an absolute
// path so a later chdir in the process can't change which file a
// subsequent reload reads.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l := &Loader{path: abs}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, expands, and decodes the configuration, then fills in
// defaults for everything the file left unset.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", l.path, err)
	}
	return decode(raw)
}

// Watch attaches an fsnotify watcher to the config file's directory
// and invokes onChange with each successfully reloaded Config. It
// blocks until ctx is canceled; decode errors on reload are logged and
// skipped rather than propagated, since a transient mid-write read of
// the file should not kill a running process.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(l.path)
	file := filepath.Base(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching directory %s: %w", dir, err)
	}
	slog.Info("config: watching file", "path", l.path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != file {
				continue
			}

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() { l.reload(ctx) })
			case event.Op&fsnotify.Remove != 0:
				slog.Warn("config: file was deleted", "path", l.path)
				go l.rewatch(ctx, watcher)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: file watcher error", "error", err)
		}
	}
}

// reload re-reads the config file and, on success, hands it to
// onChange; called from the debounce timer, so errors can only be
// logged, not returned.
func (l *Loader) reload(ctx context.Context) {
	cfg, err := l.Load(ctx)
	if err != nil {
		slog.Warn("config: reload failed, keeping previous config", "error", err)
		return
	}
	if l.onChange != nil {
		l.onChange(cfg)
	}
}

// rewatch polls for a deleted config file to reappear (editors that
// save via rename-over-original emit a Remove, not a Write) and
// re-establishes the directory watch once it does, triggering a
// reload in the process.
func (l *Loader) rewatch(ctx context.Context, watcher *fsnotify.Watcher) {
	ticker := time.NewTicker(rewatchInterval)
	defer ticker.Stop()

	dir := filepath.Dir(l.path)
	for i := 0; i < rewatchAttempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(l.path); err != nil {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				continue
			}
			slog.Info("config: re-established watch on file", "path", l.path)
			l.reload(ctx)
			return
		}
	}
	slog.Warn("config: failed to re-establish watch on file", "path", l.path)
}

// decode parses raw YAML, expands ${VAR}-style environment references
// in every string value, and applies defaults.
func decode(raw []byte) (*Config, error) {
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	expanded := ExpandEnvVarsInData(generic)

	reencoded, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: re-encoding expanded config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(reencoded, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}
