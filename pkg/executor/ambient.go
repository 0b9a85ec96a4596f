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

package executor

import (
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"
)

// EventEmitter is the ambient "events" binding, standing in for the
// source's socketio handle: a step body uses it to push user-visible
// progress without going through the structured logger.
type EventEmitter interface {
	Emit(event string, payload any)
}

// NoopEventEmitter discards every event; used when no client connection
// backs a given run (e.g. the code agent's non-interactive entrypoints).
type NoopEventEmitter struct{}

func (NoopEventEmitter) Emit(string, any) {}

// stepLogger is the ambient "logger" binding. It's an append-only,
// timestamp-free buffer rather than a *slog.Logger: the executor's job
// is to scan entries a step appended for an "[ERROR]" marker (spec
// §4.4), which means capturing exactly what the step wrote, not
// routing it through agentctl's own operator-facing slog handler.
type stepLogger struct {
	mu      sync.Mutex
	entries []string
}

func newStepLogger() *stepLogger {
	return &stepLogger{}
}

func (l *stepLogger) Info(msg string) { l.append("[INFO] " + msg) }
func (l *stepLogger) Warn(msg string) { l.append("[WARN] " + msg) }
func (l *stepLogger) Error(msg string) { l.append("[ERROR] " + msg) }

func (l *stepLogger) append(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *stepLogger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Since returns every entry appended after the first mark entries.
func (l *stepLogger) Since(mark int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if mark >= len(l.entries) {
		return nil
	}
	out := make([]string, len(l.entries)-mark)
	copy(out, l.entries[mark:])
	return out
}

// ambientImportPath is the synthetic import path under which the
// sandbox's Go-side values (the logger, the session id, the event
// emitter) are registered with yaegi's Use/Exports mechanism. The
// bootstrap preamble imports it under a short alias and re-declares its
// three symbols as bare package-level names, which is as close as a
// compiled-Go sandbox gets to Python's exec(code, globals) binding
// names directly into the executed code's namespace.
const ambientImportPath = "agentctl/ambient"

// ambientPreamble is evaluated into every step's interpreter before the
// step's own source, giving the body direct, unqualified access to
// logger, sessionID, and events — exactly the names the validator's
// name-resolution rule (spec §4.3 rule 5) always treats as in scope.
const ambientPreamble = `
import amb "` + ambientImportPath + `"

var logger = amb.Logger
var sessionID = amb.SessionID
var events = amb.Events
`

func ambientExports(logger *stepLogger, sessionID string, events EventEmitter) interp.Exports {
	if events == nil {
		events = NoopEventEmitter{}
	}
	return interp.Exports{
		ambientImportPath + "/ambient": {
			"Logger":    reflect.ValueOf(logger),
			"SessionID": reflect.ValueOf(sessionID),
			"Events":    reflect.ValueOf(events),
		},
	}
}
