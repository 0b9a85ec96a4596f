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

package planner

import "sync"

// entryOptions collects the per-entry flags an ExecutionLog record can
// carry (spec §3): no_memory excludes an entry from what the evaluator
// sees, no_print excludes it from operator-facing output. The loop
// itself only consults MemoryEntries; NoPrint is carried for a future
// console sink and otherwise inert here.
type entryOptions struct {
	noMemory bool
	noPrint  bool
}

// EntryOption configures one Log entry.
type EntryOption func(*entryOptions)

// WithNoMemory marks an entry excluded from the trimmed in-memory log
// fed to the evaluator — narration about the loop itself, not a fact
// about the task.
func WithNoMemory() EntryOption { return func(o *entryOptions) { o.noMemory = true } }

// WithNoPrint marks an entry excluded from console output.
func WithNoPrint() EntryOption { return func(o *entryOptions) { o.noPrint = true } }

// LogEntry is one record of the run's ExecutionLog (spec §3). Text may
// carry an <executionLog>...</executionLog> or
// <finalAnswerDataLog>...</finalAnswerDataLog> wrapper emitted by step
// code itself; the loop does not parse these tags, it only filters on
// the no_memory flag before handing entries to the evaluator.
type LogEntry struct {
	Level    string
	Text     string
	NoMemory bool
	NoPrint  bool
}

// Log is the Plan/Evaluate Loop's append-only run narration.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLog returns an empty Log.
func NewLog() *Log { return &Log{} }

func (l *Log) add(level, text string, opts []EntryOption) {
	var o entryOptions
	for _, apply := range opts {
		apply(&o)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Text: text, NoMemory: o.noMemory, NoPrint: o.noPrint})
}

func (l *Log) Info(text string, opts ...EntryOption) { l.add("INFO", text, opts) }
func (l *Log) Warn(text string, opts ...EntryOption) { l.add("WARN", text, opts) }
func (l *Log) Error(text string, opts ...EntryOption) { l.add("ERROR", text, opts) }

// MemoryEntries returns the text of every entry not flagged no_memory,
// in order — the ground truth the evaluator is fed (spec §3).
func (l *Log) MemoryEntries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if e.NoMemory {
			continue
		}
		out = append(out, e.Text)
	}
	return out
}
