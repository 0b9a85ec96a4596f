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

// Package rl is the meta-selector that picks which strategy (which
// agent mode, tool, or model) handles a request, learning from delayed
// human ratings rather than an immediate signal (spec §4.8, §4.9). A
// request's feature vector and the action taken are held pending in
// the session store until a rating arrives; only then is the estimator
// updated, so a rating submitted after the agent has already moved on
// to other sessions still lands on the right sample.
package rl

import "sync"

// Action identifies one selectable strategy, e.g. a tool name, a
// model tier, or "code_agent" vs. "deep_search".
type Action string

// Sample is one (features, action, reward) observation used to warm
// up the estimator before it is trusted for exploitation.
type Sample struct {
	Features []float64
	Action   Action
	Reward   float64
}

// RingBuffer holds the most recent samples, oldest dropped first, the
// same "keep last N, evict oldest" shape the teacher's history window
// strategies use for messages.
type RingBuffer struct {
	mu       sync.Mutex
	capacity int
	samples  []Sample
}

// NewRingBuffer returns an empty buffer holding at most capacity
// samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{capacity: capacity}
}

// Add appends s, evicting the oldest sample if the buffer is full.
func (b *RingBuffer) Add(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) >= b.capacity {
		b.samples = b.samples[1:]
	}
	b.samples = append(b.samples, s)
}

// Len reports how many samples the buffer currently holds.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Samples returns a copy of the buffer's current contents, oldest
// first.
func (b *RingBuffer) Samples() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// ErrorBuffer holds the most recent TD errors observed by the
// estimator, mirroring QLearningAgent's error_list: Selector consults
// it to decide whether the estimator is trustworthy enough to exploit,
// per §4.8's "fewer than N recent observations, or their mean error
// exceeds θ" gate.
type ErrorBuffer struct {
	mu       sync.Mutex
	capacity int
	errors   []float64
}

// NewErrorBuffer returns an empty buffer holding at most capacity
// recent TD errors.
func NewErrorBuffer(capacity int) *ErrorBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ErrorBuffer{capacity: capacity}
}

// Add records one TD error (absolute value), evicting the oldest entry
// if the buffer is full.
func (b *ErrorBuffer) Add(tdError float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tdError < 0 {
		tdError = -tdError
	}
	if len(b.errors) >= b.capacity {
		b.errors = b.errors[1:]
	}
	b.errors = append(b.errors, tdError)
}

// Len reports how many errors the buffer currently holds.
func (b *ErrorBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.errors)
}

// Mean returns the average of the buffer's current contents, or 0 for
// an empty buffer.
func (b *ErrorBuffer) Mean() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.errors) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range b.errors {
		sum += e
	}
	return sum / float64(len(b.errors))
}
