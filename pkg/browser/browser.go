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

// Package browser drives a headful browser under direction of a
// vision-capable model: the model sees a screenshot, emits one action,
// the agent applies it and captures the next screenshot, and the loop
// repeats until the model asks the user something instead of acting.
package browser

import "context"

// ActionKind is the vocabulary of actions the vision model may choose.
type ActionKind string

const (
	ActionClick       ActionKind = "click"
	ActionScroll      ActionKind = "scroll"
	ActionKeypress    ActionKind = "keypress"
	ActionType        ActionKind = "type"
	ActionDoubleClick ActionKind = "double_click"
	ActionWait        ActionKind = "wait"
)

// Action is one command the controller applies to the live page.
type Action struct {
	Kind ActionKind `json:"action"`

	// X, Y are viewport coordinates, used by click/double_click/scroll.
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// Text is the payload for keypress (a key name, e.g. "Enter") and
	// type (literal text to type).
	Text string `json:"text,omitempty"`

	// DeltaX, DeltaY are scroll offsets in pixels.
	DeltaX int `json:"delta_x,omitempty"`
	DeltaY int `json:"delta_y,omitempty"`

	// Message, when non-empty, means the model is asking the user
	// something rather than acting; Kind is ignored in that case.
	Message string `json:"message,omitempty"`
}

// Controller drives a real browser tab. Implementations must be safe
// to call sequentially from a single loop; concurrent calls on the
// same session are not required.
type Controller interface {
	// Apply performs action against the current page.
	Apply(ctx context.Context, action Action) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the underlying browser tab.
	Close(ctx context.Context) error
}
