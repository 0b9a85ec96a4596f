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

package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/store"
)

// Verdict is the small model's classification of a user's reply to a
// forwarded message.
type Verdict string

const (
	VerdictStop     Verdict = "stop"
	VerdictContinue Verdict = "continue"
)

// PollResult is what polling the follow-up key returns.
type PollResult struct {
	Reply   string
	Timeout bool
}

// Notifier forwards a message the vision model wants the user to see,
// and is the caller's hook for whatever transport carries it (spec
// §6's event stream, in the full system).
type Notifier interface {
	Notify(ctx context.Context, sessionID, message string) error
}

// Config bounds the agent's command and poll timeouts (spec §5).
type Config struct {
	CommandTimeout time.Duration
	PollTimeout    time.Duration
	PollInterval   time.Duration
}

// DefaultConfig returns the spec's default timeouts: 5s per browser
// command, 60s per follow-up poll.
func DefaultConfig() Config {
	return Config{CommandTimeout: 5 * time.Second, PollTimeout: 60 * time.Second, PollInterval: 500 * time.Millisecond}
}

// Agent loops a vision-capable model against a live Controller:
// screenshot in, action out, apply, repeat, until the model asks the
// user something instead of acting.
type Agent struct {
	Controller Controller
	Sessions   store.Store
	Client     model.Client
	Model      string
	Notifier   Notifier
	Config     Config
}

// NewAgent returns an Agent wired to controller, backed by sessions
// for follow-up polling and client for both the vision loop and the
// small stop/continue classifier.
func NewAgent(controller Controller, sessions store.Store, client model.Client, modelName string, notifier Notifier) *Agent {
	return &Agent{
		Controller: controller,
		Sessions:   sessions,
		Client:     client,
		Model:      modelName,
		Notifier:   notifier,
		Config:     DefaultConfig(),
	}
}

// Run drives the agent for sessionID starting from an initial
// instruction, until the model stops asking for actions (it emits a
// message the user classifies as "stop", or the poll for a reply
// times out).
func (a *Agent) Run(ctx context.Context, sessionID, instruction string) error {
	history := []model.Message{{Role: model.RoleUser, Content: instruction}}

	for {
		shot, err := a.Controller.Screenshot(ctx)
		if err != nil {
			return fmt.Errorf("browser: capturing screenshot: %w", err)
		}
		history = append(history, model.Message{
			Role:    model.RoleUser,
			Content: "Here is the current page.",
			Image:   &model.ImageAttachment{Data: shot, MIMEType: "image/png"},
		})

		action, err := a.nextAction(ctx, history)
		if err != nil {
			return err
		}
		history = append(history, model.Message{Role: model.RoleAssistant, Content: actionSummary(action)})

		if action.Message != "" {
			stop, err := a.handleMessage(ctx, sessionID, &history, action.Message)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
			continue
		}

		applyCtx, cancel := context.WithTimeout(ctx, a.Config.CommandTimeout)
		err = a.Controller.Apply(applyCtx, action)
		cancel()
		if err != nil {
			return fmt.Errorf("browser: applying action: %w", err)
		}
	}
}

// nextAction prompts the vision model with the running history and
// parses its next Action.
func (a *Agent) nextAction(ctx context.Context, history []model.Message) (Action, error) {
	prompt := fmt.Sprintf(`You are driving a web browser on the user's behalf. Looking at
the attached screenshot, respond with a single JSON object describing
your next action. Valid "action" values: %s, %s, %s, %s, %s, %s.
Include "x"/"y" for clicks, "delta_x"/"delta_y" for scrolls, "text" for
keypress/type. If you need to ask the user something instead of
acting, omit "action" and set "message" to your question.`,
		ActionClick, ActionScroll, ActionKeypress, ActionType, ActionDoubleClick, ActionWait)

	turns := append(append([]model.Message{}, history...), model.Message{Role: model.RoleUser, Content: prompt})

	raw, err := a.Client.Chat(ctx, turns, model.ChatOptions{Model: a.Model, ResponseFormat: model.ResponseFormatJSON})
	if err != nil {
		return Action{}, fmt.Errorf("browser: calling vision model: %w", err)
	}

	var action Action
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return Action{}, fmt.Errorf("browser: parsing action JSON: %w", err)
	}
	return action, nil
}

// handleMessage forwards message to the user, polls for a reply, and
// classifies it as stop or continue. It returns stop=true when the
// agent should terminate rather than loop again.
func (a *Agent) handleMessage(ctx context.Context, sessionID string, history *[]model.Message, message string) (bool, error) {
	if a.Notifier != nil {
		if err := a.Notifier.Notify(ctx, sessionID, message); err != nil {
			return false, fmt.Errorf("browser: notifying user: %w", err)
		}
	}

	result, err := a.pollFollowup(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if result.Timeout {
		return true, nil
	}

	verdict, err := a.classify(ctx, message, result.Reply)
	if err != nil {
		return false, err
	}
	if verdict == VerdictStop {
		return true, nil
	}

	*history = append(*history, model.Message{Role: model.RoleUser, Content: result.Reply})
	return false, nil
}

// pollFollowup polls the session's followup key until a reply appears
// or PollTimeout elapses.
func (a *Agent) pollFollowup(ctx context.Context, sessionID string) (PollResult, error) {
	deadline := time.Now().Add(a.Config.PollTimeout)
	key := store.FollowupKey(sessionID)

	for {
		reply, err := a.Sessions.Get(ctx, key)
		if err == nil {
			if delErr := a.Sessions.Delete(ctx, key); delErr != nil {
				return PollResult{}, fmt.Errorf("browser: clearing follow-up reply: %w", delErr)
			}
			return PollResult{Reply: reply}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return PollResult{}, fmt.Errorf("browser: polling follow-up reply: %w", err)
		}

		if time.Now().After(deadline) {
			return PollResult{Timeout: true}, nil
		}

		select {
		case <-ctx.Done():
			return PollResult{}, ctx.Err()
		case <-time.After(a.Config.PollInterval):
		}
	}
}

// classify asks a small model whether reply to question means the
// user wants the agent to stop or keep going.
func (a *Agent) classify(ctx context.Context, question, reply string) (Verdict, error) {
	prompt := fmt.Sprintf(`The browsing agent asked: %q
The user replied: %q
Does the user want the agent to stop, or continue browsing? Reply with
exactly one word: "stop" or "continue".`, question, reply)

	raw, err := a.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{Model: a.Model})
	if err != nil {
		return "", fmt.Errorf("browser: classifying reply: %w", err)
	}

	if strings.Contains(strings.ToLower(raw), string(VerdictStop)) {
		return VerdictStop, nil
	}
	return VerdictContinue, nil
}

func actionSummary(action Action) string {
	if action.Message != "" {
		return action.Message
	}
	return fmt.Sprintf("performed %s", action.Kind)
}
