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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
	"github.com/agentctl/agentctl/pkg/catalog"
	"github.com/agentctl/agentctl/pkg/config"
	"github.com/agentctl/agentctl/pkg/deepsearch"
	"github.com/agentctl/agentctl/pkg/executor"
	"github.com/agentctl/agentctl/pkg/graph"
	"github.com/agentctl/agentctl/pkg/httpclient"
	"github.com/agentctl/agentctl/pkg/model"
	"github.com/agentctl/agentctl/pkg/planner"
	"github.com/agentctl/agentctl/pkg/rl"
	"github.com/agentctl/agentctl/pkg/store"
	"github.com/redis/go-redis/v9"
)

// applyConfigFile loads ConfigFile and fills in any CLI flag left at
// its zero value, so a config file sets defaults a flag can still
// override on the command line.
func (c *CLI) applyConfigFile() error {
	cfg, err := config.NewLoader(c.ConfigFile).Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}

	if c.Model == "" {
		c.Model = cfg.ModelGateway.CloudModel
	}
	if c.APIKey == "" {
		c.APIKey = cfg.ModelGateway.APIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = cfg.ModelGateway.BaseURL
	}
	if c.OllamaURL == "" || c.OllamaURL == "http://localhost:11434" {
		c.OllamaURL = cfg.ModelGateway.OllamaURL
	}
	if c.RedisAddr == "" && cfg.SessionStore.Backend == "redis" {
		c.RedisAddr = cfg.SessionStore.RedisAddr
	}
	return nil
}

// buildModelClient wires the cloud/local Gateway from CLI flags (spec
// §4.1: a "local_" prefixed model identifier routes to the local
// backend, everything else to the cloud backend).
func (c *CLI) buildModelClient() model.Client {
	apiKey := c.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cloud := model.NewCloudClient(apiKey, c.BaseURL)
	local := model.NewOllamaClient(c.OllamaURL)
	return model.NewGateway(cloud, local)
}

// buildSessionStore wires the session store from CLI flags: an
// explicit Redis address takes precedence since it is the only backend
// that survives across separate CLI invocations (each run of agentctl
// is its own process); otherwise an in-process Memory store, which
// only makes run/follow-up/rate useful within a single invocation.
func (c *CLI) buildSessionStore() store.Store {
	if c.RedisAddr == "" {
		return store.NewMemory()
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	return store.NewRedis(client)
}

// buildCatalog assembles the built-in tool catalog with no user tools
// and no external toolkit adapters, the CLI's zero-config default.
func buildCatalog(ctx context.Context) (*catalog.Catalog, []error) {
	builder := &catalog.Builder{
		BuiltinsEnabled: true,
		Builtins:        catalog.NewBuiltinRegistry(),
	}
	return builder.Build(ctx, nil)
}

// RunCmd starts or resumes a session: run_agent (spec §6).
type RunCmd struct {
	SessionID  string `name:"session-id" required:"" help:"Session identifier."`
	UserID     string `name:"user-id" help:"User identifier, threaded into deep-search sessions."`
	DeepSearch bool   `name:"deepsearch" help:"Use the deep-search planner instead of the plan/evaluate loop."`
	Depth      int    `help:"Deep-search depth (spec §6 depth profile)." default:"1"`
	Prompt     string `arg:"" help:"The user's message."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx := context.Background()
	client := cli.buildModelClient()
	sessions := cli.buildSessionStore()

	history := []model.Message{{Role: model.RoleUser, Content: c.Prompt}}

	if c.DeepSearch {
		return c.runDeepSearch(ctx, cli, client, sessions, history)
	}
	return c.runPlanLoop(ctx, cli, client, history)
}

func (c *RunCmd) runPlanLoop(ctx context.Context, cli *CLI, client model.Client, history []model.Message) error {
	cat, dropped := buildCatalog(ctx)
	for _, err := range dropped {
		slog.Warn("tool dropped from catalog", "error", err)
	}

	gen := planner.NewModelGenerator(client, cli.Model)
	eval := planner.NewModelEvaluator(client, cli.Model)
	repairer := planner.NewModelRepairer(client, cli.Model)
	exec := executor.New(cat, repairer, c.SessionID, executor.NoopEventEmitter{})

	loop := planner.NewLoop(gen, eval, exec)
	answer, err := loop.Run(ctx, history, cat.Tools())
	if err != nil {
		return fmt.Errorf("running plan/evaluate loop: %w", err)
	}

	fmt.Println(answer)
	return nil
}

func (c *RunCmd) runDeepSearch(ctx context.Context, cli *CLI, client model.Client, sessions store.Store, history []model.Message) error {
	g := graph.NewMemory()
	searcher := deepsearch.NewWebSearcher(httpclient.New(), deepsearch.NoopEndpoint{})
	pl := deepsearch.NewPlanner(sessions, g, client, cli.Model, searcher)

	sess, err := pl.Start(ctx, c.SessionID, c.UserID, history, c.Depth)
	if err != nil {
		return fmt.Errorf("starting deep-search session: %w", err)
	}

	reportSession(sess)
	return nil
}

// FollowUpCmd delivers an out-of-band reply: follow_up_response (spec
// §6). It both unblocks a suspended deep-search session (by resuming
// the planner) and satisfies a browsing agent's pending follow-up poll
// (by writing the reply key the poll is watching), since either may be
// the thing actually waiting on this session.
type FollowUpCmd struct {
	SessionID string `name:"session-id" required:"" help:"Session identifier."`
	Message   string `arg:"" help:"The out-of-band reply."`
}

func (c *FollowUpCmd) Run(cli *CLI) error {
	ctx := context.Background()
	sessions := cli.buildSessionStore()

	if err := sessions.Set(ctx, store.FollowupKey(c.SessionID), c.Message); err != nil {
		return fmt.Errorf("delivering follow-up reply: %w", err)
	}

	client := cli.buildModelClient()
	g := graph.NewMemory()
	searcher := deepsearch.NewWebSearcher(httpclient.New(), deepsearch.NoopEndpoint{})
	pl := deepsearch.NewPlanner(sessions, g, client, cli.Model, searcher)

	sess, err := pl.Resume(ctx, c.SessionID, c.Message)
	if errors.Is(err, agentctlerr.ErrSessionNotFound) {
		fmt.Println("reply delivered; no suspended deep-search session to resume")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resuming deep-search session: %w", err)
	}

	reportSession(sess)
	return nil
}

// RateCmd submits a human rating: submit_evaluation (spec §6, §4.8).
type RateCmd struct {
	SessionID string `name:"session-id" required:"" help:"Session identifier."`
	Rating    int    `arg:"" help:"Rating from 1 to 5."`
}

func (c *RateCmd) Run(cli *CLI) error {
	if c.Rating < 1 || c.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", c.Rating)
	}

	ctx := context.Background()
	sessions := cli.buildSessionStore()
	estimator := rl.NewTabularEstimator()
	errs := rl.NewErrorBuffer(200)
	buffer := rl.NewRingBuffer(200)

	if err := rl.ApplyRating(ctx, sessions, estimator, errs, buffer, c.SessionID, float64(c.Rating)); err != nil {
		return fmt.Errorf("submitting evaluation: %w", err)
	}

	fmt.Println("rating recorded")
	return nil
}

func reportSession(sess *deepsearch.Session) {
	fmt.Printf("session %s: state=%s step=%d\n", sess.SessionID, sess.State, sess.StepIndex)
	if sess.State == deepsearch.StateCompleted {
		fmt.Println(sess.FinalAnswer)
		return
	}
	if node := sess.Chain[sess.StepIndex]; len(node.UserQuestions) > len(node.UserAnswers) {
		fmt.Println(node.UserQuestions[len(node.UserAnswers)])
	}
}
