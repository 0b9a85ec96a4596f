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

// Command agentctl is the CLI for the agentctl core.
//
// Usage:
//
//	agentctl run --session-id s1 "summarize this repo"
//	agentctl run --session-id s1 --deepsearch --depth 3 "compare these two approaches"
//	agentctl follow-up --session-id s1 "use the staging cluster"
//	agentctl rate --session-id s1 4
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Start or resume a session (run_agent)."`
	FollowUp FollowUpCmd `cmd:"" help:"Deliver an out-of-band reply to a suspended session."`
	Rate     RateCmd     `cmd:"" help:"Submit a human rating for a session's pending RL record."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`

	Provider string `help:"Model provider backend: cloud or local. Not read: the backend is chosen by the --model prefix." default:"cloud"`
	Model    string `help:"Model identifier. A \"local_\" prefix routes to the local backend." default:"gpt-4o"`
	APIKey   string `name:"api-key" help:"API key for the cloud backend (defaults to OPENAI_API_KEY)."`
	BaseURL  string `name:"base-url" help:"Custom cloud API base URL."`
	OllamaURL string `name:"ollama-url" help:"Local Ollama daemon base URL." default:"http://localhost:11434"`

	RedisAddr string `name:"redis-addr" help:"Redis address for the session store (empty = in-process memory store)."`

	ConfigFile string `name:"config" help:"YAML config file supplying values for flags above that are left unset." type:"path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentctl version %s\n", version)
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentctl"),
		kong.Description("agentctl - agentic core: plan/evaluate loop, deep-search, RL-routed retrieval, browser automation"),
		kong.UsageOnError(),
	)

	_, _, _, cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cli.ConfigFile != "" {
		if err := cli.applyConfigFile(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
