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

// MCP (Model Context Protocol) toolkit resolution, adapted from the
// teacher's lazy-connecting pkg/tool/mcptoolset package: here the
// toolset is resolved eagerly, once, at catalog-assembly time, and
// converted straight into a ToolDescriptor rather than kept live for
// later invocation (spec §4.2's "third-party toolkit adapter" origin).
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPAdapterResolver resolves an AdapterSpec naming an MCP server into a
// ToolDescriptor: allowed_libraries is derived from the adapter module,
// instructions come from the toolkit's own description, and code_example
// is synthesized to invoke the adapter with placeholders for its inputs.
type MCPAdapterResolver struct {
	// ConnectTimeout bounds the MCP handshake (initialize + list tools).
	ConnectTimeout time.Duration

	// Logger traces adapter handshakes; defaults to a quiet stderr
	// logger at Info level when nil.
	Logger hclog.Logger
}

func (r *MCPAdapterResolver) logger() hclog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	r.Logger = hclog.New(&hclog.LoggerOptions{
		Name:  "mcp-adapter",
		Level: hclog.Info,
	})
	return r.Logger
}

// Resolve implements Resolver.
func (r *MCPAdapterResolver) Resolve(ctx context.Context, src RawSource) (ToolDescriptor, error) {
	spec := src.Adapter
	log := r.logger()
	command, ok := spec.Params["command"]
	if !ok || command == "" {
		return ToolDescriptor{}, fmt.Errorf("mcp adapter %q: params.command is required", spec.ToolkitName)
	}

	var args []string
	if rawArgs, ok := spec.Params["args"]; ok && rawArgs != "" {
		args = strings.Fields(rawArgs)
	}

	timeout := r.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Debug("starting mcp server", "toolkit", spec.ToolkitName, "command", command)
	mcpClient, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		log.Error("mcp server failed to start", "toolkit", spec.ToolkitName, "error", err)
		return ToolDescriptor{}, fmt.Errorf("mcp adapter %q: start: %w", spec.ToolkitName, err)
	}
	defer mcpClient.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentctl", Version: "0.1.0"}
	if _, err := mcpClient.Initialize(connectCtx, initReq); err != nil {
		return ToolDescriptor{}, fmt.Errorf("mcp adapter %q: initialize: %w", spec.ToolkitName, err)
	}

	listResp, err := mcpClient.ListTools(connectCtx, mcp.ListToolsRequest{})
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("mcp adapter %q: list tools: %w", spec.ToolkitName, err)
	}
	if len(listResp.Tools) == 0 {
		return ToolDescriptor{}, fmt.Errorf("mcp adapter %q: server exposed no tools", spec.ToolkitName)
	}
	log.Info("mcp toolkit resolved", "toolkit", spec.ToolkitName, "tools", len(listResp.Tools))

	return ToolDescriptor{
		Name:             spec.ToolkitName,
		Origin:           OriginExternalToolkitAdapter,
		AllowedLibraries: []string{"github.com/mark3labs/mcp-go"},
		Instructions:     describeTools(listResp.Tools),
		CodeExample:      synthesizeMCPExample(spec.ToolkitName, listResp.Tools),
		UseExactExample:  true,
	}, nil
}

func describeTools(tools []mcp.Tool) string {
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
	}
	return b.String()
}

// synthesizeMCPExample builds an exact-use code example invoking the
// first exposed tool, with placeholders for its declared inputs, per
// spec §4.2 ("synthesising a code_example that invokes the adapter with
// placeholders for expected inputs").
func synthesizeMCPExample(toolkitName string, tools []mcp.Tool) string {
	first := tools[0]
	var params strings.Builder
	for name := range first.InputSchema.Properties {
		params.WriteString(fmt.Sprintf("\t\"%s\": \"<%s>\",\n", name, name))
	}
	return fmt.Sprintf(`func %s() map[string]any {
	updatedDict := map[string]any{}
	result := mcp.CallTool("%s", map[string]any{
%s	})
	updatedDict["result"] = result
	return updatedDict
}`, toolkitName, first.Name, params.String())
}
