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

// Package catalog normalizes user-supplied and built-in tool descriptors
// into the uniform shape the planner prompt and the step validator both
// consume.
//
// Three tool origins share one descriptor shape (spec §4.2, §9):
// builtin tools shipped with agentctl, user-supplied tools from request
// configuration, and third-party toolkit adapters (currently MCP
// servers) resolved at catalog-assembly time. Each origin implements
// Resolver.Resolve, the "tagged variant -> common descriptor" operation
// the spec calls out as a natural fit.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Origin identifies where a ToolDescriptor came from.
type Origin string

const (
	OriginBuiltin            Origin = "builtin"
	OriginUser               Origin = "user"
	OriginExternalToolkitAdapter Origin = "external_toolkit_adapter"
)

// ToolDescriptor is the uniform shape every tool is normalized into,
// regardless of origin. Once assembled it is immutable for the
// lifetime of the request (spec §3).
type ToolDescriptor struct {
	Name             string
	AllowedLibraries []string
	Instructions     string
	CodeExample      string
	UseExactExample  bool
	Origin           Origin
}

// AllowsImport reports whether importPath is covered by one of the
// descriptor's allowed library prefixes. Used directly by the step
// validator's import allow-list rule (spec §4.3 rule 2).
func (d ToolDescriptor) AllowsImport(importPath string) bool {
	for _, prefix := range d.AllowedLibraries {
		if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
			return true
		}
	}
	return false
}

// RawSource is a tool entry as supplied by request configuration, before
// normalization. Source is either a builtin name (looked up in the
// builtin registry), a fully-specified user descriptor, or an adapter
// reference naming a third-party toolkit to resolve.
type RawSource struct {
	Origin Origin

	// BuiltinName identifies a registered builtin when Origin == OriginBuiltin.
	BuiltinName string

	// User carries a fully specified descriptor when Origin == OriginUser.
	User *ToolDescriptor

	// Adapter carries toolkit-resolution parameters when
	// Origin == OriginExternalToolkitAdapter.
	Adapter *AdapterSpec
}

// AdapterSpec names a third-party toolkit and the parameters needed to
// resolve it into a ToolDescriptor.
type AdapterSpec struct {
	ToolkitName string
	Params      map[string]string
}

// Resolver turns one RawSource into a ToolDescriptor.
type Resolver interface {
	Resolve(ctx context.Context, src RawSource) (ToolDescriptor, error)
}

// Catalog is the immutable, assembled list of tool descriptors consumed
// by the planner prompt and the validator's import allow-list.
type Catalog struct {
	tools []ToolDescriptor
}

// Tools returns the assembled descriptors in assembly order.
func (c *Catalog) Tools() []ToolDescriptor {
	return c.tools
}

// Lookup finds a descriptor by name.
func (c *Catalog) Lookup(name string) (ToolDescriptor, bool) {
	for _, t := range c.tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDescriptor{}, false
}

// AllowedLibraryUniverse returns the union of every descriptor's
// allowed libraries, used by the validator when a step's chosen tool is
// not otherwise known (defensive default; normal validation looks up the
// step's own tool).
func (c *Catalog) AllowedLibraryUniverse() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range c.tools {
		for _, lib := range t.AllowedLibraries {
			if _, ok := seen[lib]; !ok {
				seen[lib] = struct{}{}
				out = append(out, lib)
			}
		}
	}
	return out
}

// Builder assembles a Catalog from the union of user-supplied tools and
// the built-in set, gated by a global enable flag and per-name toggles
// (spec §4.2).
type Builder struct {
	BuiltinsEnabled bool
	DisabledNames   map[string]bool
	Variables       map[string]string

	Builtins Registry
	Adapters Resolver
}

// Registry resolves a builtin tool name to its descriptor template.
type Registry interface {
	Lookup(name string) (ToolDescriptor, bool)
	Names() []string
}

// Build assembles the catalog. Errors from adapter resolution are
// logged by the caller and the tool is dropped (spec §7 "Tool
// resolution failure"); Build itself never fails outright: malformed
// RawSource entries (missing required fields) are likewise skipped and
// reported in the returned error slice alongside resolution failures.
func (b *Builder) Build(ctx context.Context, userTools []RawSource) (*Catalog, []error) {
	var tools []ToolDescriptor
	var dropped []error

	if b.BuiltinsEnabled && b.Builtins != nil {
		for _, name := range b.Builtins.Names() {
			if b.DisabledNames[name] {
				continue
			}
			desc, ok := b.Builtins.Lookup(name)
			if !ok {
				continue
			}
			tools = append(tools, substitutePlaceholders(desc, b.Variables))
		}
	}

	for _, src := range userTools {
		switch src.Origin {
		case OriginUser:
			if src.User == nil {
				dropped = append(dropped, fmt.Errorf("user tool source missing descriptor"))
				continue
			}
			tools = append(tools, substitutePlaceholders(*src.User, b.Variables))

		case OriginExternalToolkitAdapter:
			if src.Adapter == nil {
				dropped = append(dropped, fmt.Errorf("adapter tool source missing adapter spec"))
				continue
			}
			if b.Adapters == nil {
				dropped = append(dropped, fmt.Errorf("tool %q: no adapter resolver configured", src.Adapter.ToolkitName))
				continue
			}
			desc, err := b.Adapters.Resolve(ctx, src)
			if err != nil {
				// Tool resolution failure: logged by the caller, tool
				// dropped, planning proceeds (spec §7).
				dropped = append(dropped, fmt.Errorf("resolving toolkit %q: %w", src.Adapter.ToolkitName, err))
				continue
			}
			tools = append(tools, desc)

		case OriginBuiltin:
			if b.Builtins == nil {
				dropped = append(dropped, fmt.Errorf("builtin tool %q: no builtin registry configured", src.BuiltinName))
				continue
			}
			desc, ok := b.Builtins.Lookup(src.BuiltinName)
			if !ok {
				dropped = append(dropped, fmt.Errorf("builtin tool %q not found", src.BuiltinName))
				continue
			}
			tools = append(tools, substitutePlaceholders(desc, b.Variables))

		default:
			dropped = append(dropped, fmt.Errorf("unknown tool origin %q", src.Origin))
		}
	}

	return &Catalog{tools: tools}, dropped
}
