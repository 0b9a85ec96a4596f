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

// Package validator statically checks a generated step's source before
// the executor ever runs it. A step is a single Go function declaration
// (plus its own import block); the validator parses it, applies the
// eight rules below, and on success renames the function to match the
// step name and returns canonical (gofmt'd) source.
//
// Go has no keyword-only parameters or parameter defaults, so two rules
// that read naturally against the original dynamic-language source are
// translated rather than transliterated: a step-0 callable takes no
// parameters at all (there is nothing to default), and the carry
// parameter for step index > 0 is a single, exactly-named
// map[string]any argument (see rules 3 and 4 below, and the matching
// code_example shape of pkg/catalog's format_output builtin).
package validator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/agentctl/agentctl/pkg/catalog"
)

// Input is everything the validator needs to judge one step.
type Input struct {
	// Source is the step's own text: an import block (optional) and
	// exactly one top-level function declaration.
	Source string

	// StepName is the name the callable is renamed to on success.
	StepName string

	// StepIndex is this step's position within the plan (0-based).
	StepIndex int

	// MultiStep is true when the plan has more than one step: per spec
	// §4.3 rule 3, the index-0 defaulting rule only applies to plans
	// with |P|>1; a lone step may take no parameters regardless.
	MultiStep bool

	// Tool is the step's chosen tool, whose AllowedLibraries bound the
	// import allow-list (rule 2) alongside the standard safe set.
	Tool catalog.ToolDescriptor

	// PredecessorOutputKeys is the predecessor step's carry keys, when
	// known, for the carry-key contract (rule 8). A nil slice means
	// "not available" and skips rule 8 entirely, per spec §4.3's
	// "only when a predecessor's output dictionary is available".
	PredecessorOutputKeys []string
}

// Result is the validator's verdict.
type Result struct {
	OK              bool
	CanonicalSource string
	Errors          []string
}

// ambientNames are identifiers injected into the step's evaluation
// namespace by the executor (spec §4.3 rule 5, §4.4): a structured
// logger, the current session id, and an event emitter standing in for
// the source's socketio handle. Go's built-in `error` type already
// satisfies the spec's ambient "error" name without any extra binding.
var ambientNames = map[string]bool{
	"logger":    true,
	"sessionID": true,
	"events":    true,
}

// Validate applies all eight rules to in.Source and returns a Result.
// Rules are checked in their spec §4.3 order, except that nesting depth
// (rule 6) is checked before name resolution (rule 5); the first
// rule category that fails to parse short-circuits (an unparseable
// source can't be walked for the rest), but once parsed, every
// remaining rule is checked and all violations are collected together
// so a single repair round-trip can address them all.
func Validate(in Input) Result {
	wrapped := "package step\n\n" + in.Source
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", wrapped, parser.ParseComments)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("parse error: %s", cleanParseError(err))}}
	}

	var errs []string

	errs = append(errs, checkImports(file, in.Tool)...)

	fn, sigErrs := checkSignature(file, in.StepIndex, in.MultiStep)
	errs = append(errs, sigErrs...)

	if fn != nil {
		if in.StepIndex > 0 {
			errs = append(errs, checkCarryPreamble(fn)...)
		}
		errs = append(errs, checkNestingDepth(fn)...)
		errs = append(errs, checkNameResolution(file, fn)...)
		errs = append(errs, checkDenylist(fn)...)
		if in.PredecessorOutputKeys != nil {
			errs = append(errs, checkCarryKeyContract(fn, in.PredecessorOutputKeys)...)
		}
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}

	canonical, err := renameAndPrint(fset, file, fn, in.StepName)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("rendering canonical source: %s", err)}}
	}

	return Result{OK: true, CanonicalSource: canonical}
}

// cleanParseError returns the parser's message with surrounding
// whitespace trimmed. Its line numbers count the two-line
// "package step" header Validate prepends to the source.
func cleanParseError(err error) string {
	return strings.TrimSpace(err.Error())
}

// topLevelFuncDecls returns every top-level function declaration (not
// method) in file, in source order.
func topLevelFuncDecls(file *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Recv == nil {
			out = append(out, fd)
		}
	}
	return out
}
