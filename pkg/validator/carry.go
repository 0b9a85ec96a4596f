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

package validator

import (
	"fmt"
	"go/ast"
	"strconv"
)

const carryDictName = "updatedDict"

// checkCarryPreamble enforces spec §4.3 rule 4's Go translation: for
// step index > 0, the function body must contain
//
//	updatedDict := maps.Clone(previousOutput)
//
// This is the load-bearing Go rendering of the source's
// `updated_dict = previous_output.copy()`, established in
// pkg/catalog's format_output builtin; the two must stay in lockstep.
func checkCarryPreamble(fn *ast.FuncDecl) []string {
	if fn.Body == nil {
		return []string{"carry preamble: function has no body"}
	}
	for _, stmt := range fn.Body.List {
		assign, ok := stmt.(*ast.AssignStmt)
		if !ok || assign.Tok.String() != ":=" || len(assign.Lhs) != 1 || len(assign.Rhs) != 1 {
			continue
		}
		lhs, ok := assign.Lhs[0].(*ast.Ident)
		if !ok || lhs.Name != carryDictName {
			continue
		}
		call, ok := assign.Rhs[0].(*ast.CallExpr)
		if !ok {
			continue
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Clone" {
			continue
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok || pkgIdent.Name != "maps" {
			continue
		}
		if len(call.Args) == 1 {
			if arg, ok := call.Args[0].(*ast.Ident); ok && arg.Name == carryParamName {
				return nil
			}
		}
	}
	return []string{fmt.Sprintf("carry preamble: function body must contain %q", carryDictName+" := maps.Clone("+carryParamName+")")}
}

// checkCarryKeyContract enforces spec §4.3 rule 8: every literal string
// key used to index previousOutput must be present in the predecessor's
// output. Go has no dict.get(key, default) method, so the idiomatic
// rendering of that access is a direct map index previousOutput["key"];
// non-literal keys (identifiers, expressions) are ignored, matching the
// source's "non-literal keys are ignored".
func checkCarryKeyContract(fn *ast.FuncDecl, predecessorKeys []string) []string {
	allowed := make(map[string]bool, len(predecessorKeys))
	for _, k := range predecessorKeys {
		allowed[k] = true
	}

	var errs []string
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		idx, ok := n.(*ast.IndexExpr)
		if !ok {
			return true
		}
		recv, ok := idx.X.(*ast.Ident)
		if !ok || recv.Name != carryParamName {
			return true
		}
		lit, ok := idx.Index.(*ast.BasicLit)
		if !ok || lit.Kind.String() != "STRING" {
			return true
		}
		key, err := strconv.Unquote(lit.Value)
		if err != nil {
			return true
		}
		if !allowed[key] {
			errs = append(errs, fmt.Sprintf("carry-key contract: key %q is not present in the predecessor's output", key))
		}
		return true
	})
	return errs
}
