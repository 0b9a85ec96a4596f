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
	"go/token"
	"go/types"
)

// checkNameResolution enforces spec §4.3 rule 5 with a scope-tracking
// walk rather than a full type-checker: every identifier used in value
// position must be a Go predeclared identifier, a parameter, something
// assigned within the function (:=, var, for-range, type switch,
// nested function literals, closures over the above), an imported
// package name, or one of the ambient names the executor injects.
//
// This is deliberately conservative rather than a complete resolver
// (that would mean running go/types over a single freestanding
// function with no package context, which has no real import graph to
// check against) — its job is to catch the common case a generated
// step actually gets wrong: referencing a name that was never
// introduced anywhere in scope.
func checkNameResolution(file *ast.File, fn *ast.FuncDecl) []string {
	declared := map[string]bool{}
	for _, imp := range file.Imports {
		declared[importAlias(imp)] = true
	}

	scopes := []map[string]bool{{}}
	push := func() { scopes = append(scopes, map[string]bool{}) }
	pop := func() { scopes = scopes[:len(scopes)-1] }
	declare := func(name string) {
		if name == "" || name == "_" {
			return
		}
		scopes[len(scopes)-1][name] = true
	}
	resolved := func(name string) bool {
		if name == "" || name == "_" {
			return true
		}
		if declared[name] || ambientNames[name] {
			return true
		}
		if types.Universe.Lookup(name) != nil {
			return true
		}
		for i := len(scopes) - 1; i >= 0; i-- {
			if scopes[i][name] {
				return true
			}
		}
		return false
	}

	for _, f := range fn.Type.Params.List {
		for _, n := range f.Names {
			declare(n.Name)
		}
	}

	var errs []string
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	collectDeclTargets := func(lhs []ast.Expr) {
		for _, e := range lhs {
			if id, ok := e.(*ast.Ident); ok {
				declare(id.Name)
			}
		}
	}

	walkExpr = func(e ast.Expr) {
		switch x := e.(type) {
		case nil:
			return
		case *ast.Ident:
			if !resolved(x.Name) {
				errs = append(errs, fmt.Sprintf("name resolution: %q is not a builtin, parameter, local, import, or ambient name", x.Name))
			}
		case *ast.SelectorExpr:
			// Only the base (package or value) is a name to resolve;
			// the field/method itself is not a free identifier.
			walkExpr(x.X)
		case *ast.CallExpr:
			walkExpr(x.Fun)
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *ast.BinaryExpr:
			walkExpr(x.X)
			walkExpr(x.Y)
		case *ast.UnaryExpr:
			walkExpr(x.X)
		case *ast.ParenExpr:
			walkExpr(x.X)
		case *ast.IndexExpr:
			walkExpr(x.X)
			walkExpr(x.Index)
		case *ast.SliceExpr:
			walkExpr(x.X)
			walkExpr(x.Low)
			walkExpr(x.High)
			walkExpr(x.Max)
		case *ast.StarExpr:
			walkExpr(x.X)
		case *ast.KeyValueExpr:
			walkExpr(x.Key)
			walkExpr(x.Value)
		case *ast.CompositeLit:
			for _, elt := range x.Elts {
				walkExpr(elt)
			}
		case *ast.TypeAssertExpr:
			walkExpr(x.X)
		case *ast.FuncLit:
			push()
			for _, f := range x.Type.Params.List {
				for _, n := range f.Names {
					declare(n.Name)
				}
			}
			for _, s := range x.Body.List {
				walkStmt(s)
			}
			pop()
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch x := s.(type) {
		case nil:
			return
		case *ast.ExprStmt:
			walkExpr(x.X)
		case *ast.AssignStmt:
			for _, r := range x.Rhs {
				walkExpr(r)
			}
			if x.Tok == token.DEFINE {
				collectDeclTargets(x.Lhs)
			} else {
				for _, l := range x.Lhs {
					walkExpr(l)
				}
			}
		case *ast.DeclStmt:
			gd, ok := x.Decl.(*ast.GenDecl)
			if !ok {
				return
			}
			for _, spec := range gd.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, v := range vs.Values {
					walkExpr(v)
				}
				for _, n := range vs.Names {
					declare(n.Name)
				}
			}
		case *ast.ReturnStmt:
			for _, r := range x.Results {
				walkExpr(r)
			}
		case *ast.IfStmt:
			push()
			walkStmt(x.Init)
			walkExpr(x.Cond)
			for _, s := range x.Body.List {
				walkStmt(s)
			}
			walkStmt(x.Else)
			pop()
		case *ast.ForStmt:
			push()
			walkStmt(x.Init)
			walkExpr(x.Cond)
			walkStmt(x.Post)
			for _, s := range x.Body.List {
				walkStmt(s)
			}
			pop()
		case *ast.RangeStmt:
			push()
			if x.Tok == token.DEFINE {
				if id, ok := x.Key.(*ast.Ident); ok {
					declare(id.Name)
				}
				if id, ok := x.Value.(*ast.Ident); ok {
					declare(id.Name)
				}
			}
			walkExpr(x.X)
			for _, s := range x.Body.List {
				walkStmt(s)
			}
			pop()
		case *ast.BlockStmt:
			push()
			for _, s := range x.List {
				walkStmt(s)
			}
			pop()
		case *ast.SwitchStmt:
			push()
			walkStmt(x.Init)
			walkExpr(x.Tag)
			for _, c := range x.Body.List {
				cc := c.(*ast.CaseClause)
				for _, e := range cc.List {
					walkExpr(e)
				}
				push()
				for _, s := range cc.Body {
					walkStmt(s)
				}
				pop()
			}
			pop()
		case *ast.TypeSwitchStmt:
			push()
			walkStmt(x.Init)
			switch assign := x.Assign.(type) {
			case *ast.AssignStmt:
				for _, r := range assign.Rhs {
					walkExpr(r)
				}
				if assign.Tok == token.DEFINE {
					collectDeclTargets(assign.Lhs)
				}
			case *ast.ExprStmt:
				walkExpr(assign.X)
			}
			for _, c := range x.Body.List {
				cc := c.(*ast.CaseClause)
				push()
				for _, s := range cc.Body {
					walkStmt(s)
				}
				pop()
			}
			pop()
		case *ast.DeferStmt:
			walkExpr(x.Call)
		case *ast.GoStmt:
			walkExpr(x.Call)
		case *ast.IncDecStmt:
			walkExpr(x.X)
		case *ast.SendStmt:
			walkExpr(x.Chan)
			walkExpr(x.Value)
		case *ast.LabeledStmt:
			walkStmt(x.Stmt)
		}
	}

	for _, s := range fn.Body.List {
		walkStmt(s)
	}

	return errs
}

// importAlias returns the name by which an import is referenced in
// source: its explicit alias if given, otherwise the conventional last
// path segment.
func importAlias(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	path := imp.Path.Value
	// Strip quotes and take the last "/"-separated segment.
	path = path[1 : len(path)-1]
	last := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			last = path[i+1:]
			break
		}
	}
	return last
}
