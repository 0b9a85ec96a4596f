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
)

// checkNestingDepth enforces spec §4.3 rule 6: the outer callable is
// level 0, its immediate inner function literals are level 1, and
// anything nested deeper than that is rejected.
func checkNestingDepth(fn *ast.FuncDecl) []string {
	var errs []string
	var walk func(n ast.Node, depth int)
	walk = func(n ast.Node, depth int) {
		ast.Inspect(n, func(child ast.Node) bool {
			lit, ok := child.(*ast.FuncLit)
			if !ok || lit == n {
				return true
			}
			next := depth + 1
			if next > 1 {
				errs = append(errs, fmt.Sprintf("nesting depth: function literal nested %d levels deep, maximum is 1", next))
			}
			walk(lit.Body, next)
			return false
		})
	}
	walk(fn.Body, 0)
	return errs
}
