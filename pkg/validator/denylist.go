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

// dangerousPackages are import paths that, if present at all, make a
// step's whole source dangerous regardless of which of their symbols
// are actually called: spec §4.3 rule 7's "dynamic code execution,
// shell execution, pickled-blob deserialization" translated to Go's
// nearest equivalents — dynamic code loading and evaluation (plugin,
// the yaegi interpreter), process and raw syscall execution, the unsafe
// escape hatch, and encoding/gob's arbitrary-type deserialization.
var dangerousPackages = map[string]string{
	"os/exec":                 "shell/process execution",
	"syscall":                 "raw process/syscall execution",
	"plugin":                  "dynamic code loading",
	"unsafe":                  "memory-safety escape hatch",
	"encoding/gob":            "arbitrary-type deserialization",
	"github.com/traefik/yaegi": "dynamic code evaluation",
}

// checkDenylist enforces spec §4.3 rule 7 at the call sites: every
// selector expression whose base is one of dangerousByAlias's package
// names is rejected. Importing one of dangerousPackages is rejected
// separately, by checkImports.
func checkDenylist(fn *ast.FuncDecl) []string {
	var errs []string
	ast.Inspect(fn, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if reason, dangerous := dangerousByAlias[pkgIdent.Name]; dangerous {
			errs = append(errs, fmt.Sprintf("dangerous call: %s.%s (%s)", pkgIdent.Name, sel.Sel.Name, reason))
		}
		return true
	})
	return errs
}

// dangerousByAlias maps the conventional last-segment import alias
// (what a selector expression actually uses, e.g. "exec" for
// "os/exec") to its denylist reason. checkImports has already rejected
// the import itself if it isn't in any allow-list; this catches the
// call sites for defense in depth and for steps whose tool happens to
// legitimately allow a prefix that contains a dangerous subpackage.
var dangerousByAlias = map[string]string{
	"exec":   "shell/process execution",
	"syscall": "raw process/syscall execution",
	"plugin": "dynamic code loading",
	"unsafe": "memory-safety escape hatch",
	"gob":    "arbitrary-type deserialization",
	"interp": "dynamic code evaluation",
}
