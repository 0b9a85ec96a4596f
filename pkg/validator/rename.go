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
	"bytes"
	"go/ast"
	"go/format"
	"go/printer"
	"go/token"
	"strings"
)

// renameAndPrint renames fn's identifier to stepName and renders the
// whole wrapped file back to source, then strips the synthetic
// "package step" header the validator added in Validate so the result
// is exactly the step's own source: import block plus one function
// declaration. Idempotent: revalidating the output renames the
// (already correctly named) function to itself and reprints
// byte-for-byte identical source, satisfying spec §8's "validator
// renaming is idempotent".
func renameAndPrint(fset *token.FileSet, file *ast.File, fn *ast.FuncDecl, stepName string) (string, error) {
	fn.Name.Name = stepName

	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, fset, file); err != nil {
		return "", err
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		formatted = buf.Bytes()
	}

	return stripPackageHeader(string(formatted)), nil
}

// stripPackageHeader removes the leading "package step" line (and the
// blank line Validate inserted after it) that wraps bare step source
// into something go/parser accepts.
func stripPackageHeader(src string) string {
	const prefix = "package step"
	if !strings.HasPrefix(src, prefix) {
		return src
	}
	rest := src[len(prefix):]
	return strings.TrimLeft(rest, "\n")
}
