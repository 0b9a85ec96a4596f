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

const carryParamName = "previousOutput"

// checkSignature enforces spec §4.3 rule 3, translated for a language
// with neither variadic keyword parameters nor parameter defaults:
//
//   - Exactly one top-level function declaration.
//   - No variadic parameter.
//   - For step index 0 in a multi-step plan, the callable takes no
//     parameters (nothing to supply a default for).
//   - For step index > 0, the callable takes exactly one parameter,
//     named previousOutput, of type map[string]any — the carry.
//
// Returns the function declaration (nil on failure) so later rules
// that need the body can be skipped cleanly when the signature itself
// is broken.
func checkSignature(file *ast.File, stepIndex int, multiStep bool) (*ast.FuncDecl, []string) {
	decls := topLevelFuncDecls(file)
	switch len(decls) {
	case 0:
		return nil, []string{"signature: no top-level function declaration found"}
	default:
		if len(decls) > 1 {
			return nil, []string{fmt.Sprintf("signature: expected exactly one top-level callable, found %d", len(decls))}
		}
	}

	fn := decls[0]
	params := fn.Type.Params

	var errs []string

	if n := numFields(params); n > 0 {
		last := params.List[len(params.List)-1]
		if _, variadic := last.Type.(*ast.Ellipsis); variadic {
			errs = append(errs, "signature: variadic parameters are not allowed")
		}
	}

	switch {
	case stepIndex == 0 && multiStep:
		if numFields(params) != 0 {
			errs = append(errs, "signature: the first step of a multi-step plan must take no parameters")
		}
	case stepIndex > 0:
		if numFields(params) != 1 {
			errs = append(errs, fmt.Sprintf("signature: step %d must take exactly one parameter named %s", stepIndex, carryParamName))
			break
		}
		name, typeOK := carryParam(params.List[0])
		if name != carryParamName {
			errs = append(errs, fmt.Sprintf("signature: step %d's parameter must be named %s, found %q", stepIndex, carryParamName, name))
		}
		if !typeOK {
			errs = append(errs, fmt.Sprintf("signature: %s must be of type map[string]any", carryParamName))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return fn, nil
}

// numFields counts parameters, accounting for grouped names
// (a, b int counts as two fields's worth of parameters).
func numFields(params *ast.FieldList) int {
	if params == nil {
		return 0
	}
	n := 0
	for _, f := range params.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}

func carryParam(f *ast.Field) (name string, isMapStringAny bool) {
	if len(f.Names) == 1 {
		name = f.Names[0].Name
	}
	mt, ok := f.Type.(*ast.MapType)
	if !ok {
		return name, false
	}
	keyIdent, ok := mt.Key.(*ast.Ident)
	if !ok || keyIdent.Name != "string" {
		return name, false
	}
	switch v := mt.Value.(type) {
	case *ast.InterfaceType:
		isMapStringAny = len(v.Methods.List) == 0
	case *ast.Ident:
		isMapStringAny = v.Name == "any"
	}
	return name, isMapStringAny
}
