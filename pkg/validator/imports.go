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
	"strings"

	"github.com/agentctl/agentctl/pkg/catalog"
)

// safeStdlib is the standard-library allow-list every step may import
// regardless of its chosen tool, deliberately excluding packages that
// would defeat the sandbox (os/exec, os, syscall, unsafe, plugin,
// encoding/gob, net). Of these, os/exec, syscall, unsafe, plugin and
// encoding/gob are on the dangerous-call denylist (rule 7) and are
// always rejected; os and net packages pass only where a tool's
// AllowedLibraries list them.
var safeStdlib = map[string]bool{
	"fmt":             true,
	"strconv":         true,
	"strings":         true,
	"math":            true,
	"sort":            true,
	"time":            true,
	"errors":          true,
	"encoding/json":   true,
	"maps":            true,
	"slices":          true,
	"bytes":           true,
	"regexp":          true,
	"unicode":         true,
	"unicode/utf8":    true,
	"unicode/utf16":   true,
	"container/list":  true,
	"container/heap":  true,
}

// checkImports enforces spec §4.3 rule 2: every import resolves to a
// safe stdlib package or one of tool's allowed library prefixes, and
// relative imports are forbidden outright.
func checkImports(file *ast.File, tool catalog.ToolDescriptor) []string {
	var errs []string
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			errs = append(errs, fmt.Sprintf("import: malformed path literal %s", imp.Path.Value))
			continue
		}
		if strings.HasPrefix(path, ".") {
			errs = append(errs, fmt.Sprintf("import %q: relative imports are forbidden", path))
			continue
		}
		if reason, dangerous := dangerousPackages[path]; dangerous {
			errs = append(errs, fmt.Sprintf("dangerous call: import %q (%s)", path, reason))
			continue
		}
		if safeStdlib[path] {
			continue
		}
		if tool.AllowsImport(path) {
			continue
		}
		errs = append(errs, fmt.Sprintf("import %q: not in the safe stdlib set or tool %q's allowed libraries", path, tool.Name))
	}
	return errs
}
