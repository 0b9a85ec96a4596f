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

package planner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// tmpSrcPattern matches an HTML src attribute pointing into /tmp, e.g.
// src="/tmp/report.pdf" or src='/tmp/chart.png'.
var tmpSrcPattern = regexp.MustCompile(`src=["'](/tmp/[^"']+)["']`)

// FileMaterializer implements the file-materialization pass of spec
// §4.5 step 4: rewrite every src="/tmp/..." reference in a final
// answer by moving the file to a stable static directory and updating
// the reference.
type FileMaterializer interface {
	Materialize(finalAnswer string) string
}

// StaticFileMaterializer moves files out of a temp directory into a
// directory served at a fixed URL prefix, grounded directly on the
// source's move_file_to_static/transform_final_answer pair.
type StaticFileMaterializer struct {
	DestDir   string // filesystem directory to move files into
	URLPrefix string // URL prefix the moved file is addressed by
}

// NewStaticFileMaterializer returns a materializer that moves files
// into destDir (created on first use) and rewrites references to
// "/<destDir>/<filename>".
func NewStaticFileMaterializer(destDir string) *StaticFileMaterializer {
	return &StaticFileMaterializer{DestDir: destDir, URLPrefix: "/" + destDir}
}

// Materialize rewrites every /tmp src reference it finds. A file that
// no longer exists at its claimed /tmp path is left as-is and logged,
// matching the source's "log and leave the snippet untouched" fallback.
func (m *StaticFileMaterializer) Materialize(finalAnswer string) string {
	return tmpSrcPattern.ReplaceAllStringFunc(finalAnswer, func(match string) string {
		groups := tmpSrcPattern.FindStringSubmatch(match)
		tmpPath := groups[1]
		if _, err := os.Stat(tmpPath); err != nil {
			slog.Error("file-materialization: source file missing", "path", tmpPath, "error", err)
			return match
		}
		newURL, err := m.moveToStatic(tmpPath)
		if err != nil {
			slog.Error("file-materialization: move failed", "path", tmpPath, "error", err)
			return match
		}
		return fmt.Sprintf(`src="%s"`, newURL)
	})
}

func (m *StaticFileMaterializer) moveToStatic(tmpPath string) (string, error) {
	if err := os.MkdirAll(m.DestDir, 0o755); err != nil {
		return "", fmt.Errorf("creating static directory: %w", err)
	}
	filename := filepath.Base(tmpPath)
	destPath := filepath.Join(m.DestDir, filename)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", tmpPath, destPath, err)
	}
	return m.URLPrefix + "/" + filename, nil
}
