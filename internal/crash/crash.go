/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the CLI top level into a report file, an optional
// upload and a non-zero exit.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "gonovel/internal/log"
	"gonovel/internal/storage"
	"gonovel/internal/telemetry"
	"gonovel/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Recover handles a panic: it logs the stack, writes a report into the project's
// backups folder (or the temp dir without a project), uploads it when telemetry is
// opted in and exits with code 2. where, if set, describes the playback position.
//
// Usage: defer crash.Recover(ph, where)
func Recover(ph *storage.ProjectHandle, where func() string) {
	if r := recover(); r != nil {
		handle(r, ph, where)
	}
}

// Guard is Recover with a project and position filled in after the defer.
//
//	var g crash.Guard
//	defer g.Recover()
//	g.Project = ph
type Guard struct {
	Project *storage.ProjectHandle
	Where   func() string
}

func (g *Guard) Recover() {
	if r := recover(); r != nil {
		handle(r, g.Project, g.Where)
	}
}

func handle(r any, ph *storage.ProjectHandle, where func() string) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	position := ""
	if where != nil {
		position = safeWhere(where)
	}
	reportPath, err := writeReport(ph, r, position, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err), slog.String("path", reportPath))
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	telemetry.Flush(context.Background())
	exitFn(2)
}

// safeWhere guards against a describer that panics itself.
func safeWhere(where func() string) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("unavailable (%v)", r)
		}
	}()
	return where()
}

func writeReport(ph *storage.ProjectHandle, panicVal any, position string, stack []byte) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405.000")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "gonovel crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		fmt.Fprintf(&buf, "Project: %s\n", ph.Root)
		fmt.Fprintf(&buf, "Novel: %s (start %s)\n", ph.Novel.Name, ph.Novel.StartScript())
	}
	if position != "" {
		fmt.Fprintf(&buf, "Playback: %s\n", position)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
