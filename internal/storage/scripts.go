/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonovel/internal/script"
)

// ScriptExt is the file extension of script files.
const ScriptExt = ".txt"

// ScriptHistoryLimit is the number of snapshots WriteScript keeps per script.
const ScriptHistoryLimit = 20

// ErrNoHistory is returned when a script has no snapshot to revert to.
var ErrNoHistory = errors.New("no script history")

// ScriptName strips surrounding space and the script extension.
func ScriptName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ScriptExt)
}

// ScriptPath returns the file of the named script. A name may carry the extension.
func ScriptPath(ph *ProjectHandle, name string) string {
	if ph == nil {
		return ""
	}
	return filepath.Join(ph.ScriptsDir(), ScriptName(name)+ScriptExt)
}

// ReadScript returns the text of a script; a missing file reads as empty.
func ReadScript(ph *ProjectHandle, name string) (string, error) {
	if ph == nil {
		return "", errors.New("nil ProjectHandle")
	}
	b, err := os.ReadFile(ScriptPath(ph, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read script %s: %w", name, err)
	}
	return string(b), nil
}

// WriteScript replaces a script transactionally. The previous text, if any, is
// kept as a snapshot in the index so edits can be reviewed and reverted; only the
// newest ScriptHistoryLimit snapshots are kept.
func WriteScript(ctx context.Context, ph *ProjectHandle, name, text string) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	name = ScriptName(name)
	prev, err := ReadScript(ph, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ph.ScriptsDir(), 0o755); err != nil {
		return fmt.Errorf("ensure scripts dir: %w", err)
	}
	if err := replaceFile(ScriptPath(ph, name), []byte(text)); err != nil {
		return err
	}
	if prev != "" && prev != text {
		if err := SaveScriptSnapshot(ctx, ph, name, prev, time.Now()); err != nil {
			return fmt.Errorf("snapshot %s: %w", name, err)
		}
		if _, err := PruneOldScriptSnapshots(ctx, ph, name, ScriptHistoryLimit); err != nil {
			return fmt.Errorf("prune snapshots of %s: %w", name, err)
		}
	}
	return nil
}

// RevertScript writes back the newest snapshot of a script and returns it. The
// replaced text becomes the newest snapshot, so a second revert undoes the first.
func RevertScript(ctx context.Context, ph *ProjectHandle, name string) (ScriptSnapshot, error) {
	name = ScriptName(name)
	snap, err := GetLatestScriptSnapshot(ctx, ph, name)
	if err != nil {
		return ScriptSnapshot{}, err
	}
	if snap.TS.IsZero() {
		return ScriptSnapshot{}, fmt.Errorf("%w: %s", ErrNoHistory, name)
	}
	if err := WriteScript(ctx, ph, name, snap.Text); err != nil {
		return ScriptSnapshot{}, err
	}
	return snap, nil
}

// ListScripts returns the script names (without extension), sorted.
func ListScripts(ph *ProjectHandle) ([]string, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	ents, err := os.ReadDir(ph.ScriptsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || filepath.Ext(e.Name()) != ScriptExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ScriptExt))
	}
	sort.Strings(names)
	return names, nil
}

// LoadConversation reads a script as a conversation named after it. An empty
// name loads the novel's start script.
func LoadConversation(ph *ProjectHandle, name string) (script.Conversation, error) {
	if ph == nil {
		return script.Conversation{}, errors.New("nil ProjectHandle")
	}
	if strings.TrimSpace(name) == "" {
		name = ph.Novel.StartScript()
	}
	name = ScriptName(name)
	if _, err := os.Stat(ScriptPath(ph, name)); err != nil {
		return script.Conversation{}, fmt.Errorf("script %s: %w", name, err)
	}
	text, err := ReadScript(ph, name)
	if err != nil {
		return script.Conversation{}, err
	}
	return script.Load(name, text), nil
}
