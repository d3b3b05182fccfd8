/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "strings"

// Novel is the project manifest (novel.json). Scripts live in the scripts/
// directory and are referred to by file name without extension.
type Novel struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	// Start is the script played by "run" and "play" when none is given.
	Start string `json:"start"`
	// Panels overrides the engine's panel list for this novel.
	Panels []string `json:"panels,omitempty"`
	Assets []Asset  `json:"assets,omitempty"`
}

// Metadata contains optional descriptive metadata for a novel.
type Metadata struct {
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Asset records a license or note for a resource under Resources/.
type Asset struct {
	Path    string `json:"path"`
	License string `json:"license,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// DefaultStart is the script name used when a manifest names none.
const DefaultStart = "main"

// NewNovel returns a manifest with the default start script.
func NewNovel(name string) Novel {
	return Novel{Name: strings.TrimSpace(name), Start: DefaultStart}
}

// StartScript returns Start, or DefaultStart when it is blank.
func (n Novel) StartScript() string {
	if s := strings.TrimSpace(n.Start); s != "" {
		return s
	}
	return DefaultStart
}
