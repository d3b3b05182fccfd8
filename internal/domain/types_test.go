/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewNovelDefaults(t *testing.T) {
	n := NewNovel("  Night Train ")
	if n.Name != "Night Train" || n.Start != DefaultStart {
		t.Fatalf("NewNovel = %+v", n)
	}
	n.Start = " "
	if got := n.StartScript(); got != DefaultStart {
		t.Fatalf("StartScript = %q, want %q", got, DefaultStart)
	}
}

func TestNovelJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(Novel{Name: "N", Start: "intro", Panels: []string{"bg"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"name":"N"`, `"start":"intro"`, `"panels":["bg"]`} {
		if !strings.Contains(s, want) {
			t.Fatalf("manifest %s lacks %s", s, want)
		}
	}
	if strings.Contains(s, `"assets"`) {
		t.Fatalf("empty assets should be omitted: %s", s)
	}
}
