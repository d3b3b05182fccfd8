/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package params

import (
	"errors"
	"testing"
)

var layerSchema = Schema{
	{Aliases: []string{"-p", "-panel"}, Kind: String},
	{Aliases: []string{"-l", "-layer"}, Kind: Int, Default: 0},
	{Aliases: []string{"-spd", "-speed"}, Kind: Float, Default: 1.0},
	{Aliases: []string{"-i", "-immediate"}, Kind: Bool, Default: false},
}

func TestParseAliasesAndTypes(t *testing.T) {
	v, errs := Parse([]string{"-panel", "bg", "-l", "2", "-spd", "0.5", "-i"}, layerSchema)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := v.String("-p"); got != "bg" {
		t.Fatalf("panel = %q, want bg", got)
	}
	if got := v.Int("-layer"); got != 2 {
		t.Fatalf("layer = %d, want 2", got)
	}
	if got := v.Float("-speed"); got != 0.5 {
		t.Fatalf("speed = %v, want 0.5", got)
	}
	if !v.Bool("-immediate") {
		t.Fatalf("bare -i flag should be true")
	}
}

func TestMissingParametersUseDefaults(t *testing.T) {
	v, errs := Parse(nil, layerSchema)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if v.Int("-l") != 0 || v.Float("-spd") != 1 || v.Bool("-i") || v.String("-p") != "" {
		t.Fatalf("defaults not applied: %+v", v)
	}
	if v.Has("-l") {
		t.Fatalf("Has(-l) should be false when absent")
	}
}

func TestNegativeNumbersAreValues(t *testing.T) {
	v, errs := Parse([]string{"-p", "bg", "-l", "-1"}, layerSchema)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := v.Int("-l"); got != -1 {
		t.Fatalf("layer = %d, want -1", got)
	}
	if !v.Has("-layer") {
		t.Fatalf("Has should see the explicit layer")
	}
}

func TestConversionFailureIsReportedNotDefaulted(t *testing.T) {
	v, errs := Parse([]string{"-l", "top", "-i", "maybe"}, layerSchema)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Name != "-l" || errs[0].Value != "top" || errs[0].Kind != Int {
		t.Fatalf("first error = %+v", errs[0])
	}
	if v.Int("-l") != 0 {
		t.Fatalf("failed parameter should keep its default")
	}
	var pe Error
	if err := errs.Err(); !errors.As(err, &pe) {
		t.Fatalf("joined error should unwrap to params.Error, got %v", err)
	}
}

func TestUnknownTokensAreIgnoredAndPositionalsKept(t *testing.T) {
	v, errs := Parse([]string{"Alice", "Bob", "-future", "x", "-p", "fg", "stray"}, layerSchema)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(v.Positional) != 2 || v.Positional[0] != "Alice" || v.Positional[1] != "Bob" {
		t.Fatalf("positional = %v", v.Positional)
	}
	if v.String("-panel") != "fg" {
		t.Fatalf("panel after unknown alias = %q", v.String("-panel"))
	}
}

func TestLookupOfUndeclaredAlias(t *testing.T) {
	v, _ := Parse([]string{"-p", "bg"}, layerSchema)
	if v.String("-media") != "" || v.Int("-media") != 0 || v.Bool("-media") {
		t.Fatalf("undeclared alias should read as zero value")
	}
}

func TestIsName(t *testing.T) {
	cases := map[string]bool{
		"-p": true, "-panel": true, "-1": false, "-0.25": false, "-.5": false, "-1e3": false,
		"-inf": true, "-infinity": true, "-nan": true, "-0x1p3": true, "-Inf": true,
		"p": false, "-": false, "": false,
	}
	for tok, want := range cases {
		if got := IsName(tok); got != want {
			t.Errorf("IsName(%q) = %v, want %v", tok, got, want)
		}
	}
}

func TestNameLikeFloatTokensAreNames(t *testing.T) {
	schema := Schema{
		{Aliases: []string{"-inf", "-infinite"}, Kind: Bool},
		{Aliases: []string{"-nan"}, Kind: String, Default: "x"},
	}
	v, errs := Parse([]string{"-inf", "-nan", "grandma"}, schema)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if !v.Bool("-infinite") || v.String("-nan") != "grandma" {
		t.Fatalf("inf=%v nan=%q", v.Bool("-inf"), v.String("-nan"))
	}
}

func TestErrorsWithout(t *testing.T) {
	_, errs := Parse([]string{"-l", "two", "-speed", "fast"}, layerSchema)
	if len(errs) != 2 {
		t.Fatalf("errs = %v", errs)
	}
	rest := errs.Without(layerSchema, "-spd")
	if len(rest) != 1 || rest[0].Name != "-l" {
		t.Fatalf("Without = %v", rest)
	}
	if got := errs.Without(layerSchema, "-undeclared"); len(got) != 2 {
		t.Fatalf("undeclared alias should keep every error, got %v", got)
	}
}
