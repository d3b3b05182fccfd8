/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
	"testing"
)

func TestParseLineDialogueWithInlineCommands(t *testing.T) {
	l, errs := ParseLine(3, `Alice as Mary [0:happy, 1:blush] "Hello [wait 1] there [&setlayermedia -p bg -m 'sun set'] friend"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if l.LineNo != 3 || l.Speaker == nil || l.Speaker.Name != "Alice as Mary" {
		t.Fatalf("unexpected speaker: %+v", l.Speaker)
	}
	if len(l.Speaker.Expressions) != 2 || l.Speaker.Expressions[1] != (Expression{Layer: 1, Name: "blush"}) {
		t.Fatalf("unexpected expressions: %+v", l.Speaker.Expressions)
	}
	if len(l.Segments) != 5 {
		t.Fatalf("expected 5 segments, got %d: %+v", len(l.Segments), l.Segments)
	}
	kinds := []SegmentKind{SegmentText, SegmentCommand, SegmentText, SegmentCommand, SegmentText}
	for i, k := range kinds {
		if l.Segments[i].Kind != k {
			t.Fatalf("segment %d kind = %v, want %v", i, l.Segments[i].Kind, k)
		}
	}
	wait := l.Segments[1].Command
	if wait.Name != "wait" || !wait.Blocking || len(wait.Args) != 1 || wait.Args[0] != "1" {
		t.Fatalf("unexpected wait command: %+v", wait)
	}
	set := l.Segments[3].Command
	if set.Name != "setlayermedia" || set.Blocking {
		t.Fatalf("& should mark the command non-blocking: %+v", set)
	}
	if got := set.Args[len(set.Args)-1]; got != "sun set" {
		t.Fatalf("quoted argument = %q", got)
	}
	if l.Dialogue() != "Hello  there  friend" {
		t.Fatalf("unexpected dialogue: %q", l.Dialogue())
	}
	if !l.HasDialogue() || len(l.Commands()) != 2 {
		t.Fatalf("HasDialogue/Commands mismatch")
	}
}

func TestParseLineCommandOnly(t *testing.T) {
	l, errs := ParseLine(1, `[setlayermedia -p bg -l 0 -m "sunset beach" -i] [wait 0.5]`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if l.Speaker != nil || l.HasDialogue() {
		t.Fatalf("command-only line should have no speaker or dialogue: %+v", l)
	}
	cmds := l.Commands()
	if len(cmds) != 2 || cmds[0].Name != "setlayermedia" || cmds[1].Name != "wait" {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
	want := []string{"-p", "bg", "-l", "0", "-m", "sunset beach", "-i"}
	if strings.Join(cmds[0].Args, "|") != strings.Join(want, "|") {
		t.Fatalf("args = %q", cmds[0].Args)
	}
	if cmds[0].Column != 1 {
		t.Fatalf("column = %d, want 1", cmds[0].Column)
	}
}

func TestParseLineNarrationAndComments(t *testing.T) {
	if l, _ := ParseLine(1, "   // stage note"); !l.Empty() {
		t.Fatalf("comment should be empty: %+v", l)
	}
	if l, _ := ParseLine(2, "   "); !l.Empty() {
		t.Fatalf("blank should be empty")
	}
	l, errs := ParseLine(3, "The rain keeps falling.")
	if len(errs) != 0 || l.Speaker != nil || l.Dialogue() != "The rain keeps falling." {
		t.Fatalf("narration = %+v, %v", l, errs)
	}
	q, _ := ParseLine(4, `"No one answers."`)
	if q.Speaker != nil || q.Dialogue() != "No one answers." {
		t.Fatalf("quoted narration = %+v", q)
	}
}

func TestParseLineEscapes(t *testing.T) {
	l, errs := ParseLine(1, `Bob "He said \"hi\" and \[waved\]"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if got := l.Dialogue(); got != `He said "hi" and [waved]` {
		t.Fatalf("dialogue = %q", got)
	}
	if len(l.Commands()) != 0 {
		t.Fatalf("escaped brackets must not become commands")
	}
}

func TestParseLineErrors(t *testing.T) {
	cases := map[string]string{
		`Alice "Hello`:             "unterminated dialogue",
		`Alice "Hi [wait 1"`:       "unterminated command",
		`[]`:                       "empty command",
		`[wait "1]`:                "unterminated",
		`Alice "Hi" trailing`:      "unexpected text after dialogue",
		`Alice [x:happy] "Hi"`:     "invalid expression",
		`[0:happy] "Hi"`:           "without a speaker name",
		`Alice [0:happy "Hi"`:      "unterminated",
		`Alice [0:happy] oops "x"`: "unexpected text after speaker",
	}
	for src, want := range cases {
		_, errs := ParseLine(7, src)
		if len(errs) == 0 {
			t.Fatalf("%q: expected an error containing %q", src, want)
		}
		found := false
		for _, e := range errs {
			if e.Line != 7 {
				t.Fatalf("%q: error line = %d", src, e.Line)
			}
			if strings.Contains(e.Message, want) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%q: errors %+v do not mention %q", src, errs, want)
		}
	}
}

func TestParseScriptSkipsEmptyLines(t *testing.T) {
	input := "// intro\nAlice \"Hello\"\n\n[setlayermedia -p bg -m sunset -i]\r\nAlice \"Goodbye\"\n"
	lines, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].LineNo != 2 || lines[1].LineNo != 4 || lines[2].LineNo != 5 {
		t.Fatalf("line numbers = %d %d %d", lines[0].LineNo, lines[1].LineNo, lines[2].LineNo)
	}
}

func TestLoadConversation(t *testing.T) {
	c := Load("intro", "a\r\nb\n")
	if c.Name != "intro" || c.Len() != 2 || c.Lines[1] != "b" {
		t.Fatalf("Load = %+v", c)
	}
	if Load("x", "").Len() != 0 {
		t.Fatalf("empty text should give an empty conversation")
	}
	src := []string{"x"}
	n := NewConversation(src)
	src[0] = "changed"
	if n.Lines[0] != "x" {
		t.Fatalf("NewConversation must copy its input")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cmd, err := ParseCommand(`&setsprite Alice -s "big smile"`)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if cmd.Blocking || cmd.Name != "setsprite" || cmd.Args[2] != "big smile" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if got := cmd.String(); got != `[&setsprite Alice -s 'big smile']` {
		t.Fatalf("String() = %q", got)
	}
	if _, err := ParseCommand("   "); err == nil {
		t.Fatalf("blank command should fail")
	}
}
