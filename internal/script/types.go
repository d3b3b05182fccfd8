/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"
)

// Conversation is an ordered list of raw script lines. Line numbers are 1-based
// positions in Lines; blank and comment lines are kept so numbers match the file.
type Conversation struct {
	Name  string
	Lines []string
}

// NewConversation copies lines into a conversation.
func NewConversation(lines []string) Conversation {
	return Conversation{Lines: append([]string(nil), lines...)}
}

// Load splits script text into a conversation.
func Load(name, text string) Conversation {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return Conversation{Name: name}
	}
	return Conversation{Name: name, Lines: strings.Split(text, "\n")}
}

// Len returns the number of lines.
func (c Conversation) Len() int { return len(c.Lines) }

// SegmentKind tells text and command segments apart.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCommand
)

// Command is one bracketed invocation: [name arg0 -alias value].
// A leading '&' on the name ([&name ...]) makes it non-blocking.
type Command struct {
	Name     string
	Args     []string
	Blocking bool
	Column   int // 1-based column of the opening bracket, 0 when built in code
}

// String renders the command back to script syntax.
func (c Command) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if !c.Blocking {
		b.WriteByte('&')
	}
	b.WriteString(c.Name)
	for _, a := range c.Args {
		b.WriteByte(' ')
		if a == "" || strings.ContainsAny(a, " \t\"") {
			b.WriteByte('\'')
			b.WriteString(a)
			b.WriteByte('\'')
		} else {
			b.WriteString(a)
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Segment is a run of dialogue text or a command, in order of appearance.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Command Command
}

// Expression is a casting expression sent to the speaker: "0:happy".
type Expression struct {
	Layer int
	Name  string
}

// Speaker designates who says a line. Name keeps the casting syntax ("Alice as Mary").
type Speaker struct {
	Name        string
	Expressions []Expression
}

// Line is a parsed script line.
type Line struct {
	LineNo   int // 1-based
	Source   string
	Speaker  *Speaker
	Segments []Segment
}

// Empty reports whether the line does nothing (blank or comment).
func (l Line) Empty() bool { return l.Speaker == nil && len(l.Segments) == 0 }

// HasDialogue reports whether the line reveals any text.
func (l Line) HasDialogue() bool {
	for _, s := range l.Segments {
		if s.Kind == SegmentText {
			return true
		}
	}
	return false
}

// Dialogue joins the text segments.
func (l Line) Dialogue() string {
	var b strings.Builder
	for _, s := range l.Segments {
		if s.Kind == SegmentText {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Commands returns the command segments in order.
func (l Line) Commands() []Command {
	var out []Command
	for _, s := range l.Segments {
		if s.Kind == SegmentCommand {
			out = append(out, s.Command)
		}
	}
	return out
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}
