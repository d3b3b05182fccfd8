/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var reExpression = regexp.MustCompile(`^(\d+)\s*:\s*(.+)$`)

// Parse parses a whole script into its non-empty lines.
// Supported syntax:
// - Dialogue: Speaker [layer:expr, ...] "text with [command args] inline"
//   - The speaker part is optional; "Alice as Mary" casts Alice with Mary's assets.
//   - Expressions without a layer apply to layer 0.
//
// - Commands: [name arg0 -alias value ...]; [&name ...] does not block the line.
//   - Arguments may be quoted with ' or ".
//
// - Narration: any line without quotes; bracketed commands are still recognised.
// - Comments: lines starting with "//" are ignored.
// A backslash escapes the next character (\[, \", \\).
func Parse(input string) ([]Line, []Error) {
	conv := Load("", input)
	var lines []Line
	var errs []Error
	for i, src := range conv.Lines {
		l, e := ParseLine(i+1, src)
		errs = append(errs, e...)
		if !l.Empty() {
			lines = append(lines, l)
		}
	}
	return lines, errs
}

// ParseLine splits one script line into its speaker and ordered segments. Problems
// are reported with positions; whatever could be parsed is still returned.
func ParseLine(lineNo int, src string) (Line, []Error) {
	line := Line{LineNo: lineNo, Source: src}
	trimmed := strings.TrimSpace(src)
	if trimmed == "" || strings.HasPrefix(trimmed, "//") {
		return line, nil
	}
	rs := []rune(src)
	var errs []Error
	errorf := func(col int, msg string) {
		errs = append(errs, Error{Line: lineNo, Column: col, Message: msg})
	}

	// Dialogue quotes are the first and last '"' outside brackets.
	open, end := -1, -1
	depth := 0
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '"':
			if depth == 0 {
				if open < 0 {
					open = i
				} else {
					end = i
				}
			}
		}
	}

	if open < 0 {
		line.Segments = splitSegments(rs, 0, len(rs), true, errorf)
		return line, errs
	}
	if end < 0 {
		errorf(open+1, "unterminated dialogue")
		end = len(rs)
	}
	line.Speaker = parseSpeaker(rs[:open], errorf)
	line.Segments = splitSegments(rs, open+1, end, true, errorf)
	if end+1 < len(rs) {
		line.Segments = append(line.Segments, splitSegments(rs, end+1, len(rs), false, errorf)...)
	}
	return line, errs
}

func parseSpeaker(rs []rune, errorf func(int, string)) *Speaker {
	s := string(rs)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	sp := &Speaker{Name: strings.TrimSpace(s)}
	i := strings.IndexRune(s, '[')
	if i < 0 {
		return sp
	}
	col := len([]rune(s[:i])) + 1
	sp.Name = strings.TrimSpace(s[:i])
	j := strings.IndexRune(s[i:], ']')
	if j < 0 {
		errorf(col, "unterminated speaker expressions")
		j = len(s) - i
	} else if rest := strings.TrimSpace(s[i+j+1:]); rest != "" {
		errorf(col, "unexpected text after speaker expressions: "+rest)
	}
	for _, part := range strings.Split(s[i+1:i+j], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := reExpression.FindStringSubmatch(part); m != nil {
			layer, err := strconv.Atoi(m[1])
			if err != nil {
				errorf(col, "invalid expression layer: "+m[1])
				continue
			}
			sp.Expressions = append(sp.Expressions, Expression{Layer: layer, Name: strings.TrimSpace(m[2])})
			continue
		}
		if strings.Contains(part, ":") {
			errorf(col, "invalid expression: "+part)
			continue
		}
		sp.Expressions = append(sp.Expressions, Expression{Name: part})
	}
	if sp.Name == "" {
		errorf(1, "speaker expressions without a speaker name")
		return nil
	}
	return sp
}

// splitSegments scans rs[from:to] into text and command segments.
func splitSegments(rs []rune, from, to int, allowText bool, errorf func(int, string)) []Segment {
	var segs []Segment
	var text strings.Builder
	textCol := from + 1
	flush := func() {
		if strings.TrimSpace(text.String()) != "" {
			if allowText {
				segs = append(segs, Segment{Kind: SegmentText, Text: text.String()})
			} else {
				errorf(textCol, "unexpected text after dialogue: "+strings.TrimSpace(text.String()))
			}
		}
		text.Reset()
	}
	for i := from; i < to; i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < to:
			if text.Len() == 0 {
				textCol = i + 1
			}
			text.WriteRune(rs[i+1])
			i++
		case r == '[':
			closing := matchBracket(rs, i+1, to)
			if closing < 0 {
				errorf(i+1, "unterminated command")
				text.WriteString(string(rs[i:to]))
				i = to
				continue
			}
			flush()
			cmd, msg := parseCommand(string(rs[i+1 : closing]))
			if msg != "" {
				errorf(i+1, msg)
			} else {
				cmd.Column = i + 1
				segs = append(segs, Segment{Kind: SegmentCommand, Command: cmd})
			}
			i = closing
			textCol = closing + 2
		default:
			if text.Len() == 0 {
				textCol = i + 1
			}
			text.WriteRune(r)
		}
	}
	flush()
	return segs
}

// matchBracket returns the index of the ']' closing a command, skipping quoted arguments.
func matchBracket(rs []rune, from, to int) int {
	var quote rune
	for i := from; i < to; i++ {
		r := rs[i]
		switch {
		case r == '\\':
			i++
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ']':
			return i
		}
	}
	return -1
}

// ParseCommand parses the inside of a command bracket: "name arg0 -alias value".
func ParseCommand(s string) (Command, error) {
	cmd, msg := parseCommand(s)
	if msg != "" {
		return Command{}, Error{Line: 0, Column: 1, Message: msg}
	}
	return cmd, nil
}

func parseCommand(s string) (Command, string) {
	tokens, ok := tokenize(s)
	if !ok {
		return Command{}, "unterminated quote in command"
	}
	if len(tokens) == 0 {
		return Command{}, "empty command"
	}
	cmd := Command{Name: tokens[0], Args: tokens[1:], Blocking: true}
	if strings.HasPrefix(cmd.Name, "&") {
		cmd.Name = strings.TrimPrefix(cmd.Name, "&")
		cmd.Blocking = false
	}
	if cmd.Name == "" {
		return Command{}, "empty command"
	}
	return cmd, ""
}

// tokenize splits on white space; quotes group, backslash escapes.
func tokenize(s string) ([]string, bool) {
	tokens := []string{}
	var cur strings.Builder
	inToken := false
	var quote rune
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs):
			cur.WriteRune(rs[i+1])
			inToken = true
			i++
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, false
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, true
}
