/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package params turns the raw argument tokens of a command into named, typed values.
//
// A command declares a Schema: a list of alias groups (e.g. "-p" and "-panel") with
// an expected kind and a default. Parse walks the tokens once and never fails as a
// whole; conversion problems come back as a list of Errors while the affected
// parameter keeps its default.
package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the declared type of a parameter value.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "string"
	}
}

// Decl declares one parameter recognised by any of its aliases.
type Decl struct {
	Aliases []string
	Kind    Kind
	Default any
}

// Schema is the full set of parameters a command understands.
type Schema []Decl

// Error reports a token that could not be converted to its declared kind.
type Error struct {
	Name  string
	Value string
	Kind  Kind
}

func (e Error) Error() string {
	return fmt.Sprintf("parameter %s: cannot parse %q as %s", e.Name, e.Value, e.Kind)
}

// Errors is the structured error list returned by Parse.
type Errors []Error

// Err joins the list into a single error, or nil when empty.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Without returns the errors that do not belong to the group of alias in s.
func (es Errors) Without(s Schema, alias string) Errors {
	idx := s.index(alias)
	if idx < 0 {
		return es
	}
	var out Errors
	for _, e := range es {
		if s.index(e.Name) != idx {
			out = append(out, e)
		}
	}
	return out
}

// Values holds parsed parameters keyed by alias group.
type Values struct {
	schema  Schema
	values  []any
	present []bool
	// Positional are the leading tokens that precede the first parameter name.
	Positional []string
}

// IsName reports whether a token names a parameter rather than carrying a value.
// Negative numbers such as "-1" or "-0.5" are values.
func IsName(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	return !isNumber(tok[1:])
}

// isNumber accepts decimal numbers only; ParseFloat alone would also take
// "inf", "nan" and hex floats.
func isNumber(s string) bool {
	if s == "" || (s[0] != '.' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && !strings.ContainsRune(".eE+-", r)
	}) >= 0 {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Parse converts tokens according to schema. Unknown names are ignored.
func Parse(tokens []string, schema Schema) (Values, Errors) {
	v := Values{
		schema:  schema,
		values:  make([]any, len(schema)),
		present: make([]bool, len(schema)),
	}
	for i, d := range schema {
		v.values[i] = zeroOr(d.Kind, d.Default)
	}

	var errs Errors
	i := 0
	for i < len(tokens) && !IsName(tokens[i]) {
		v.Positional = append(v.Positional, tokens[i])
		i++
	}
	for i < len(tokens) {
		name := tokens[i]
		i++
		if !IsName(name) {
			continue
		}
		raw, hasValue := "", false
		if i < len(tokens) && !IsName(tokens[i]) {
			raw, hasValue = tokens[i], true
			i++
		}
		idx := schema.index(name)
		if idx < 0 {
			continue
		}
		d := schema[idx]
		val, err := convert(d.Kind, raw, hasValue)
		if err != nil {
			errs = append(errs, Error{Name: name, Value: raw, Kind: d.Kind})
			continue
		}
		v.values[idx] = val
		v.present[idx] = true
	}
	return v, errs
}

func (s Schema) index(alias string) int {
	for i, d := range s {
		for _, a := range d.Aliases {
			if strings.EqualFold(a, alias) {
				return i
			}
		}
	}
	return -1
}

func convert(k Kind, raw string, hasValue bool) (any, error) {
	switch k {
	case Bool:
		if !hasValue {
			return true, nil
		}
		return strconv.ParseBool(raw)
	case Int:
		return strconv.Atoi(raw)
	case Float:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func zeroOr(k Kind, def any) any {
	if def != nil {
		return def
	}
	switch k {
	case Int:
		return 0
	case Float:
		return 0.0
	case Bool:
		return false
	default:
		return ""
	}
}

// Has reports whether the group containing alias was given explicitly.
func (v Values) Has(alias string) bool {
	idx := v.schema.index(alias)
	return idx >= 0 && v.present[idx]
}

func (v Values) get(alias string) any {
	idx := v.schema.index(alias)
	if idx < 0 {
		return nil
	}
	return v.values[idx]
}

// String returns the value of the group containing alias, or "" if undeclared.
func (v Values) String(alias string) string {
	s, _ := v.get(alias).(string)
	return s
}

// Int returns the value of the group containing alias, or 0 if undeclared.
func (v Values) Int(alias string) int {
	switch n := v.get(alias).(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// Float returns the value of the group containing alias, or 0 if undeclared.
func (v Values) Float(alias string) float64 {
	switch n := v.get(alias).(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// Bool returns the value of the group containing alias, or false if undeclared.
func (v Values) Bool(alias string) bool {
	b, _ := v.get(alias).(bool)
	return b
}
