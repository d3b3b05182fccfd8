/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package command

import (
	"fmt"
	"strings"

	"gonovel/internal/character"
	"gonovel/internal/params"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

var (
	paramEnabled = []string{"-e", "-enabled"}
	paramColor   = []string{"-c", "-color"}
	paramSprite  = []string{"-s", "-sprite"}
)

var (
	createCharacterSchema = params.Schema{
		{Aliases: paramEnabled, Kind: params.Bool},
		{Aliases: paramImmediate, Kind: params.Bool},
	}
	visibilitySchema = params.Schema{
		{Aliases: paramSpeed, Kind: params.Float, Default: 1.0},
		{Aliases: paramImmediate, Kind: params.Bool},
	}
	setColorSchema = params.Schema{
		{Aliases: paramColor, Kind: params.String},
		{Aliases: paramSpeed, Kind: params.Float, Default: 1.0},
		{Aliases: paramImmediate, Kind: params.Bool},
	}
	setSpriteSchema = params.Schema{
		{Aliases: paramSprite, Kind: params.String},
		{Aliases: paramLayer, Kind: params.Int, Default: 0},
		{Aliases: paramSpeed, Kind: params.Float, Default: 1.0},
		{Aliases: paramImmediate, Kind: params.Bool},
	}
)

// Characters registers the character commands.
type Characters struct{}

func (Characters) Extend(r *Registry) {
	r.Register("createcharacter", createCharacter)
	r.Register("show", func(env *Env, args []string) (*transition.Handle, error) {
		return eachCharacter(env, args, visibilitySchema, func(c character.Character, v params.Values) *transition.Handle {
			if v.Bool("-i") {
				c.SetVisible(true)
				return transition.Completed()
			}
			return c.Show(v.Float("-spd"))
		})
	})
	r.Register("hide", func(env *Env, args []string) (*transition.Handle, error) {
		return eachCharacter(env, args, visibilitySchema, func(c character.Character, v params.Values) *transition.Handle {
			if v.Bool("-i") {
				c.SetVisible(false)
				return transition.Completed()
			}
			return c.Hide(v.Float("-spd"))
		})
	})
	r.Register("highlight", func(env *Env, args []string) (*transition.Handle, error) {
		return eachCharacter(env, args, visibilitySchema, func(c character.Character, v params.Values) *transition.Handle {
			return c.Highlight(v.Float("-spd"), v.Bool("-i"))
		})
	})
	r.Register("unhighlight", func(env *Env, args []string) (*transition.Handle, error) {
		return eachCharacter(env, args, visibilitySchema, func(c character.Character, v params.Values) *transition.Handle {
			return c.Unhighlight(v.Float("-spd"), v.Bool("-i"))
		})
	})
	r.Register("setcolor", setColor)
	r.Register("setsprite", setSprite)
}

func characters(env *Env) (*character.Manager, error) {
	if env.Characters == nil {
		return nil, fmt.Errorf("%w: no character manager", ErrInvalidTarget)
	}
	return env.Characters, nil
}

// eachCharacter applies fn to every character named by the positional arguments,
// creating characters on first reference.
func eachCharacter(env *Env, args []string, schema params.Schema, fn func(character.Character, params.Values) *transition.Handle) (*transition.Handle, error) {
	mgr, err := characters(env)
	if err != nil {
		return nil, err
	}
	v, err := parse(args, schema)
	if err != nil {
		return nil, err
	}
	if len(v.Positional) == 0 {
		return nil, fmt.Errorf("%w: at least one character name is required", ErrInvalidParameter)
	}
	hs := make([]*transition.Handle, 0, len(v.Positional))
	for _, name := range v.Positional {
		c, ok := mgr.GetCharacter(name, true)
		if !ok {
			return nil, fmt.Errorf("%w: character %q", ErrInvalidTarget, name)
		}
		hs = append(hs, fn(c, v))
	}
	return env.Scheduler.All(hs...), nil
}

// singleCharacter resolves the one character named by the positional arguments.
// Multi-word names may be quoted or written out ("Alice as Mary").
func singleCharacter(env *Env, v params.Values, create bool) (character.Character, error) {
	mgr, err := characters(env)
	if err != nil {
		return nil, err
	}
	name := strings.Join(v.Positional, " ")
	if name == "" {
		return nil, fmt.Errorf("%w: character name is required", ErrInvalidParameter)
	}
	c, ok := mgr.GetCharacter(name, create)
	if !ok {
		return nil, fmt.Errorf("%w: character %q", ErrInvalidTarget, name)
	}
	return c, nil
}

func createCharacter(env *Env, args []string) (*transition.Handle, error) {
	mgr, err := characters(env)
	if err != nil {
		return nil, err
	}
	v, err := parse(args, createCharacterSchema)
	if err != nil {
		return nil, err
	}
	name := strings.Join(v.Positional, " ")
	if name == "" {
		return nil, fmt.Errorf("%w: character name is required", ErrInvalidParameter)
	}
	c, err := mgr.CreateCharacter(name)
	if err != nil {
		return nil, err
	}
	if !v.Bool("-e") {
		return transition.Completed(), nil
	}
	if v.Bool("-i") {
		c.SetVisible(true)
		return transition.Completed(), nil
	}
	return c.Show(1), nil
}

func setColor(env *Env, args []string) (*transition.Handle, error) {
	v, err := parse(args, setColorSchema)
	if err != nil {
		return nil, err
	}
	if !v.Has("-c") {
		return nil, fmt.Errorf("%w: color (-c) is required", ErrInvalidParameter)
	}
	col, err := render.ParseColor(v.String("-c"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	c, err := singleCharacter(env, v, true)
	if err != nil {
		return nil, err
	}
	if v.Bool("-i") {
		c.SetColor(col)
		return transition.Completed(), nil
	}
	return c.ChangeColor(col, v.Float("-spd")), nil
}

func setSprite(env *Env, args []string) (*transition.Handle, error) {
	v, err := parse(args, setSpriteSchema)
	if err != nil {
		return nil, err
	}
	if v.String("-s") == "" {
		return nil, fmt.Errorf("%w: sprite (-s) is required", ErrInvalidParameter)
	}
	c, err := singleCharacter(env, v, true)
	if err != nil {
		return nil, err
	}
	layered, ok := c.(character.Layered)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no sprite layers", ErrInvalidTarget, c.Identity().DisplayName)
	}
	img, err := layered.Sprite(v.String("-s"))
	if err != nil {
		return nil, err
	}
	if v.Bool("-i") {
		return transition.Completed(), layered.SetMedia(v.Int("-l"), img)
	}
	return layered.TransitionMedia(v.Int("-l"), img, v.Float("-spd"))
}
