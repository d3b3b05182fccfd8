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
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/Shopify/go-lua"

	"gonovel/internal/script"
	"gonovel/internal/transition"
)

const luaRegistryPrefix = "gonovel.command."

// Lua registers commands written in Lua. A script calls
//
//	register("name", function(args) ... end)
//
// and the function receives the raw argument tokens as a table. Inside a command,
// dispatch("name", ...) runs another registered command; the Lua command finishes
// when everything it dispatched has finished. log(msg) writes to the engine log.
type Lua struct {
	state   *lua.State
	log     *slog.Logger
	reg     *Registry
	env     *Env
	pending []*transition.Handle
	sources []luaSource
}

type luaSource struct {
	name string
	code string // empty for files
}

// NewLua creates the extension with the .lua files of dir. A missing directory
// simply contributes no commands.
func NewLua(dir string, logger *slog.Logger) *Lua {
	if logger == nil {
		logger = slog.Default()
	}
	x := &Lua{log: logger}
	if dir != "" {
		files, _ := filepath.Glob(filepath.Join(dir, "*.lua"))
		sort.Strings(files)
		for _, f := range files {
			x.sources = append(x.sources, luaSource{name: f})
		}
	}
	return x
}

// AddSource queues an inline script, loaded by Extend after the files.
func (x *Lua) AddSource(name, code string) {
	x.sources = append(x.sources, luaSource{name: name, code: code})
}

// Extend runs every script. A script that fails to load is logged and skipped.
func (x *Lua) Extend(r *Registry) {
	x.reg = r
	x.state = lua.NewState()
	lua.OpenLibraries(x.state)
	x.state.Register("register", x.luaRegister)
	x.state.Register("dispatch", x.luaDispatch)
	x.state.Register("log", x.luaLog)
	for _, src := range x.sources {
		if err := x.load(src); err != nil {
			x.log.Warn("lua commands not loaded", "script", src.name, "err", err)
		}
	}
}

func (x *Lua) load(src luaSource) error {
	top := x.state.Top()
	defer x.state.SetTop(top)
	var err error
	if src.code != "" {
		err = lua.LoadBuffer(x.state, src.code, src.name, "")
	} else {
		err = lua.LoadFile(x.state, src.name, "")
	}
	if err != nil {
		return fmt.Errorf("load lua: %w", err)
	}
	if err := x.state.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("run lua: %w", err)
	}
	return nil
}

func (x *Lua) luaRegister(l *lua.State) int {
	name := lua.CheckString(l, 1)
	lua.CheckType(l, 2, lua.TypeFunction)
	l.PushValue(2)
	l.SetField(lua.RegistryIndex, luaRegistryPrefix+name)
	x.reg.Register(name, x.handler(name))
	x.log.Debug("registered lua command", "command", name)
	return 0
}

func (x *Lua) handler(name string) Handler {
	return func(env *Env, args []string) (*transition.Handle, error) {
		prevEnv, prevPending := x.env, x.pending
		x.env, x.pending = env, nil
		defer func() { x.env, x.pending = prevEnv, prevPending }()

		l := x.state
		top := l.Top()
		defer l.SetTop(top)
		l.Field(lua.RegistryIndex, luaRegistryPrefix+name)
		l.NewTable()
		for i, a := range args {
			l.PushString(a)
			l.RawSetInt(-2, i+1)
		}
		if err := l.ProtectedCall(1, 0, 0); err != nil {
			return nil, fmt.Errorf("lua command %s: %w", name, err)
		}
		return env.Scheduler.All(x.pending...), nil
	}
}

func (x *Lua) luaDispatch(l *lua.State) int {
	if x.env == nil || x.env.Dispatcher == nil {
		lua.Errorf(l, "dispatch is only available while a command runs")
		return 0
	}
	cmd := script.Command{Name: lua.CheckString(l, 1), Args: []string{}, Blocking: true}
	for i := 2; i <= l.Top(); i++ {
		cmd.Args = append(cmd.Args, lua.CheckString(l, i))
	}
	h, err := x.env.Dispatcher.Run(cmd)
	if err != nil {
		x.log.Warn("lua dispatch failed", "command", cmd.Name, "err", err)
	}
	x.pending = append(x.pending, h)
	l.PushBoolean(err == nil)
	return 1
}

func (x *Lua) luaLog(l *lua.State) int {
	x.log.Info(lua.CheckString(l, 1), "source", "lua")
	return 0
}
