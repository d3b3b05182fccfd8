/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package command maps script command names to handlers and runs them.
//
// Handlers are registered at startup by extensions, each owning its own set of
// names. A handler turns raw argument tokens into an asynchronous operation on the
// scene; failures are local and leave the conversation running.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"gonovel/internal/asset"
	"gonovel/internal/character"
	"gonovel/internal/graphic"
	"gonovel/internal/params"
	"gonovel/internal/script"
	"gonovel/internal/transition"
)

var (
	// ErrUnknownCommand indicates a name with no registered handler.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidParameter indicates an argument that could not be parsed or is missing.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidTarget indicates a panel, layer or character that does not exist.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrMediaNotFound indicates media that no store could resolve.
	ErrMediaNotFound = graphic.ErrMediaNotFound
)

// Handler runs one command. The returned handle must not be nil when err is nil.
type Handler func(env *Env, args []string) (*transition.Handle, error)

// Extension registers a group of commands.
type Extension interface {
	Extend(r *Registry)
}

// Env is what handlers operate on.
type Env struct {
	Characters *character.Manager
	Panels     *graphic.Manager
	Scheduler  *transition.Scheduler
	Store      asset.Store
	Log        *slog.Logger
	// Dispatcher lets handlers run other commands. Set by NewDispatcher.
	Dispatcher *Dispatcher
}

// Registry holds the handlers by exact, case-sensitive name.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates a registry and applies exts in order.
func NewRegistry(exts ...Extension) *Registry {
	r := &Registry{handlers: map[string]Handler{}}
	for _, e := range exts {
		e.Extend(r)
	}
	return r
}

// Register adds h under name. An existing registration is replaced.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Dispatcher resolves commands against a registry and runs them in an Env.
type Dispatcher struct {
	reg *Registry
	env *Env
	log *slog.Logger
}

func NewDispatcher(reg *Registry, env *Env) *Dispatcher {
	if env.Log == nil {
		env.Log = slog.Default()
	}
	d := &Dispatcher{reg: reg, env: env, log: env.Log}
	env.Dispatcher = d
	return d
}

// Registry returns the registry commands are looked up in.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Run executes cmd. The handle is never nil; when err is set it is already complete.
func (d *Dispatcher) Run(cmd script.Command) (*transition.Handle, error) {
	h, ok := d.reg.Lookup(cmd.Name)
	if !ok {
		return transition.Completed(), fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	args := cmd.Args
	if args == nil {
		args = []string{}
	}
	op, err := h(d.env, args)
	if err != nil {
		return transition.Completed(), fmt.Errorf("%s: %w", cmd.Name, classify(err))
	}
	if op == nil {
		op = transition.Completed()
	}
	return op, nil
}

// Dispatch runs cmd and logs a failure instead of returning it.
func (d *Dispatcher) Dispatch(cmd script.Command) *transition.Handle {
	h, err := d.Run(cmd)
	if err != nil {
		d.log.Warn("command failed", "command", cmd.Name, "err", err)
	}
	return h
}

// classify maps runtime lookup failures onto the command error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrMediaNotFound), errors.Is(err, ErrUnknownCommand):
		return err
	case errors.Is(err, graphic.ErrPanelNotFound), errors.Is(err, graphic.ErrLayerNotFound),
		errors.Is(err, graphic.ErrInvalidLayerIndex), errors.Is(err, character.ErrLayerNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	case errors.Is(err, character.ErrSpriteNotFound), errors.Is(err, asset.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrMediaNotFound, err)
	}
	return err
}

// parse applies schema to args; conversion problems become ErrInvalidParameter.
// An immediate operation never reads its speed, so a bad -spd is ignored then.
func parse(args []string, schema params.Schema) (params.Values, error) {
	v, errs := params.Parse(args, schema)
	if v.Bool("-i") {
		errs = errs.Without(schema, "-spd")
	}
	if err := errs.Err(); err != nil {
		return v, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return v, nil
}
