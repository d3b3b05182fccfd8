/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine wires the runtimes of a novel into one tick-driven context.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"gonovel/internal/asset"
	"gonovel/internal/character"
	"gonovel/internal/command"
	"gonovel/internal/config"
	"gonovel/internal/dialogue"
	"gonovel/internal/graphic"
	applog "gonovel/internal/log"
	"gonovel/internal/render"
	"gonovel/internal/script"
	"gonovel/internal/transition"
)

// ErrCancelled is returned by Run when the conversation was replaced or stopped.
var ErrCancelled = errors.New("conversation cancelled")

// Options configure an Engine. Zero fields get in-memory or no-op defaults.
type Options struct {
	Config     config.EngineConfig
	Store      asset.Store
	Characters character.ConfigSource
	Sink       render.Sink
	Logger     *slog.Logger
	// Extensions add commands after the built-in sets, so they may override them.
	Extensions []command.Extension
}

// Engine owns the scheduler and every runtime that writes to the sink. It is not
// safe for concurrent use; the host calls it from one goroutine.
type Engine struct {
	Scheduler  *transition.Scheduler
	Store      asset.Store
	Characters *character.Manager
	Panels     *graphic.Manager
	Registry   *command.Registry
	Dispatcher *command.Dispatcher
	Dialogue   *dialogue.System

	cfg config.EngineConfig
	log *slog.Logger
}

func New(opts Options) *Engine {
	cfg := opts.Config
	if len(cfg.Panels) == 0 {
		cfg.Panels = graphic.DefaultPanels
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = config.Defaults().Engine.TickRate
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.WithComponent("engine")
	}
	store := opts.Store
	if store == nil {
		store = asset.NewMemStore()
	}
	configs := opts.Characters
	if configs == nil {
		configs = character.NewConfigDB()
	}
	sink := opts.Sink
	if sink == nil {
		sink = render.Discard
	}

	e := &Engine{Scheduler: transition.NewScheduler(), Store: store, cfg: cfg, log: logger}
	ctl := transition.NewController(e.Scheduler)
	e.Characters = character.NewManager(store, configs, ctl, sink, logger.With(slog.String("runtime", "character")))
	e.Panels = graphic.NewManager(store, ctl, sink, logger.With(slog.String("runtime", "graphic")), cfg.Panels...)

	exts := []command.Extension{command.GraphicPanels{}, command.Characters{}, command.General{}}
	e.Registry = command.NewRegistry(append(exts, opts.Extensions...)...)
	e.Dispatcher = command.NewDispatcher(e.Registry, &command.Env{
		Characters: e.Characters,
		Panels:     e.Panels,
		Scheduler:  e.Scheduler,
		Store:      store,
		Log:        logger.With(slog.String("runtime", "command")),
	})
	e.Dialogue = dialogue.NewSystem(e.Scheduler, e.Dispatcher, e.Characters, sink,
		logger.With(slog.String("runtime", "dialogue")), dialogue.Options{
			CharactersPerSecond: cfg.CharactersPerSecond,
			TextSpeed:           cfg.TextSpeed,
			AutoAdvance:         cfg.AutoAdvance,
			AutoBase:            cfg.AutoDelaySeconds,
			AutoPerChar:         cfg.AutoPerCharSeconds,
		})
	logger.Debug("engine ready", "panels", len(cfg.Panels), "commands", len(e.Registry.Names()))
	return e
}

// TickInterval is the frame duration in seconds.
func (e *Engine) TickInterval() float64 { return 1 / float64(e.cfg.TickRate) }

// Tick advances every running task by dt seconds.
func (e *Engine) Tick(dt float64) { e.Scheduler.Tick(dt) }

// Advance is the reader's "next" input.
func (e *Engine) Advance() { e.Dialogue.OnUserPromptNext() }

// Play starts conv, replacing the running conversation.
func (e *Engine) Play(conv script.Conversation) *transition.Handle {
	return e.Dialogue.Play(conv)
}

// Run plays conv headless at the configured tick rate, advancing every finished
// line itself unless the auto reader is on. It returns when the conversation ends.
func (e *Engine) Run(ctx context.Context, conv script.Conversation) error {
	h := e.Play(conv)
	dt := e.TickInterval()
	conversation := e.Dialogue.Conversation
	for !h.Done() {
		if err := ctx.Err(); err != nil {
			conversation.Stop()
			return err
		}
		e.Tick(dt)
		if conversation.State() == dialogue.WaitingForAdvance && !conversation.AutoReader().On {
			conversation.OnSystemPromptNext()
		}
	}
	if h.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Close stops the conversation, cancels every task and forgets all entities.
func (e *Engine) Close() {
	e.Dialogue.Conversation.Stop()
	e.Scheduler.Clear()
	e.Characters.Reset()
	e.Panels.Reset()
}
