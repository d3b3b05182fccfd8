/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transition drives every timed visual change in the engine.
//
// Work is expressed as Tasks that advance one step per Scheduler.Tick. There are no
// goroutines and no locks: the host calls Tick from a single loop, so only one step
// ever runs at a time. Per-entity exclusivity is enforced by Slots (see controller.go).
package transition

import "math"

// Task is advanced once per tick. Step returns true when the task has finished.
type Task interface {
	Step(dt float64) bool
}

// StepFunc adapts a function to Task.
type StepFunc func(dt float64) bool

func (f StepFunc) Step(dt float64) bool { return f(dt) }

type status uint8

const (
	running status = iota
	completed
	cancelled
)

// Handle observes a started task. It is the awaitable result of every asynchronous
// operation in the engine.
type Handle struct {
	st         status
	onComplete []func()
	onCancel   func()
}

// Completed returns a handle that is already finished. Operations that turn into
// no-ops (errors, immediate swaps) return it so callers never deal with nil.
func Completed() *Handle { return &Handle{st: completed} }

// Done reports whether the task finished or was cancelled.
func (h *Handle) Done() bool { return h.st != running }

// Cancelled reports whether the task was stopped before finishing.
func (h *Handle) Cancelled() bool { return h.st == cancelled }

// Cancel stops a running task. Completion callbacks do not fire.
func (h *Handle) Cancel() {
	if h.st != running {
		return
	}
	h.st = cancelled
	h.onComplete = nil
	if h.onCancel != nil {
		fn := h.onCancel
		h.onCancel = nil
		fn()
	}
}

// OnComplete registers fn to run when the task finishes naturally. If it already
// has, fn runs immediately.
func (h *Handle) OnComplete(fn func()) {
	switch h.st {
	case completed:
		fn()
	case running:
		h.onComplete = append(h.onComplete, fn)
	}
}

func (h *Handle) complete() {
	if h.st != running {
		return
	}
	h.st = completed
	fns := h.onComplete
	h.onComplete = nil
	h.onCancel = nil
	for _, fn := range fns {
		fn()
	}
}

type entry struct {
	task Task
	h    *Handle
}

// Scheduler steps live tasks in the order they were started.
type Scheduler struct {
	tasks []entry
}

func NewScheduler() *Scheduler { return &Scheduler{} }

// Start registers t. Tasks started during a Tick take their first step in that same Tick.
func (s *Scheduler) Start(t Task) *Handle {
	h := &Handle{}
	s.tasks = append(s.tasks, entry{task: t, h: h})
	return h
}

// Tick advances every live task by dt seconds.
func (s *Scheduler) Tick(dt float64) {
	for i := 0; i < len(s.tasks); i++ {
		e := s.tasks[i]
		if e.h.Done() {
			continue
		}
		if e.task.Step(dt) {
			e.h.complete()
		}
	}
	live := s.tasks[:0]
	for _, e := range s.tasks {
		if !e.h.Done() {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = entry{}
	}
	s.tasks = live
}

// Len returns the number of tasks that have not been collected yet.
func (s *Scheduler) Len() int {
	n := 0
	for _, e := range s.tasks {
		if !e.h.Done() {
			n++
		}
	}
	return n
}

// Clear cancels every task.
func (s *Scheduler) Clear() {
	for _, e := range s.tasks {
		e.h.Cancel()
	}
	s.tasks = nil
}

// Wait returns a handle that completes after the given number of seconds.
func (s *Scheduler) Wait(seconds float64) *Handle {
	left := seconds
	return s.Start(StepFunc(func(dt float64) bool {
		left -= dt
		return left <= 0
	}))
}

// All returns a handle that completes once every handle in hs is done.
// Cancelling it cancels the children.
func (s *Scheduler) All(hs ...*Handle) *Handle {
	pending := make([]*Handle, 0, len(hs))
	for _, h := range hs {
		if h != nil && !h.Done() {
			pending = append(pending, h)
		}
	}
	if len(pending) == 0 {
		return Completed()
	}
	h := s.Start(StepFunc(func(float64) bool {
		for _, c := range pending {
			if !c.Done() {
				return false
			}
		}
		return true
	}))
	h.onCancel = func() {
		for _, c := range pending {
			c.Cancel()
		}
	}
	return h
}

// MoveTowards moves current towards target by at most maxDelta.
func MoveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

// Approximately compares two values with a tolerance suitable for alpha and color channels.
func Approximately(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

// Speed normalises a transition speed multiplier. Non-positive speeds run at 1;
// instant swaps are requested with an explicit immediate flag, never with speed 0.
func Speed(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}
