/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transition

// Category names a kind of visual transition. An entity runs at most one task per category.
type Category string

const (
	Visibility Category = "visibility"
	Color      Category = "color"
	Highlight  Category = "highlight"
	Media      Category = "media"
)

// Slot is the owner slot of one (entity, category) pair. The generation counter is
// the ownership token: a task captures it when it begins and checks it before every
// step, so a superseded task never writes again.
type Slot struct {
	gen   uint64
	owner *Handle
}

// Busy reports whether a task currently owns the slot.
func (s *Slot) Busy() bool { return s.owner != nil && !s.owner.Done() }

// Owner returns the handle of the owning task, or nil.
func (s *Slot) Owner() *Handle {
	if !s.Busy() {
		return nil
	}
	return s.owner
}

// Stop revokes ownership from the running task, if any. Callers use it before
// writing a value immediately.
func (s *Slot) Stop() {
	s.gen++
	if s.owner != nil {
		o := s.owner
		s.owner = nil
		o.Cancel()
	}
}

func (s *Slot) owns(gen uint64) bool { return s.gen == gen }

// Controller hands out slot ownership and runs the owning tasks on a Scheduler.
type Controller struct {
	sched *Scheduler
}

func NewController(s *Scheduler) *Controller { return &Controller{sched: s} }

// Scheduler returns the scheduler tasks run on.
func (c *Controller) Scheduler() *Scheduler { return c.sched }

// Begin supersedes the slot's current owner and starts t as the new one.
// The previous owner is cancelled before t takes its first step.
func (c *Controller) Begin(slot *Slot, t Task) *Handle {
	slot.Stop()
	gen := slot.gen
	h := c.sched.Start(StepFunc(func(dt float64) bool {
		if !slot.owns(gen) {
			return true
		}
		if !t.Step(dt) {
			return false
		}
		if slot.owns(gen) {
			slot.owner = nil
		}
		return true
	}))
	slot.owner = h
	return h
}
