/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transition

import "testing"

// fade is a test task that moves *v towards target and records every write it makes.
func fade(v *float64, target, rate float64, writes *[]string, tag string) Task {
	return StepFunc(func(dt float64) bool {
		*v = MoveTowards(*v, target, rate*dt)
		*writes = append(*writes, tag)
		return Approximately(*v, target)
	})
}

func TestSchedulerRunsTaskToCompletion(t *testing.T) {
	s := NewScheduler()
	v := 0.0
	var writes []string
	h := s.Start(fade(&v, 1, 1, &writes, "a"))
	fired := false
	h.OnComplete(func() { fired = true })

	for i := 0; i < 4; i++ {
		s.Tick(0.25)
	}
	if !h.Done() || h.Cancelled() {
		t.Fatalf("handle should be completed, got done=%v cancelled=%v", h.Done(), h.Cancelled())
	}
	if !fired {
		t.Fatalf("OnComplete did not fire")
	}
	if v != 1 {
		t.Fatalf("value = %v, want 1", v)
	}
	if s.Len() != 0 {
		t.Fatalf("completed task was not collected")
	}
}

func TestSupersededTaskMakesNoFurtherWrites(t *testing.T) {
	s := NewScheduler()
	c := NewController(s)
	var slot Slot
	v := 0.0
	var writes []string

	a := c.Begin(&slot, fade(&v, 1, 1, &writes, "A"))
	aFired := false
	a.OnComplete(func() { aFired = true })
	s.Tick(0.25)

	b := c.Begin(&slot, fade(&v, 0, 1, &writes, "B"))
	if !a.Cancelled() {
		t.Fatalf("A should be cancelled as soon as B begins")
	}
	before := len(writes)
	for i := 0; i < 10; i++ {
		s.Tick(0.1)
	}
	for _, w := range writes[before:] {
		if w == "A" {
			t.Fatalf("A wrote after being superseded: %v", writes)
		}
	}
	if aFired {
		t.Fatalf("completion callback of a superseded task fired")
	}
	if !b.Done() || b.Cancelled() {
		t.Fatalf("B should complete naturally")
	}
	if v != 0 {
		t.Fatalf("value at rest = %v, want B's target 0", v)
	}
	if slot.Busy() {
		t.Fatalf("slot should be free after B completes")
	}
}

func TestSupersedeWithinSameTick(t *testing.T) {
	s := NewScheduler()
	c := NewController(s)
	var slot Slot
	v := 0.0
	var writes []string

	// the first task supersedes itself from inside a step, like a command issued mid-tick
	var b *Handle
	c.Begin(&slot, StepFunc(func(dt float64) bool {
		writes = append(writes, "A")
		b = c.Begin(&slot, fade(&v, 0.5, 10, &writes, "B"))
		return false
	}))
	s.Tick(0.1)
	s.Tick(0.1)
	if len(writes) != 2 || writes[0] != "A" || writes[1] != "B" {
		t.Fatalf("writes = %v, want [A B]", writes)
	}
	if !b.Done() {
		t.Fatalf("B should have finished")
	}
}

func TestSlotStopCancelsOwner(t *testing.T) {
	s := NewScheduler()
	c := NewController(s)
	var slot Slot
	h := c.Begin(&slot, StepFunc(func(float64) bool { return false }))
	if !slot.Busy() || slot.Owner() != h {
		t.Fatalf("slot should be owned by h")
	}
	slot.Stop()
	if !h.Cancelled() || slot.Busy() || slot.Owner() != nil {
		t.Fatalf("Stop should release and cancel the owner")
	}
}

func TestWaitAndAll(t *testing.T) {
	s := NewScheduler()
	w1 := s.Wait(0.5)
	w2 := s.Wait(1)
	all := s.All(w1, w2, Completed(), nil)

	s.Tick(0.6)
	if !w1.Done() || w2.Done() || all.Done() {
		t.Fatalf("after 0.6s: w1=%v w2=%v all=%v", w1.Done(), w2.Done(), all.Done())
	}
	s.Tick(0.6)
	if !all.Done() || all.Cancelled() {
		t.Fatalf("All should complete once every child is done")
	}
	if !s.All().Done() {
		t.Fatalf("All of nothing is already complete")
	}
}

func TestCancelAllCancelsChildren(t *testing.T) {
	s := NewScheduler()
	w := s.Wait(10)
	all := s.All(w)
	all.Cancel()
	if !w.Cancelled() {
		t.Fatalf("child should be cancelled with the composite")
	}
}

func TestClearCancelsEverything(t *testing.T) {
	s := NewScheduler()
	h := s.Wait(5)
	s.Clear()
	if !h.Cancelled() || s.Len() != 0 {
		t.Fatalf("Clear should cancel and drop all tasks")
	}
}

func TestOnCompleteAfterCompletionRunsImmediately(t *testing.T) {
	called := false
	Completed().OnComplete(func() { called = true })
	if !called {
		t.Fatalf("callback on completed handle should run immediately")
	}
}

func TestMoveTowards(t *testing.T) {
	if got := MoveTowards(0, 1, 0.3); !Approximately(got, 0.3) {
		t.Fatalf("MoveTowards up = %v", got)
	}
	if got := MoveTowards(1, 0, 0.3); !Approximately(got, 0.7) {
		t.Fatalf("MoveTowards down = %v", got)
	}
	if got := MoveTowards(0.9, 1, 0.3); got != 1 {
		t.Fatalf("MoveTowards should clamp at target, got %v", got)
	}
}

func TestSpeedNormalisesNonPositive(t *testing.T) {
	if Speed(0) != 1 || Speed(-2) != 1 || Speed(2.5) != 2.5 {
		t.Fatalf("Speed: got %v %v %v", Speed(0), Speed(-2), Speed(2.5))
	}
}
