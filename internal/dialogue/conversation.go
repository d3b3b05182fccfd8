/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"log/slog"

	"gonovel/internal/script"
	"gonovel/internal/transition"
)

// State is the conversation state.
type State int

const (
	Idle State = iota
	Running
	WaitingForAdvance
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case WaitingForAdvance:
		return "waiting"
	}
	return "idle"
}

// Dispatcher runs script commands. Failures are handled on its side.
type Dispatcher interface {
	Dispatch(cmd script.Command) *transition.Handle
}

// Presenter shows who speaks a line. sp is nil for lines without a speaker.
type Presenter interface {
	PresentSpeaker(sp *script.Speaker)
}

// Manager plays a conversation line by line as a scheduler task.
type Manager struct {
	sched     *transition.Scheduler
	arch      *TextArchitect
	auto      *AutoReader
	dispatch  Dispatcher
	presenter Presenter
	log       *slog.Logger

	state  State
	paused bool
	conv   script.Conversation
	index  int

	line        *script.Line
	seg         int
	textStarted bool
	awaiting    *transition.Handle
	background  []*transition.Handle
	autoWait    float64
	task        *transition.Handle

	// OnLine is called when a line starts, after its speaker was presented.
	OnLine func(line script.Line)
	// OnConversationEnd is called when the last line finished.
	OnConversationEnd func()
}

// NewManager wires a conversation manager. presenter and auto may be nil.
func NewManager(sched *transition.Scheduler, arch *TextArchitect, auto *AutoReader, d Dispatcher, presenter Presenter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if auto == nil {
		auto = &AutoReader{}
	}
	return &Manager{sched: sched, arch: arch, auto: auto, dispatch: d, presenter: presenter, log: logger}
}

func (m *Manager) State() State { return m.state }

// IsRunning reports whether a conversation is in progress, paused or not.
func (m *Manager) IsRunning() bool { return m.state != Idle }

func (m *Manager) Paused() bool { return m.paused }

// LineIndex is the zero-based index of the current line.
func (m *Manager) LineIndex() int { return m.index }

func (m *Manager) AutoReader() *AutoReader { return m.auto }

// StartConversation cancels the running conversation, if any, and plays conv from
// its first line. The handle completes when the last line has been advanced past.
func (m *Manager) StartConversation(conv script.Conversation) *transition.Handle {
	m.Stop()
	m.conv = conv
	m.state = Running
	m.log.Info("conversation started", "conversation", conv.Name, "lines", conv.Len())
	m.task = m.sched.Start(transition.StepFunc(m.step))
	return m.task
}

// Stop cancels the conversation and every operation it is waiting on.
func (m *Manager) Stop() {
	if m.task != nil {
		m.task.Cancel()
		m.task = nil
	}
	if m.awaiting != nil {
		m.awaiting.Cancel()
	}
	for _, h := range m.background {
		h.Cancel()
	}
	m.arch.Stop()
	m.state = Idle
	m.paused = false
	m.index, m.seg = 0, 0
	m.line, m.awaiting, m.background = nil, nil, nil
	m.textStarted = false
	m.autoWait = 0
}

// Pause freezes the conversation and its text reveal. Running transitions continue.
func (m *Manager) Pause() {
	m.paused = true
	m.arch.SetPaused(true)
}

func (m *Manager) Resume() {
	m.paused = false
	m.arch.SetPaused(false)
}

// OnUserPromptNext handles the reader's advance request: it completes a reveal in
// progress, or advances a finished line. It also turns the auto reader off.
func (m *Manager) OnUserPromptNext() {
	m.auto.Disable()
	m.next()
}

// OnSystemPromptNext advances like the reader would, leaving the auto reader on.
func (m *Manager) OnSystemPromptNext() { m.next() }

// next moves a finished line on at once: the state is Running when it returns and
// the following line starts on the next tick.
func (m *Manager) next() {
	switch {
	case m.state == Running && m.arch.Building():
		m.arch.ForceComplete()
	case m.state == WaitingForAdvance:
		m.state = Running
		m.finishLine()
	}
}

func (m *Manager) step(dt float64) bool {
	if m.paused {
		return false
	}
	for {
		switch m.state {
		case Idle:
			return true
		case WaitingForAdvance:
			if !m.auto.On {
				return false
			}
			m.autoWait += dt
			dt = 0
			if m.autoWait < m.auto.Delay(m.line.Dialogue()) {
				return false
			}
			m.state = Running
			m.finishLine()
		case Running:
			if m.awaiting != nil {
				if !m.awaiting.Done() {
					return false
				}
				m.awaiting = nil
			}
			if m.line == nil && !m.startLine() {
				m.state = Idle
				m.log.Info("conversation finished", "conversation", m.conv.Name)
				if m.OnConversationEnd != nil {
					m.OnConversationEnd()
				}
				return true
			}
			if m.line == nil {
				continue
			}
			if m.seg < len(m.line.Segments) {
				m.runSegment(m.line.Segments[m.seg])
				m.seg++
				continue
			}
			if m.line.HasDialogue() {
				m.state = WaitingForAdvance
				m.autoWait = 0
				continue
			}
			m.finishLine()
		}
	}
}

// startLine parses the line at index. It returns false at the end of the
// conversation; empty lines are skipped and leave m.line nil.
func (m *Manager) startLine() bool {
	if m.index >= m.conv.Len() {
		return false
	}
	line, errs := script.ParseLine(m.index+1, m.conv.Lines[m.index])
	for _, e := range errs {
		m.log.Warn("script error", "conversation", m.conv.Name, "line", e.Line, "column", e.Column, "err", e.Message)
	}
	if line.Empty() {
		m.index++
		return true
	}
	m.line, m.seg, m.textStarted = &line, 0, false
	if m.presenter != nil && (line.Speaker != nil || line.HasDialogue()) {
		m.presenter.PresentSpeaker(line.Speaker)
	}
	if m.OnLine != nil {
		m.OnLine(line)
	}
	return true
}

func (m *Manager) runSegment(s script.Segment) {
	if s.Kind == script.SegmentText {
		if m.textStarted {
			m.awaiting = m.arch.Append(s.Text)
		} else {
			m.awaiting = m.arch.Build(s.Text)
			m.textStarted = true
		}
		return
	}
	h := m.dispatch.Dispatch(s.Command)
	if s.Command.Blocking {
		m.awaiting = h
		return
	}
	if !h.Done() {
		m.background = append(m.background, h)
	}
}

func (m *Manager) finishLine() {
	m.index++
	m.line, m.seg = nil, 0
	live := m.background[:0]
	for _, h := range m.background {
		if !h.Done() {
			live = append(live, h)
		}
	}
	m.background = live
}
