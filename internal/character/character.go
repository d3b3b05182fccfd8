/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package character implements the character runtime: identities resolved from a
// casting name, the per-kind variants and their visual transitions.
package character

import (
	"errors"
	"log/slog"

	"gonovel/internal/asset"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

var (
	ErrDuplicateEntity = errors.New("character already exists")
	ErrLayerNotFound   = errors.New("character layer not found")
	ErrSpriteNotFound  = errors.New("sprite not found")
)

// fadeRate is the alpha and color change per second at speed 1.
const fadeRate = 3.0

// unhighlightFactor darkens the RGB channels of a character that is not highlighted.
const unhighlightFactor = 0.65

// Identity is resolved once when a character is created.
type Identity struct {
	DisplayName string
	CastingName string
	Config      Config
	AssetRoot   string // Characters/<casting>
	PrefabPath  string // Characters/<casting>/Character - [<casting>]
}

// Character is the capability set shared by every kind.
type Character interface {
	Identity() Identity
	Kind() Kind
	// Target is the render target of the character root.
	Target() string

	Visible() bool
	SetVisible(visible bool)
	Show(speed float64) *transition.Handle
	Hide(speed float64) *transition.Handle

	Color() render.Color
	SetColor(c render.Color)
	ChangeColor(c render.Color, speed float64) *transition.Handle

	Highlighted() bool
	Highlight(speed float64, immediate bool) *transition.Handle
	Unhighlight(speed float64, immediate bool) *transition.Handle

	// OnReceiveCastingExpression applies an expression named in a speaker line
	// ("Alice [0:happy]"). Unresolvable expressions are logged and ignored.
	OnReceiveCastingExpression(layer int, expression string) error
}

// Layered is implemented by kinds that own sprite layers.
type Layered interface {
	Character
	Layers() []*Layer
	Sprite(name string) (*asset.Image, error)
	SetMedia(layer int, img *asset.Image) error
	TransitionMedia(layer int, img *asset.Image, speed float64) (*transition.Handle, error)
}

// deps bundles the collaborators every kind needs.
type deps struct {
	store asset.Store
	ctl   *transition.Controller
	sink  render.Sink
	log   *slog.Logger
}

// surface is one tintable render target: the root of a single-surface kind or a layer.
type surface struct {
	target string
	color  render.Color
	tint   transition.Slot
}

// base carries the state and behavior common to all kinds.
type base struct {
	deps
	id     Identity
	kind   Kind
	target string
	visual bool

	alpha       float64
	fadeTarget  float64
	color       render.Color
	highlighted bool

	visibility   transition.Slot
	coloring     transition.Slot
	highlighting transition.Slot

	surfaces func() []*surface
}

func newBase(d deps, id Identity, kind Kind, key string, visual bool) base {
	return base{
		deps:        d,
		id:          id,
		kind:        kind,
		target:      "character/" + key,
		visual:      visual,
		alpha:       1,
		fadeTarget:  1,
		color:       render.White,
		highlighted: true,
		surfaces:    func() []*surface { return nil },
	}
}

func (b *base) Identity() Identity { return b.id }
func (b *base) Kind() Kind         { return b.kind }
func (b *base) Target() string     { return b.target }

func (b *base) Visible() bool {
	if b.visibility.Busy() {
		return b.fadeTarget == 1
	}
	return b.alpha >= 1
}

func (b *base) SetVisible(visible bool) {
	b.visibility.Stop()
	b.alpha = 0
	if visible {
		b.alpha = 1
	}
	b.fadeTarget = b.alpha
	if b.visual {
		b.sink.SetAlpha(b.target, b.alpha)
	}
}

func (b *base) Show(speed float64) *transition.Handle { return b.fade(1, speed) }
func (b *base) Hide(speed float64) *transition.Handle { return b.fade(0, speed) }

func (b *base) fade(target, speed float64) *transition.Handle {
	b.fadeTarget = target
	if !b.visual {
		b.visibility.Stop()
		b.alpha = target
		return transition.Completed()
	}
	speed = transition.Speed(speed)
	return b.ctl.Begin(&b.visibility, transition.StepFunc(func(dt float64) bool {
		b.alpha = transition.MoveTowards(b.alpha, target, fadeRate*dt*speed)
		b.sink.SetAlpha(b.target, b.alpha)
		return transition.Approximately(b.alpha, target)
	}))
}

func (b *base) Color() render.Color { return b.color }
func (b *base) Highlighted() bool   { return b.highlighted }

// displayColor is the color surfaces converge to.
func (b *base) displayColor() render.Color {
	if b.highlighted {
		return b.color
	}
	return b.color.Scale(unhighlightFactor)
}

func (b *base) SetColor(c render.Color) {
	b.color = c
	b.coloring.Stop()
	b.applyTint()
}

func (b *base) ChangeColor(c render.Color, speed float64) *transition.Handle {
	b.color = c
	return b.await(&b.coloring, b.tint(speed))
}

func (b *base) Highlight(speed float64, immediate bool) *transition.Handle {
	return b.setHighlight(true, speed, immediate)
}

func (b *base) Unhighlight(speed float64, immediate bool) *transition.Handle {
	return b.setHighlight(false, speed, immediate)
}

func (b *base) setHighlight(on bool, speed float64, immediate bool) *transition.Handle {
	b.highlighted = on
	if immediate {
		b.highlighting.Stop()
		b.applyTint()
		return transition.Completed()
	}
	return b.await(&b.highlighting, b.tint(speed))
}

func (b *base) OnReceiveCastingExpression(int, string) error { return nil }

// applyTint writes the display color to every surface at once.
func (b *base) applyTint() {
	c := b.displayColor()
	for _, s := range b.surfaces() {
		s.tint.Stop()
		s.color = c
		b.sink.SetColor(s.target, c)
	}
}

// tint moves every surface towards the display color. The target is read on each
// step, so a later color or highlight change redirects tints already in flight.
func (b *base) tint(speed float64) *transition.Handle {
	speed = transition.Speed(speed)
	surfaces := b.surfaces()
	hs := make([]*transition.Handle, 0, len(surfaces))
	for _, s := range surfaces {
		hs = append(hs, b.ctl.Begin(&s.tint, transition.StepFunc(func(dt float64) bool {
			want := b.displayColor()
			s.color = moveColor(s.color, want, fadeRate*dt*speed)
			b.sink.SetColor(s.target, s.color)
			return s.color == want
		})))
	}
	return b.ctl.Scheduler().All(hs...)
}

// await makes slot's owner the task that waits for h.
func (b *base) await(slot *transition.Slot, h *transition.Handle) *transition.Handle {
	if h.Done() {
		slot.Stop()
		return h
	}
	return b.ctl.Begin(slot, transition.StepFunc(func(float64) bool { return h.Done() }))
}

func moveColor(c, to render.Color, d float64) render.Color {
	return render.Color{
		R: transition.MoveTowards(c.R, to.R, d),
		G: transition.MoveTowards(c.G, to.G, d),
		B: transition.MoveTowards(c.B, to.B, d),
		A: transition.MoveTowards(c.A, to.A, d),
	}
}
