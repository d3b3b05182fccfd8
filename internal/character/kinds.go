/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package character

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonovel/internal/asset"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

const (
	defaultSheet   = "Default"
	sheetDelimiter = "-"
)

// SplitSpriteName splits "<sheet>-<sprite>". Names without exactly one delimiter
// select the sprite from the "Default" sheet.
func SplitSpriteName(name string) (sheet, sprite string) {
	parts := strings.Split(name, sheetDelimiter)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSheet, name
}

// Text is a character without graphics: only its name and colors are shown.
type Text struct {
	base
}

func newText(d deps, id Identity, key string) *Text {
	c := &Text{base: newBase(d, id, KindText, key, false)}
	c.log.Debug("created text character")
	return c
}

// Layer is one sprite layer of a layered character.
type Layer struct {
	surface
	Index   int
	Name    string
	content render.Content
	media   transition.Slot
	ctl     *transition.Controller
	sink    render.Sink
}

// Content returns what the layer currently shows.
func (l *Layer) Content() render.Content { return l.content }

// Color returns the last color written to the layer.
func (l *Layer) Color() render.Color { return l.color }

func (l *Layer) setContent(c render.Content) {
	l.media.Stop()
	l.content = c
	l.sink.SetContent(l.target, c)
}

func (l *Layer) transition(c render.Content, speed float64) *transition.Handle {
	speed = transition.Speed(speed)
	progress := 0.0
	return l.ctl.Begin(&l.media, transition.StepFunc(func(dt float64) bool {
		progress = transition.MoveTowards(progress, 1, fadeRate*dt*speed)
		if progress < 1 {
			l.sink.SetBlend(l.target, c, progress, render.Content{})
			return false
		}
		l.content = c
		l.sink.SetContent(l.target, c)
		return true
	}))
}

func imageContent(img *asset.Image) render.Content {
	return render.Content{Kind: "image", Path: img.Path, Payload: img}
}

// Sprite covers the Sprite and SpriteSheet kinds.
type Sprite struct {
	base
	layers []*Layer
	artDir string
}

func newSprite(d deps, id Identity, kind Kind, key string) *Sprite {
	c := &Sprite{base: newBase(d, id, kind, key, true), artDir: id.AssetRoot + "/Images"}
	c.surfaces = func() []*surface {
		out := make([]*surface, len(c.layers))
		for i, l := range c.layers {
			out[i] = &l.surface
		}
		return out
	}

	renderers := []string{"Layer: 0"}
	enable := false
	pf, err := d.store.LoadPrefab(id.PrefabPath)
	switch {
	case err == nil:
		renderers, enable = pf.Renderers, pf.EnableOnStart
	case errors.Is(err, asset.ErrNotFound):
		c.log.Warn("character prefab not found, using a single layer", "prefab", id.PrefabPath)
	default:
		c.log.Warn("character prefab unreadable, using a single layer", "prefab", id.PrefabPath, "err", err)
	}
	for i, name := range renderers {
		c.layers = append(c.layers, &Layer{
			surface: surface{target: c.target + "/layer/" + strconv.Itoa(i), color: render.White},
			Index:   i,
			Name:    name,
			ctl:     d.ctl,
			sink:    d.sink,
		})
	}

	c.SetVisible(false)
	if enable {
		c.SetVisible(true)
	}
	c.log.Debug("created sprite character", "kind", kind, "layers", len(c.layers))
	return c
}

func (c *Sprite) Layers() []*Layer { return c.layers }

func (c *Sprite) layer(i int) (*Layer, error) {
	if i < 0 || i >= len(c.layers) {
		return nil, fmt.Errorf("%w: %s layer %d", ErrLayerNotFound, c.id.DisplayName, i)
	}
	return c.layers[i], nil
}

// Sprite resolves a sprite by name from the character's art directory.
func (c *Sprite) Sprite(name string) (*asset.Image, error) {
	if c.kind != KindSpriteSheet {
		img, err := c.store.LoadImage(c.artDir + "/" + name)
		if errors.Is(err, asset.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, name)
		}
		return img, err
	}
	sheet, sprite := SplitSpriteName(name)
	imgs, err := c.store.LoadMultiple(c.artDir + "/" + sheet)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		c.log.Warn("character has no art in sheet", "sheet", sheet)
	}
	for _, img := range imgs {
		if img.Name == sprite {
			return img, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in sheet %s", ErrSpriteNotFound, sprite, sheet)
}

// SetMedia swaps a layer's image immediately.
func (c *Sprite) SetMedia(layer int, img *asset.Image) error {
	l, err := c.layer(layer)
	if err != nil {
		return err
	}
	l.setContent(imageContent(img))
	return nil
}

// TransitionMedia cross-fades a layer to img.
func (c *Sprite) TransitionMedia(layer int, img *asset.Image, speed float64) (*transition.Handle, error) {
	l, err := c.layer(layer)
	if err != nil {
		return transition.Completed(), err
	}
	return l.transition(imageContent(img), speed), nil
}

func (c *Sprite) OnReceiveCastingExpression(layer int, expression string) error {
	img, err := c.Sprite(expression)
	if err == nil {
		_, err = c.TransitionMedia(layer, img, 1)
	}
	if err != nil {
		c.log.Warn("casting expression not applied", "layer", layer, "expression", expression, "err", err)
	}
	return err
}

// Model covers the Live2D and Model3D kinds. Their rig is driven by the host; the
// runtime fades and tints the root and forwards expressions.
type Model struct {
	base
	root *surface
}

func newModel(d deps, id Identity, kind Kind, key string) *Model {
	c := &Model{base: newBase(d, id, kind, key, true)}
	c.root = &surface{target: c.target, color: render.White}
	c.surfaces = func() []*surface { return []*surface{c.root} }
	if _, err := d.store.LoadPrefab(id.PrefabPath); err != nil {
		c.log.Warn("character prefab not loaded", "prefab", id.PrefabPath, "err", err)
	}
	c.log.Debug("created model character", "kind", kind)
	return c
}

func (c *Model) OnReceiveCastingExpression(layer int, expression string) error {
	c.sink.SetContent(c.target+"/expression/"+strconv.Itoa(layer),
		render.Content{Kind: "expression", Path: expression})
	return nil
}
