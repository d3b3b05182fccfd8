//go:build ebiten

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package host

import (
	"context"
	"errors"
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"

	"gonovel/internal/asset"
	"gonovel/internal/config"
	"gonovel/internal/render"
	"gonovel/internal/textlayout"
)

const (
	boxHeight  = 180
	boxPadding = 24
)

type game struct {
	ctx    context.Context
	d      *Driver
	width  int
	height int
	title  string
	faces  map[font.Face]*text.GoXFace
	images map[*asset.Image]*ebiten.Image
}

// Run opens a window and plays the driver's conversation until it ends, the window
// closes or ctx is cancelled. Space, Enter or a click advances; P pauses; A toggles
// the auto reader; holding Ctrl fast-forwards.
func Run(ctx context.Context, d *Driver, win config.WindowConfig) error {
	g := &game{
		ctx:    ctx,
		d:      d,
		width:  win.Width,
		height: win.Height,
		title:  win.Title,
		faces:  map[font.Face]*text.GoXFace{},
		images: map[*asset.Image]*ebiten.Image{},
	}
	if g.width <= 0 || g.height <= 0 {
		g.width, g.height = 1280, 720
	}
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(g.title)
	ebiten.SetTPS(int(1/d.Engine.TickInterval() + 0.5))
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (g *game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return ebiten.Termination
	}
	in := Input{
		Advance: inpututil.IsKeyJustPressed(ebiten.KeySpace) ||
			inpututil.IsKeyJustPressed(ebiten.KeyEnter) ||
			inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		TogglePause: inpututil.IsKeyJustPressed(ebiten.KeyP),
		ToggleAuto:  inpututil.IsKeyJustPressed(ebiten.KeyA),
		FastForward: ebiten.IsKeyPressed(ebiten.KeyControl),
	}
	if err := g.d.Update(in); err != nil {
		if errors.Is(err, ErrFinished) {
			return ebiten.Termination
		}
		return err
	}
	if g.d.Frames()%30 == 0 {
		ebiten.SetWindowTitle(g.title + " - " + g.d.Status())
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	sc := g.d.Scene
	for _, sf := range sc.Surfaces() {
		if !sf.Visible() {
			continue
		}
		alpha := sc.EffectiveAlpha(sf.Target)
		if alpha <= 0 {
			continue
		}
		if sf.Progress > 0 && !sf.Next.Empty() {
			g.drawContent(screen, sf.Content, sf.Color, alpha*(1-sf.Progress))
			g.drawContent(screen, sf.Next, sf.Color, alpha*sf.Progress)
			continue
		}
		g.drawContent(screen, sf.Content, sf.Color, alpha)
	}
	g.drawDialogue(screen)
}

func (g *game) drawContent(screen *ebiten.Image, c render.Content, tint render.Color, alpha float64) {
	if alpha <= 0 || c.Empty() {
		return
	}
	switch p := c.Payload.(type) {
	case *asset.Image:
		img := g.image(p)
		if img == nil {
			return
		}
		b := img.Bounds()
		scale := min(float64(g.width)/float64(b.Dx()), float64(g.height)/float64(b.Dy()))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate((float64(g.width)-float64(b.Dx())*scale)/2, (float64(g.height)-float64(b.Dy())*scale)/2)
		op.ColorScale.ScaleWithColor(toColor(tint))
		op.ColorScale.ScaleAlpha(float32(alpha))
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, op)
	case *asset.Video:
		// Videos are not decoded; a labelled frame marks where they play.
		vector.DrawFilledRect(screen, 0, 0, float32(g.width), float32(g.height-boxHeight), color.RGBA{20, 20, 30, uint8(255 * alpha)}, false)
		g.drawText(screen, g.d.Fonts.Face("", 0), "[video] "+p.Path, boxPadding, boxPadding, render.Color{R: 0.7, G: 0.7, B: 0.7, A: alpha})
	}
}

func (g *game) image(a *asset.Image) *ebiten.Image {
	if img, ok := g.images[a]; ok {
		return img
	}
	if a.Pixels == nil {
		g.d.log.Debug("image without pixels", slog.String("path", a.Path))
		g.images[a] = nil
		return nil
	}
	img := ebiten.NewImageFromImage(a.Pixels)
	g.images[a] = img
	return img
}

func (g *game) drawDialogue(screen *ebiten.Image) {
	sc := g.d.Scene
	if sc.Text == "" && sc.Speaker == "" {
		return
	}
	top := float32(g.height - boxHeight)
	vector.DrawFilledRect(screen, 0, top, float32(g.width), boxHeight, color.RGBA{0, 0, 0, 190}, false)
	st := sc.Style
	y := float64(top) + boxPadding
	if sc.Speaker != "" {
		face := g.d.Fonts.Face(st.NameFont, textlayout.DefaultSize*scaleOr1(st.NameScale))
		g.drawText(screen, face, sc.Speaker, boxPadding, y, st.NameColor)
		y += float64(textlayout.LineHeight(face)) * 1.4
	}
	dc := st.DialogueColor
	if dc.A == 0 {
		dc = render.White
	}
	face := g.d.Fonts.Face(st.DialogueFont, textlayout.DefaultSize*scaleOr1(st.DialogueScale))
	lh := float64(textlayout.LineHeight(face))
	for _, line := range textlayout.Wrap(face, sc.Text, g.width-2*boxPadding) {
		g.drawText(screen, face, line, boxPadding, y, dc)
		y += lh
	}
}

func scaleOr1(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}

func (g *game) drawText(screen *ebiten.Image, face font.Face, s string, x, y float64, c render.Color) {
	gx, ok := g.faces[face]
	if !ok {
		gx = text.NewGoXFace(face)
		g.faces[face] = gx
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(toColor(c))
	text.Draw(screen, s, gx, op)
}

func (g *game) Layout(_, _ int) (int, int) { return g.width, g.height }

func toColor(c render.Color) color.Color {
	ch := func(v float64) uint8 { return uint8(max(0, min(1, v))*255 + 0.5) }
	return color.NRGBA{R: ch(c.R), G: ch(c.G), B: ch(c.B), A: ch(c.A)}
}
