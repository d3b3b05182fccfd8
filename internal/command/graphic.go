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

	"gonovel/internal/asset"
	"gonovel/internal/graphic"
	"gonovel/internal/params"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

var (
	paramPanel     = []string{"-p", "-panel"}
	paramLayer     = []string{"-l", "-layer"}
	paramMedia     = []string{"-m", "-media"}
	paramSpeed     = []string{"-spd", "-speed"}
	paramImmediate = []string{"-i", "-immediate"}
	paramBlend     = []string{"-b", "-blend"}
	paramAudio     = []string{"-aud", "-audio"}
)

var setLayerMediaSchema = params.Schema{
	{Aliases: paramPanel, Kind: params.String},
	{Aliases: paramLayer, Kind: params.Int, Default: 0},
	{Aliases: paramMedia, Kind: params.String},
	{Aliases: paramSpeed, Kind: params.Float, Default: 1.0},
	{Aliases: paramImmediate, Kind: params.Bool},
	{Aliases: paramBlend, Kind: params.String},
	{Aliases: paramAudio, Kind: params.Bool},
}

var clearLayerMediaSchema = params.Schema{
	{Aliases: paramPanel, Kind: params.String},
	{Aliases: paramLayer, Kind: params.Int, Default: -1},
	{Aliases: paramSpeed, Kind: params.Float, Default: 1.0},
	{Aliases: paramImmediate, Kind: params.Bool},
	{Aliases: paramBlend, Kind: params.String},
}

// GraphicPanels registers setlayermedia and clearlayermedia.
type GraphicPanels struct{}

func (GraphicPanels) Extend(r *Registry) {
	r.Register("setlayermedia", setLayerMedia)
	r.Register("clearlayermedia", clearLayerMedia)
}

func panelFor(env *Env, v params.Values) (*graphic.Panel, error) {
	if env.Panels == nil {
		return nil, fmt.Errorf("%w: no panels configured", ErrInvalidTarget)
	}
	p, err := env.Panels.GetPanel(v.String("-p"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return p, nil
}

// blendFor resolves the blend texture. A missing texture degrades to a plain fade.
func blendFor(env *Env, v params.Values) render.Content {
	if v.Bool("-i") || v.String("-b") == "" {
		return render.Content{}
	}
	b, err := env.Panels.ResolveBlend(v.String("-b"))
	if err != nil {
		env.Log.Warn("blend texture not found, fading without it", "blend", v.String("-b"), "err", err)
		return render.Content{}
	}
	return b
}

func setLayerMedia(env *Env, args []string) (*transition.Handle, error) {
	v, err := parse(args, setLayerMediaSchema)
	if err != nil {
		return nil, err
	}
	panel, err := panelFor(env, v)
	if err != nil {
		return nil, err
	}
	name := v.String("-m")
	if name == "" {
		return nil, fmt.Errorf("%w: media name (-m) is required", ErrInvalidParameter)
	}
	media, err := env.Panels.ResolveMedia(panel, name)
	if err != nil {
		return nil, err
	}
	blend := blendFor(env, v)
	layer, err := panel.GetLayer(v.Int("-l"), true)
	if err != nil {
		return nil, err
	}
	speed, immediate := v.Float("-spd"), v.Bool("-i")
	switch m := media.Payload.(type) {
	case *asset.Image:
		return layer.SetTexture(m, speed, blend, immediate), nil
	case *asset.Video:
		return layer.SetVideo(m, speed, v.Bool("-aud"), blend, immediate), nil
	}
	return layer.SetMedia(media, speed, blend, immediate), nil
}

func clearLayerMedia(env *Env, args []string) (*transition.Handle, error) {
	v, err := parse(args, clearLayerMediaSchema)
	if err != nil {
		return nil, err
	}
	panel, err := panelFor(env, v)
	if err != nil {
		return nil, err
	}
	blend := blendFor(env, v)
	speed, immediate := v.Float("-spd"), v.Bool("-i")
	if idx := v.Int("-l"); idx != -1 {
		layer, err := panel.GetLayer(idx, false)
		if err != nil {
			return nil, err
		}
		return layer.Clear(speed, blend, immediate), nil
	}
	return panel.Clear(speed, blend, immediate), nil
}
