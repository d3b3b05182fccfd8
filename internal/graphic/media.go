/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graphic

import (
	"errors"
	"fmt"
	"strings"

	"gonovel/internal/asset"
	"gonovel/internal/render"
)

const (
	graphicsRoot      = "Graphics"
	blendTexturesRoot = "Graphics/Transition Effects"
	// rootPrefix marks a path relative to the store root instead of the panel category.
	rootPrefix = "~/"
)

// ImagePath is where still images of a media category live.
func ImagePath(category, name string) string {
	return graphicsRoot + "/" + category + "/Images/" + name
}

// VideoPath is where videos of a media category live.
func VideoPath(category, name string) string {
	return graphicsRoot + "/" + category + "/Videos/" + name
}

// ResolveMedia finds name for panel p: the image store first, then the video store.
func (m *Manager) ResolveMedia(p *Panel, name string) (render.Content, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return render.Content{}, fmt.Errorf("%w: empty media name", ErrMediaNotFound)
	}
	imgPath, vidPath := ImagePath(p.Category, name), VideoPath(p.Category, name)
	if strings.HasPrefix(name, rootPrefix) {
		imgPath = strings.TrimPrefix(name, rootPrefix)
		vidPath = imgPath
	}
	img, err := m.store.LoadImage(imgPath)
	if err == nil {
		return render.Content{Kind: "image", Path: img.Path, Payload: img}, nil
	}
	if !errors.Is(err, asset.ErrNotFound) {
		return render.Content{}, err
	}
	vid, err := m.store.LoadVideo(vidPath)
	if err == nil {
		return render.Content{Kind: "video", Path: vid.Path, Payload: vid}, nil
	}
	if !errors.Is(err, asset.ErrNotFound) {
		return render.Content{}, err
	}
	return render.Content{}, fmt.Errorf("%w: %q (tried %s, %s)", ErrMediaNotFound, name, imgPath, vidPath)
}

// ResolveBlend loads a blend texture. An empty name means no blend.
func (m *Manager) ResolveBlend(name string) (render.Content, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return render.Content{}, nil
	}
	p := blendTexturesRoot + "/" + name
	if strings.HasPrefix(name, rootPrefix) {
		p = strings.TrimPrefix(name, rootPrefix)
	}
	img, err := m.store.LoadImage(p)
	if errors.Is(err, asset.ErrNotFound) {
		return render.Content{}, fmt.Errorf("%w: blend %q", ErrMediaNotFound, name)
	}
	if err != nil {
		return render.Content{}, err
	}
	return render.Content{Kind: "image", Path: img.Path, Payload: img}, nil
}
