//go:build !ebiten

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

	"gonovel/internal/config"
)

// ErrNoDisplay is returned by Run in builds without the ebiten tag.
var ErrNoDisplay = errors.New("window host not built in this binary; rebuild with: go build -tags ebiten ./cmd/gonovel")

// Run needs the ebiten build tag; headless playback uses Engine.Run.
func Run(_ context.Context, _ *Driver, _ config.WindowConfig) error {
	return ErrNoDisplay
}
