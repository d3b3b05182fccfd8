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
	"strconv"

	"gonovel/internal/params"
	"gonovel/internal/transition"
)

var waitSchema = params.Schema{
	{Aliases: []string{"-t", "-time"}, Kind: params.Float},
}

// General registers engine-level commands.
type General struct{}

func (General) Extend(r *Registry) {
	r.Register("wait", wait)
}

// wait blocks for a number of seconds: [wait 1.5] or [wait -t 1.5].
func wait(env *Env, args []string) (*transition.Handle, error) {
	v, err := parse(args, waitSchema)
	if err != nil {
		return nil, err
	}
	seconds := v.Float("-t")
	if !v.Has("-t") {
		if len(v.Positional) == 0 {
			return nil, fmt.Errorf("%w: wait needs a duration", ErrInvalidParameter)
		}
		seconds, err = strconv.ParseFloat(v.Positional[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: duration %q", ErrInvalidParameter, v.Positional[0])
		}
	}
	if seconds <= 0 {
		return transition.Completed(), nil
	}
	return env.Scheduler.Wait(seconds), nil
}
