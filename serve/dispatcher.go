/* Copyright 2026 Whisper CMS Contributors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package serve

import (
	"context"
	"strings"
	"time"

	"github.com/whisper-cms/whisper/core"
	"github.com/whisper-cms/whisper/runtime"
)

// Dispatcher picks the theme for a path and runs it.
type Dispatcher struct {
	themes  *runtime.ThemeSet
	mounts  []runtime.Mount
	timeout time.Duration
}

func NewDispatcher(themes *runtime.ThemeSet, timeout time.Duration) *Dispatcher {
	return &Dispatcher{themes: themes, mounts: themes.Mounts(), timeout: timeout}
}

// Select returns the theme whose mount is the longest prefix of path.
// Equal-length mounts go to whichever registered first.  ok is false
// when nothing is mounted on a matching prefix.
func (d *Dispatcher) Select(path string) (string, bool) {
	best, bestLen, ok := "", -1, false
	for _, m := range d.mounts {
		if strings.HasPrefix(path, m.Path) && len(m.Path) > bestLen {
			best, bestLen, ok = m.ThemeID, len(m.Path), true
		}
	}
	return best, ok
}

// Render sends the context through the selected theme under the
// dispatcher's deadline.
func (d *Dispatcher) Render(ctx context.Context, themeID string, rc *core.RequestContext) (*core.RequestContext, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.themes.Render(callCtx, themeID, rc)
}
