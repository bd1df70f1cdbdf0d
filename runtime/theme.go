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

package runtime

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
	"github.com/whisper-cms/whisper/script"
)

// ThemeSpec is one theme as configured.  Mount is the path prefix the
// dispatcher selects it by.
type ThemeSpec struct {
	ID     string
	Name   string
	Mount  string
	Source string
	Config map[string]interface{}
}

// ThemeRuntime owns one theme and its private engine.  A theme that
// wedges its engine takes only itself down; every other theme lives in
// a different runtime.
type ThemeRuntime struct {
	spec   ThemeSpec
	engine *script.Engine
	logger zerolog.Logger
}

// NewThemeRuntime spins up a dedicated engine and loads the theme into
// it.  Load failures are BootstrapErrors.
func NewThemeRuntime(spec ThemeSpec, logger zerolog.Logger) (*ThemeRuntime, error) {
	if spec.ID == "" {
		return nil, &BootstrapError{Kind: "theme", ID: spec.Name, Err: fmt.Errorf("empty theme id")}
	}
	t := &ThemeRuntime{spec: spec, engine: script.New(), logger: logger}
	if err := t.engine.LoadModule("__ctx_shim__", ctxShimSrc); err != nil {
		return nil, &BootstrapError{Kind: "theme", ID: spec.ID, Err: err}
	}
	if err := t.engine.LoadModule(spec.ID, spec.Source); err != nil {
		return nil, &BootstrapError{Kind: "theme", ID: spec.ID, Err: err}
	}
	return t, nil
}

// Init calls the theme's optional init hook.
func (t *ThemeRuntime) Init(rc *core.RequestContext) error {
	snap, err := Snapshot(rc)
	if err != nil {
		return &HookError{ID: t.spec.ID, Hook: "init", Err: err}
	}
	if _, err := t.engine.Call(t.spec.ID+".init", snap); err != nil {
		if script.IsNotFunction(err) {
			return nil
		}
		return &HookError{ID: t.spec.ID, Hook: "init", Err: err}
	}
	return nil
}

// Handle runs the theme's mandatory handle hook and merges the result.
// A missing handle is an error: a theme that can't render anything has
// no business being mounted.
func (t *ThemeRuntime) Handle(rc *core.RequestContext) (*core.RequestContext, error) {
	snap, err := Snapshot(rc)
	if err != nil {
		return nil, &HookError{ID: t.spec.ID, Hook: "handle", Err: err}
	}
	res, err := t.engine.Call(t.spec.ID+".handle", snap)
	if err != nil {
		return nil, &HookError{ID: t.spec.ID, Hook: "handle", Err: err}
	}
	return MergeContext(rc, res, t.spec.ID)
}
