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

// PluginSpec is one plugin as configured: an id naming its global
// slot, a human name, its source, and its configuration.
type PluginSpec struct {
	ID     string
	Name   string
	Source string
	Config map[string]interface{}
}

// PluginRuntime owns the one engine every plugin shares and the
// ordered registry of loaded plugin ids.  It is not safe for
// concurrent use; the PluginActor is its only caller after startup.
type PluginRuntime struct {
	engine *script.Engine
	order  []string
	logger zerolog.Logger
}

// NewPluginRuntime builds the runtime and loads every plugin in the
// given order.  Any load failure is a BootstrapError.
func NewPluginRuntime(specs []PluginSpec, logger zerolog.Logger) (*PluginRuntime, error) {
	r := &PluginRuntime{engine: script.New(), logger: logger}
	if err := r.engine.LoadModule("__ctx_shim__", ctxShimSrc); err != nil {
		return nil, &BootstrapError{Kind: "plugin", ID: "__ctx_shim__", Err: err}
	}
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, &BootstrapError{Kind: "plugin", ID: spec.Name, Err: fmt.Errorf("empty plugin id")}
		}
		if err := r.engine.LoadModule(spec.ID, spec.Source); err != nil {
			return nil, &BootstrapError{Kind: "plugin", ID: spec.ID, Err: err}
		}
		r.order = append(r.order, spec.ID)
		logger.Info().Str("plugin", spec.ID).Msg("plugin loaded")
	}
	return r, nil
}

// Order returns plugin ids in registration order.
func (r *PluginRuntime) Order() []string {
	return append([]string(nil), r.order...)
}

// InitAll calls <id>.init on every plugin in registration order.
// Return values are ignored; a missing init is fine; a failing init is
// a BootstrapError.
func (r *PluginRuntime) InitAll(rc *core.RequestContext) error {
	snap, err := Snapshot(rc)
	if err != nil {
		return &BootstrapError{Kind: "plugin", ID: "*", Err: err}
	}
	for _, id := range r.order {
		if _, err := r.engine.Call(id+".init", snap); err != nil {
			if script.IsNotFunction(err) {
				continue
			}
			return &BootstrapError{Kind: "plugin", ID: id, Err: err}
		}
	}
	return nil
}

// CallHook runs <id>.<hook>(snapshot) and folds the result back into a
// fresh context.  A missing hook is a no-op returning the input
// context; any other failure leaves the caller with its prior context.
func (r *PluginRuntime) CallHook(id, hook string, rc *core.RequestContext) (*core.RequestContext, error) {
	snap, err := Snapshot(rc)
	if err != nil {
		return nil, &HookError{ID: id, Hook: hook, Err: err}
	}
	res, err := r.engine.Call(id+"."+hook, snap)
	if err != nil {
		if script.IsNotFunction(err) {
			return rc, nil
		}
		return nil, &HookError{ID: id, Hook: hook, Err: err}
	}
	merged, err := MergeContext(rc, res, id)
	if err != nil {
		return nil, err
	}
	return merged, nil
}
