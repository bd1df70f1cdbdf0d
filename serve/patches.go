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
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
)

// ApplyHeaderPatches folds the recommended header patches into the
// response spec, in append order.  Set replaces, Append adds a
// parallel value, Remove deletes every value (removing an absent
// header is fine).  A patch with an invalid name or value is dropped
// silently: one plugin's malformed header is not worth a failed
// response.
func ApplyHeaderPatches(spec *core.ResponseSpec, patches []core.HeaderPatch, logger zerolog.Logger) {
	for _, p := range patches {
		if !core.ValidHeaderName(p.Name) {
			logger.Debug().Str("plugin", p.SourcePlugin).Str("name", p.Name).Msg("dropping header patch: bad name")
			continue
		}
		switch p.Op {
		case core.HeaderSet:
			if !core.ValidHeaderValue(p.Value) {
				logger.Debug().Str("plugin", p.SourcePlugin).Str("name", p.Name).Msg("dropping header patch: bad value")
				continue
			}
			spec.SetHeader(p.Name, p.Value)
		case core.HeaderAppend:
			if !core.ValidHeaderValue(p.Value) {
				logger.Debug().Str("plugin", p.SourcePlugin).Str("name", p.Name).Msg("dropping header patch: bad value")
				continue
			}
			spec.AppendHeader(p.Name, p.Value)
		case core.HeaderRemove:
			spec.RemoveHeader(p.Name)
		default:
			logger.Debug().Str("plugin", p.SourcePlugin).Str("op", string(p.Op)).Msg("dropping header patch: unknown op")
		}
	}
}

// ApplyModelPatches applies each RFC 6902 document to the template
// model, in order.  Only HtmlTemplate bodies have a model; for any
// other body kind this is a no-op.  A failing document is logged and
// skipped, and later documents still apply.
func ApplyModelPatches(spec *core.ResponseSpec, patches []core.ModelPatch, logger zerolog.Logger) {
	if spec.Body.Kind != core.BodyHTMLTemplate || len(patches) == 0 {
		return
	}

	model := spec.Body.Model
	if model == nil {
		model = map[string]interface{}{}
	}
	doc, err := json.Marshal(model)
	if err != nil {
		logger.Warn().Err(err).Msg("model patches skipped: model not serializable")
		return
	}

	for _, p := range patches {
		patchJS, err := json.Marshal(p.Patch)
		if err != nil {
			logger.Warn().Str("plugin", p.SourcePlugin).Err(err).Msg("skipping model patch")
			continue
		}
		patch, err := jsonpatch.DecodePatch(patchJS)
		if err != nil {
			logger.Warn().Str("plugin", p.SourcePlugin).Err(err).Msg("skipping model patch")
			continue
		}
		next, err := patch.Apply(doc)
		if err != nil {
			logger.Warn().Str("plugin", p.SourcePlugin).Err(err).Msg("skipping model patch")
			continue
		}
		doc = next
	}

	var out map[string]interface{}
	if err := json.Unmarshal(doc, &out); err != nil {
		logger.Warn().Err(err).Msg("model patches left a non-object model, keeping original")
		return
	}
	spec.Body.Model = out
}
