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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whisper-cms/whisper/core"
)

func TestApplyHeaderPatches(t *testing.T) {
	spec := core.NewResponseSpec()
	ApplyHeaderPatches(&spec, []core.HeaderPatch{
		{Op: core.HeaderSet, Name: "X-A", Value: "1", SourcePlugin: "p1"},
		{Op: core.HeaderAppend, Name: "X-A", Value: "2", SourcePlugin: "p2"},
		{Op: core.HeaderSet, Name: "X-B", Value: "b", SourcePlugin: "p1"},
		{Op: core.HeaderRemove, Name: "X-B", SourcePlugin: "p3"},
		{Op: core.HeaderRemove, Name: "Never-There", SourcePlugin: "p3"},
	}, zerolog.Nop())

	require.Equal(t, []core.Header{{Name: "X-A", Value: "1"}, {Name: "X-A", Value: "2"}}, spec.Headers)
}

func TestApplyHeaderPatchesDropsInvalidSilently(t *testing.T) {
	spec := core.NewResponseSpec()
	ApplyHeaderPatches(&spec, []core.HeaderPatch{
		{Op: core.HeaderSet, Name: "Bad Name", Value: "x", SourcePlugin: "p"},
		{Op: core.HeaderSet, Name: "X-Evil", Value: "a\r\nInjected: yes", SourcePlugin: "p"},
		{Op: core.HeaderOp("upsert"), Name: "X-C", Value: "x", SourcePlugin: "p"},
		{Op: core.HeaderSet, Name: "X-Fine", Value: "ok", SourcePlugin: "p"},
	}, zerolog.Nop())

	require.Equal(t, []core.Header{{Name: "X-Fine", Value: "ok"}}, spec.Headers)
}

func TestApplyModelPatches(t *testing.T) {
	spec := core.NewResponseSpec()
	spec.Body = core.BodySpec{
		Kind:     core.BodyHTMLTemplate,
		Template: "{{title}} {{n}}",
		Model:    map[string]interface{}{"title": "t", "n": float64(1)},
	}

	ApplyModelPatches(&spec, []core.ModelPatch{
		{SourcePlugin: "p1", Patch: []interface{}{
			map[string]interface{}{"op": "replace", "path": "/n", "value": float64(2)}}},
		// This one fails and is skipped.
		{SourcePlugin: "p2", Patch: []interface{}{
			map[string]interface{}{"op": "replace", "path": "/missing", "value": float64(9)}}},
		// Later documents still apply.
		{SourcePlugin: "p3", Patch: []interface{}{
			map[string]interface{}{"op": "add", "path": "/extra", "value": "yes"}}},
	}, zerolog.Nop())

	require.Equal(t, float64(2), spec.Body.Model["n"])
	require.Equal(t, "yes", spec.Body.Model["extra"])
	require.Equal(t, "t", spec.Body.Model["title"])
}

func TestModelPatchesOnlyForTemplates(t *testing.T) {
	spec := core.NewResponseSpec()
	spec.Body = core.BodySpec{Kind: core.BodyJSON, Value: map[string]interface{}{"n": float64(1)}}

	ApplyModelPatches(&spec, []core.ModelPatch{
		{SourcePlugin: "p", Patch: []interface{}{
			map[string]interface{}{"op": "replace", "path": "/n", "value": float64(2)}}},
	}, zerolog.Nop())

	require.Equal(t, float64(1), spec.Body.Value.(map[string]interface{})["n"])
}

func TestEmptyRecommendationsAreNoop(t *testing.T) {
	spec := core.NewResponseSpec()
	spec.SetHeader("X-Set", "by-theme")
	before := spec

	ApplyHeaderPatches(&spec, nil, zerolog.Nop())
	ApplyModelPatches(&spec, nil, zerolog.Nop())

	require.Equal(t, before, spec)
}
