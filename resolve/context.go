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

package resolve

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/whisper-cms/whisper/core"
)

// Builder assembles request contexts.  ThemeConfig and PluginConfigs
// come from the hosting router's configuration and are shared
// (read-only) across requests.
type Builder struct {
	ThemeConfig   map[string]interface{}
	PluginConfigs map[string]map[string]interface{}
}

// Build makes a fresh RequestContext for one request: new UUID,
// canonical header names, query parameters copied verbatim, empty
// recommendations, response body unset.
func (b *Builder) Build(path, method, version string, headers map[string][]string, query url.Values, meta core.ContentMeta) *core.RequestContext {
	hs := make(map[string][]string, len(headers))
	for name, vals := range headers {
		canon := core.CanonicalHeaderName(name)
		hs[canon] = append(hs[canon], vals...)
	}

	qs := make(map[string][]string, len(query))
	for k, vals := range query {
		qs[k] = append([]string(nil), vals...)
	}

	themeCfg := b.ThemeConfig
	if themeCfg == nil {
		themeCfg = map[string]interface{}{}
	}
	pluginCfgs := b.PluginConfigs
	if pluginCfgs == nil {
		pluginCfgs = map[string]map[string]interface{}{}
	}
	if meta.FrontMatter == nil {
		meta.FrontMatter = map[string]interface{}{}
	}

	return &core.RequestContext{
		RequestID:     uuid.NewString(),
		Path:          path,
		Method:        method,
		Version:       version,
		Headers:       hs,
		QueryParams:   qs,
		Content:       meta,
		ThemeConfig:   themeCfg,
		PluginConfigs: pluginCfgs,
		Response:      core.NewResponseSpec(),
	}
}
