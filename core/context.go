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

// Package core defines the value types that travel through a request:
// the request context, the response spec, and the recommendations that
// plugins accumulate along the way.
//
// Everything here is JSON-equivalent data.  A context crosses the
// boundary into a scripting engine as a JSON snapshot and comes back
// the same way, so all types marshal to the exact shapes the scripts
// see.
package core

import "encoding/json"

// ContentKind classifies what the resolver found for a request path.
type ContentKind string

const (
	ContentAsset ContentKind = "asset"
	ContentHTML  ContentKind = "html"
	ContentJSON  ContentKind = "json"
)

// ContentMeta is what the content resolver contributes to a request
// context: the kind of content behind the path, its front matter, and
// (when the content lives in a file) where the body bytes are.
type ContentMeta struct {
	Kind        ContentKind            `json:"kind"`
	FrontMatter map[string]interface{} `json:"frontMatter"`
	BodyPath    string                 `json:"bodyPath,omitempty"`
}

// RequestContext carries one request through the plugin chain, the
// theme, and the render pipeline.
//
// The middleware owns the authoritative copy.  Actors only ever see
// snapshots (see Copy), and the middleware adopts a returned context
// only when the call that produced it succeeded.
type RequestContext struct {
	RequestID   string              `json:"requestId"`
	Path        string              `json:"path"`
	Method      string              `json:"method"`
	Version     string              `json:"version"`
	Headers     map[string][]string `json:"headers"`
	QueryParams map[string][]string `json:"queryParams"`

	Content       ContentMeta                       `json:"content"`
	ThemeConfig   map[string]interface{}            `json:"themeConfig"`
	PluginConfigs map[string]map[string]interface{} `json:"pluginConfigs"`

	Recommendations Recommendations `json:"recommendations"`
	Response        ResponseSpec    `json:"response"`
}

// Copy returns a deep copy made by a JSON round-trip, which also
// canonicalizes any script-provided values to plain Go data.
func (c *RequestContext) Copy() (*RequestContext, error) {
	js, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var o RequestContext
	if err := json.Unmarshal(js, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// PluginConfig returns the configuration for the given plugin id,
// which is never nil.
func (c *RequestContext) PluginConfig(id string) map[string]interface{} {
	if cfg, have := c.PluginConfigs[id]; have && cfg != nil {
		return cfg
	}
	return map[string]interface{}{}
}
