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

package render

import (
	"sync"

	"github.com/aymerick/raymond"
)

// Templates renders handlebars-style template sources against a model,
// caching parsed templates by source.  Themes tend to hand the
// pipeline the same template on every request, so the cache pays off
// quickly.
type Templates struct {
	mu     sync.RWMutex
	parsed map[string]*raymond.Template
}

func NewTemplates() *Templates {
	return &Templates{parsed: map[string]*raymond.Template{}}
}

// Render expands source against model.  Parse and execution failures
// are Template errors.
func (t *Templates) Render(source string, model map[string]interface{}) (string, error) {
	t.mu.RLock()
	tpl := t.parsed[source]
	t.mu.RUnlock()

	if tpl == nil {
		var err error
		tpl, err = raymond.Parse(source)
		if err != nil {
			return "", &Error{Kind: ErrTemplate, Msg: "parse template", Err: err}
		}
		t.mu.Lock()
		t.parsed[source] = tpl
		t.mu.Unlock()
	}

	if model == nil {
		model = map[string]interface{}{}
	}
	out, err := tpl.Exec(model)
	if err != nil {
		return "", &Error{Kind: ErrTemplate, Msg: "execute template", Err: err}
	}
	return out, nil
}
