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

// Package resolve turns request paths into content: path
// normalization, front matter extraction, and request context
// assembly.
package resolve

import (
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const bom = "\uFEFF"

// ParseFrontMatter splits a content file into front matter and body.
//
// Precedence is fixed: a fenced "---" YAML block, else a fenced "+++"
// TOML block, else (for documents whose first byte is '{') the whole
// text as one JSON object.  Any parse failure, including an
// unterminated fence, degrades to "no front matter" with the full text
// as body.  It never returns an error.
func ParseFrontMatter(text string) (map[string]interface{}, string) {
	text = strings.TrimPrefix(text, bom)

	if inner, body, opened, terminated := fenced(text, "---"); opened {
		var fm map[string]interface{}
		if terminated {
			if err := yaml.Unmarshal([]byte(inner), &fm); err == nil && fm != nil {
				return fm, body
			}
		}
		return map[string]interface{}{}, text
	}

	if inner, body, opened, terminated := fenced(text, "+++"); opened {
		var fm map[string]interface{}
		if terminated {
			if err := toml.Unmarshal([]byte(inner), &fm); err == nil && fm != nil {
				return fm, body
			}
		}
		return map[string]interface{}{}, text
	}

	if strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), "{") {
		var fm map[string]interface{}
		if err := json.Unmarshal([]byte(text), &fm); err == nil && fm != nil {
			return fm, ""
		}
		return map[string]interface{}{}, text
	}

	return map[string]interface{}{}, text
}

// fenced extracts the block between an opening fence on the first line
// and a closing fence on its own line.  opened is false when the text
// doesn't start with the fence; terminated is false when the opening
// fence is never closed.
func fenced(text, fence string) (inner, body string, opened, terminated bool) {
	rest, found := strings.CutPrefix(text, fence)
	if !found {
		return "", "", false, false
	}
	rest, found = cutLineBreak(rest)
	if !found {
		return "", "", false, false
	}

	for off := 0; off <= len(rest); {
		idx := strings.Index(rest[off:], fence)
		if idx < 0 {
			return "", "", true, false
		}
		at := off + idx
		lineStart := at == 0 || rest[at-1] == '\n'
		tail := rest[at+len(fence):]
		tailBody, lineEnd := cutLineBreak(tail)
		if lineStart && (lineEnd || tail == "") {
			if tail == "" {
				tailBody = ""
			}
			return rest[:at], tailBody, true, true
		}
		off = at + len(fence)
	}
	return "", "", true, false
}

// cutLineBreak removes one leading "\n" or "\r\n".
func cutLineBreak(s string) (string, bool) {
	if after, ok := strings.CutPrefix(s, "\r\n"); ok {
		return after, true
	}
	if after, ok := strings.CutPrefix(s, "\n"); ok {
		return after, true
	}
	return s, false
}
