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

package core

import (
	"encoding/json"
	"fmt"
)

// BodyKind discriminates the body variants of a ResponseSpec.
type BodyKind string

const (
	// BodyUnset means no theme has decided on a body yet.  A
	// response that is still Unset after the theme ran is an
	// internal error.
	BodyUnset BodyKind = "unset"

	// BodyNone is a deliberate empty body (204-style responses).
	BodyNone BodyKind = "none"

	BodyHTMLTemplate BodyKind = "htmlTemplate"
	BodyHTMLString   BodyKind = "htmlString"
	BodyJSON         BodyKind = "json"
)

// BodySpec describes the not-yet-rendered body of a response.
type BodySpec struct {
	Kind BodyKind

	// Template and Model for BodyHTMLTemplate.
	Template string
	Model    map[string]interface{}

	// HTML for BodyHTMLString.
	HTML string

	// Value for BodyJSON.
	Value interface{}
}

// Header is one response header.  The slice form preserves both the
// order headers were set in and duplicates from Append patches.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResponseSpec is the theme's declaration of the response: status,
// ordered headers, and a body that the render pipeline still has to
// realize.
type ResponseSpec struct {
	Status  int      `json:"status"`
	Headers []Header `json:"headers"`
	Body    BodySpec `json:"body"`
}

// NewResponseSpec returns a spec with the defaults scripts start from:
// status 200, no headers, body unset.
func NewResponseSpec() ResponseSpec {
	return ResponseSpec{
		Status: 200,
		Body:   BodySpec{Kind: BodyUnset},
	}
}

// SetHeader replaces every header with the given name (exact match)
// with a single one.
func (r *ResponseSpec) SetHeader(name, value string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	r.Headers = append(kept, Header{Name: name, Value: value})
}

// AppendHeader adds a header without touching existing ones.
func (r *ResponseSpec) AppendHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// RemoveHeader drops every header with the given name.  Removing a
// header that isn't there is fine.
func (r *ResponseSpec) RemoveHeader(name string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	r.Headers = kept
}

// HasHeader reports whether any header with the given name is set.
func (r *ResponseSpec) HasHeader(name string) bool {
	for _, h := range r.Headers {
		if h.Name == name {
			return true
		}
	}
	return false
}

// MarshalJSON writes headers as an array even when empty, since
// scripts push onto it.
func (r ResponseSpec) MarshalJSON() ([]byte, error) {
	hs := r.Headers
	if hs == nil {
		hs = []Header{}
	}
	return json.Marshal(struct {
		Status  int      `json:"status"`
		Headers []Header `json:"headers"`
		Body    BodySpec `json:"body"`
	}{r.Status, hs, r.Body})
}

// MarshalJSON writes the tagged shape scripts see:
//
//	{"kind":"htmlTemplate","template":"...","model":{...}}
//	{"kind":"htmlString","html":"..."}
//	{"kind":"json","value":...}
//	{"kind":"none"} / {"kind":"unset"}
func (b BodySpec) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"kind": string(b.Kind)}
	if b.Kind == "" {
		m["kind"] = string(BodyUnset)
	}
	switch b.Kind {
	case BodyHTMLTemplate:
		m["template"] = b.Template
		model := b.Model
		if model == nil {
			model = map[string]interface{}{}
		}
		m["model"] = model
	case BodyHTMLString:
		m["html"] = b.HTML
	case BodyJSON:
		m["value"] = b.Value
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses the tagged shape written by MarshalJSON.
func (b *BodySpec) UnmarshalJSON(bs []byte) error {
	var m struct {
		Kind     string                 `json:"kind"`
		Template string                 `json:"template"`
		Model    map[string]interface{} `json:"model"`
		HTML     string                 `json:"html"`
		Value    interface{}            `json:"value"`
	}
	if err := json.Unmarshal(bs, &m); err != nil {
		return err
	}
	switch BodyKind(m.Kind) {
	case BodyUnset, BodyKind(""):
		*b = BodySpec{Kind: BodyUnset}
	case BodyNone:
		*b = BodySpec{Kind: BodyNone}
	case BodyHTMLTemplate:
		model := m.Model
		if model == nil {
			model = map[string]interface{}{}
		}
		*b = BodySpec{Kind: BodyHTMLTemplate, Template: m.Template, Model: model}
	case BodyHTMLString:
		*b = BodySpec{Kind: BodyHTMLString, HTML: m.HTML}
	case BodyJSON:
		*b = BodySpec{Kind: BodyJSON, Value: m.Value}
	default:
		return fmt.Errorf("unknown body kind %q", m.Kind)
	}
	return nil
}
