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

// Recommendations is the append-only record of what plugins would like
// to happen to the response.  Order within each list is the order the
// patches were recommended in, and application preserves it.
type Recommendations struct {
	HeaderPatches []HeaderPatch `json:"headerPatches"`
	ModelPatches  []ModelPatch  `json:"modelPatches"`
	BodyPatches   []BodyPatch   `json:"bodyPatches"`
}

// Append adds another set of recommendations after the existing ones.
func (r *Recommendations) Append(o Recommendations) {
	r.HeaderPatches = append(r.HeaderPatches, o.HeaderPatches...)
	r.ModelPatches = append(r.ModelPatches, o.ModelPatches...)
	r.BodyPatches = append(r.BodyPatches, o.BodyPatches...)
}

// IsEmpty reports whether nothing has been recommended.
func (r *Recommendations) IsEmpty() bool {
	return len(r.HeaderPatches) == 0 && len(r.ModelPatches) == 0 && len(r.BodyPatches) == 0
}

// MarshalJSON always writes the three lists as arrays, never null.
// Scripts push onto them, and pushing onto null is a TypeError.
func (r Recommendations) MarshalJSON() ([]byte, error) {
	hp, mp, bp := r.HeaderPatches, r.ModelPatches, r.BodyPatches
	if hp == nil {
		hp = []HeaderPatch{}
	}
	if mp == nil {
		mp = []ModelPatch{}
	}
	if bp == nil {
		bp = []BodyPatch{}
	}
	return json.Marshal(struct {
		HeaderPatches []HeaderPatch `json:"headerPatches"`
		ModelPatches  []ModelPatch  `json:"modelPatches"`
		BodyPatches   []BodyPatch   `json:"bodyPatches"`
	}{hp, mp, bp})
}

// HeaderOp says what a HeaderPatch does.
type HeaderOp string

const (
	HeaderSet    HeaderOp = "set"
	HeaderAppend HeaderOp = "append"
	HeaderRemove HeaderOp = "remove"
)

// HeaderPatch is a recommended change to one response header.
// Patches with invalid names or values are dropped silently when
// applied, not when recommended.
type HeaderPatch struct {
	Op           HeaderOp `json:"op"`
	Name         string   `json:"name"`
	Value        string   `json:"value,omitempty"`
	SourcePlugin string   `json:"sourcePlugin"`
}

// ModelPatch is an RFC 6902 patch document aimed at the model of an
// HtmlTemplate body.  For any other body kind it is ignored.
type ModelPatch struct {
	Patch        interface{} `json:"patch"`
	SourcePlugin string      `json:"sourcePlugin"`
}

// BodyPatchKind discriminates the body patch variants.
type BodyPatchKind string

const (
	BodyPatchRegex     BodyPatchKind = "regex"
	BodyPatchHTMLDom   BodyPatchKind = "htmlDom"
	BodyPatchJSONPatch BodyPatchKind = "jsonPatch"
)

// BodyPatch is a recommended transformation of the rendered body.
// Regex patches run on any body; htmlDom patches only apply to HTML
// bodies and jsonPatch patches only to JSON bodies.
type BodyPatch struct {
	Kind BodyPatchKind

	// Pattern and Replacement for BodyPatchRegex.
	Pattern     string
	Replacement string

	// Selector and Ops for BodyPatchHTMLDom.
	Selector string
	Ops      []DomOp

	// Patch for BodyPatchJSONPatch (an RFC 6902 document).
	Patch interface{}

	SourcePlugin string
}

// DomOpKind names one structural HTML operation.
type DomOpKind string

const (
	DomSetAttr         DomOpKind = "setAttr"
	DomRemoveAttr      DomOpKind = "removeAttr"
	DomAddClass        DomOpKind = "addClass"
	DomRemoveClass     DomOpKind = "removeClass"
	DomSetInnerHTML    DomOpKind = "setInnerHtml"
	DomSetInnerText    DomOpKind = "setInnerText"
	DomAppendHTML      DomOpKind = "appendHtml"
	DomPrependHTML     DomOpKind = "prependHtml"
	DomReplaceWithHTML DomOpKind = "replaceWithHtml"
	DomReplaceWithText DomOpKind = "replaceWithText"
	DomInsertBeforeH   DomOpKind = "insertBeforeHtml"
	DomInsertAfterH    DomOpKind = "insertAfterHtml"
	DomInsertBeforeT   DomOpKind = "insertBeforeText"
	DomInsertAfterT    DomOpKind = "insertAfterText"
	DomRemove          DomOpKind = "remove"
	DomUnwrap          DomOpKind = "unwrap"
)

// DomOp is one operation applied to every element a selector matched.
// Which payload fields matter depends on the kind; Text payloads are
// HTML-escaped on output, Html payloads are parsed as markup.
type DomOp struct {
	Kind  DomOpKind `json:"op"`
	Name  string    `json:"name,omitempty"`
	Value string    `json:"value,omitempty"`
	HTML  string    `json:"html,omitempty"`
	Text  string    `json:"text,omitempty"`
}

var domOpKinds = map[DomOpKind]bool{
	DomSetAttr: true, DomRemoveAttr: true,
	DomAddClass: true, DomRemoveClass: true,
	DomSetInnerHTML: true, DomSetInnerText: true,
	DomAppendHTML: true, DomPrependHTML: true,
	DomReplaceWithHTML: true, DomReplaceWithText: true,
	DomInsertBeforeH: true, DomInsertAfterH: true,
	DomInsertBeforeT: true, DomInsertAfterT: true,
	DomRemove: true, DomUnwrap: true,
}

// KnownDomOp reports whether k names a supported operation.
func KnownDomOp(k DomOpKind) bool { return domOpKinds[k] }

// MarshalJSON writes the tagged shape scripts recommend patches in.
func (p BodyPatch) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"kind":         string(p.Kind),
		"sourcePlugin": p.SourcePlugin,
	}
	switch p.Kind {
	case BodyPatchRegex:
		m["pattern"] = p.Pattern
		m["replacement"] = p.Replacement
	case BodyPatchHTMLDom:
		m["selector"] = p.Selector
		ops := p.Ops
		if ops == nil {
			ops = []DomOp{}
		}
		m["ops"] = ops
	case BodyPatchJSONPatch:
		m["patch"] = p.Patch
	default:
		return nil, fmt.Errorf("unknown body patch kind %q", p.Kind)
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses the tagged shape written by MarshalJSON.
func (p *BodyPatch) UnmarshalJSON(bs []byte) error {
	var m struct {
		Kind         string      `json:"kind"`
		Pattern      string      `json:"pattern"`
		Replacement  string      `json:"replacement"`
		Selector     string      `json:"selector"`
		Ops          []DomOp     `json:"ops"`
		Patch        interface{} `json:"patch"`
		SourcePlugin string      `json:"sourcePlugin"`
	}
	if err := json.Unmarshal(bs, &m); err != nil {
		return err
	}
	switch BodyPatchKind(m.Kind) {
	case BodyPatchRegex:
		*p = BodyPatch{Kind: BodyPatchRegex, Pattern: m.Pattern, Replacement: m.Replacement, SourcePlugin: m.SourcePlugin}
	case BodyPatchHTMLDom:
		*p = BodyPatch{Kind: BodyPatchHTMLDom, Selector: m.Selector, Ops: m.Ops, SourcePlugin: m.SourcePlugin}
	case BodyPatchJSONPatch:
		*p = BodyPatch{Kind: BodyPatchJSONPatch, Patch: m.Patch, SourcePlugin: m.SourcePlugin}
	default:
		return fmt.Errorf("unknown body patch kind %q", m.Kind)
	}
	return nil
}
