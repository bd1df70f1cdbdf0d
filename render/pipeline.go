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
	"bytes"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/whisper-cms/whisper/core"
)

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// Rendered is the realized response body.
type Rendered struct {
	Body        []byte
	ContentType string
}

// Pipeline turns a finalized body spec plus the recommended body
// patches into response bytes.
//
// Stage order is fixed: template (or literal) first, then every Regex
// patch in recommendation order, then exactly one structural pass (DOM
// rewriting for HTML bodies, RFC 6902 for JSON bodies).  HtmlDom
// patches never apply to JSON bodies and JsonPatch patches never apply
// to HTML bodies.
type Pipeline struct {
	Templates *Templates

	// TailWindow sizes the streaming regex writer's held-back
	// buffer.  Zero means DefaultTailWindow.
	TailWindow int
}

func NewPipeline(tailWindow int) *Pipeline {
	return &Pipeline{Templates: NewTemplates(), TailWindow: tailWindow}
}

// Render realizes the body.  Any error fails the request; no partial
// body is ever returned.
func (p *Pipeline) Render(body core.BodySpec, patches []core.BodyPatch) (*Rendered, error) {
	switch body.Kind {
	case core.BodyNone:
		return &Rendered{Body: []byte{}}, nil
	case core.BodyUnset, core.BodyKind(""):
		return nil, &Error{Kind: ErrMissingBody, Msg: "response body was never set"}
	case core.BodyHTMLTemplate:
		text, err := p.Templates.Render(body.Template, body.Model)
		if err != nil {
			return nil, err
		}
		return p.renderHTML(text, patches)
	case core.BodyHTMLString:
		return p.renderHTML(body.HTML, patches)
	case core.BodyJSON:
		return p.renderJSON(body.Value, patches)
	default:
		return nil, &Error{Kind: ErrMissingBody, Msg: "unknown body kind " + string(body.Kind)}
	}
}

func (p *Pipeline) renderHTML(text string, patches []core.BodyPatch) (*Rendered, error) {
	regexes, err := compileRegexPatches(patches)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := NewRegexWriter(&buf, regexes, p.TailWindow)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := buf.String()

	if hasKind(patches, core.BodyPatchHTMLDom) {
		out, err = ApplyDomPatches(out, patches)
		if err != nil {
			return nil, err
		}
	}

	return &Rendered{Body: []byte(out), ContentType: ContentTypeHTML}, nil
}

func (p *Pipeline) renderJSON(value interface{}, patches []core.BodyPatch) (*Rendered, error) {
	regexes, err := compileRegexPatches(patches)
	if err != nil {
		return nil, err
	}

	js, err := json.Marshal(value)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Msg: "serialize json body", Err: err}
	}

	text := applyRegexPatches(string(js), regexes)

	// The regex pass worked on text; prove it is still JSON before
	// the structural stage.
	var reparsed interface{}
	if err := json.Unmarshal([]byte(text), &reparsed); err != nil {
		return nil, &Error{Kind: ErrJSONAfterRegex, Msg: "body is no longer valid json after regex patches", Err: err}
	}
	doc, err := json.Marshal(reparsed)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Msg: "serialize json body", Err: err}
	}

	for _, bp := range patches {
		if bp.Kind != core.BodyPatchJSONPatch {
			continue
		}
		patchJS, err := json.Marshal(bp.Patch)
		if err != nil {
			return nil, &Error{Kind: ErrJSONPatch, Msg: "encode patch from " + bp.SourcePlugin, Err: err}
		}
		patch, err := jsonpatch.DecodePatch(patchJS)
		if err != nil {
			return nil, &Error{Kind: ErrJSONPatch, Msg: "decode patch from " + bp.SourcePlugin, Err: err}
		}
		doc, err = patch.Apply(doc)
		if err != nil {
			return nil, &Error{Kind: ErrJSONPatch, Msg: "apply patch from " + bp.SourcePlugin, Err: err}
		}
	}

	return &Rendered{Body: doc, ContentType: ContentTypeJSON}, nil
}

func hasKind(patches []core.BodyPatch, kind core.BodyPatchKind) bool {
	for _, p := range patches {
		if p.Kind == kind {
			return true
		}
	}
	return false
}
