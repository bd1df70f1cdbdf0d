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
	"encoding/json"
	"fmt"

	"github.com/whisper-cms/whisper/core"
)

// ctxShimSrc is loaded into every engine before any plugin or theme.
// It gives scripts a case-insensitive view over the request headers so
// they don't have to know about canonical names.
const ctxShimSrc = `
var __wrapCtx = function (ctx) {
	var index = {};
	var hs = (ctx && ctx.headers) || {};
	for (var name in hs) {
		index[name.toLowerCase()] = hs[name];
	}
	return {
		ctx: ctx,
		get: function (name) {
			var vs = index[String(name).toLowerCase()];
			return vs && vs.length ? vs[0] : null;
		},
		all: function (name) {
			return index[String(name).toLowerCase()] || [];
		},
		has: function (name) {
			return String(name).toLowerCase() in index;
		},
		entries: function () {
			var out = [];
			for (var name in hs) {
				for (var i = 0; i < hs[name].length; i++) {
					out.push([name, hs[name][i]]);
				}
			}
			return out;
		}
	};
};
`

// Snapshot converts a context to the plain data a script receives.
// The result shares nothing with the original, so scripts can claw at
// it freely.
func Snapshot(rc *core.RequestContext) (map[string]interface{}, error) {
	js, err := json.Marshal(rc)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeContext folds a hook's return value back into the context.
//
// Scripts only get a say over the response spec and the
// recommendations; the request side of the context is the host's.
// The response spec is replaced wholesale (status defaulting to 200,
// headers with invalid names or values skipped).  Recommendations are
// append-only: entries beyond what the snapshot already carried are
// taken over, stamped with source when the script didn't name itself.
//
// A nil or non-object return leaves the context unchanged.  Anything
// structurally wrong is a BridgeError and the caller keeps prior.
func MergeContext(orig *core.RequestContext, returned interface{}, source string) (*core.RequestContext, error) {
	obj, ok := returned.(map[string]interface{})
	if !ok {
		out, err := orig.Copy()
		if err != nil {
			return nil, &BridgeError{Source: source, Err: err}
		}
		return out, nil
	}

	out, err := orig.Copy()
	if err != nil {
		return nil, &BridgeError{Source: source, Err: err}
	}

	if raw, have := obj["recommendations"]; have && raw != nil {
		recs, err := parseRecommendations(raw, source)
		if err != nil {
			return nil, &BridgeError{Source: source, Err: err}
		}
		appendNew(&out.Recommendations, recs)
	}

	if raw, have := obj["response"]; have && raw != nil {
		spec, err := parseResponseSpec(raw)
		if err != nil {
			return nil, &BridgeError{Source: source, Err: err}
		}
		out.Response = *spec
	}

	return out, nil
}

func parseRecommendations(raw interface{}, source string) (*core.Recommendations, error) {
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var recs core.Recommendations
	if err := json.Unmarshal(js, &recs); err != nil {
		return nil, err
	}

	for i := range recs.HeaderPatches {
		p := &recs.HeaderPatches[i]
		switch p.Op {
		case core.HeaderSet, core.HeaderAppend, core.HeaderRemove:
		default:
			return nil, fmt.Errorf("unknown header patch op %q", p.Op)
		}
		if p.SourcePlugin == "" {
			p.SourcePlugin = source
		}
	}
	for i := range recs.ModelPatches {
		if recs.ModelPatches[i].SourcePlugin == "" {
			recs.ModelPatches[i].SourcePlugin = source
		}
	}
	for i := range recs.BodyPatches {
		p := &recs.BodyPatches[i]
		if p.Kind == core.BodyPatchHTMLDom {
			for _, op := range p.Ops {
				if !core.KnownDomOp(op.Kind) {
					return nil, fmt.Errorf("unknown dom op %q", op.Kind)
				}
			}
		}
		if p.SourcePlugin == "" {
			p.SourcePlugin = source
		}
	}
	return &recs, nil
}

// appendNew takes over only the entries past what dst already has.
// Scripts receive the accumulated lists and push onto them, so the
// shared prefix is the part the host already knows.
func appendNew(dst *core.Recommendations, got *core.Recommendations) {
	if n := len(dst.HeaderPatches); len(got.HeaderPatches) > n {
		dst.HeaderPatches = append(dst.HeaderPatches, got.HeaderPatches[n:]...)
	}
	if n := len(dst.ModelPatches); len(got.ModelPatches) > n {
		dst.ModelPatches = append(dst.ModelPatches, got.ModelPatches[n:]...)
	}
	if n := len(dst.BodyPatches); len(got.BodyPatches) > n {
		dst.BodyPatches = append(dst.BodyPatches, got.BodyPatches[n:]...)
	}
}

func parseResponseSpec(raw interface{}) (*core.ResponseSpec, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response spec is not an object")
	}

	spec := core.NewResponseSpec()

	if s, have := obj["status"]; have && s != nil {
		f, ok := s.(float64)
		if !ok || f < 100 || f > 599 {
			return nil, fmt.Errorf("bad response status %v", s)
		}
		spec.Status = int(f)
	}

	if hs, have := obj["headers"]; have && hs != nil {
		list, ok := hs.([]interface{})
		if !ok {
			return nil, fmt.Errorf("response headers is not a list")
		}
		for _, e := range list {
			js, err := json.Marshal(e)
			if err != nil {
				continue
			}
			var h core.Header
			if err := json.Unmarshal(js, &h); err != nil {
				continue
			}
			if !core.ValidHeaderName(h.Name) || !core.ValidHeaderValue(h.Value) {
				continue
			}
			spec.Headers = append(spec.Headers, h)
		}
	}

	if b, have := obj["body"]; have && b != nil {
		js, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		var body core.BodySpec
		if err := json.Unmarshal(js, &body); err != nil {
			return nil, err
		}
		spec.Body = body
	}

	return &spec, nil
}
