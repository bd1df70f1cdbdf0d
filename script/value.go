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

package script

import (
	"encoding/json"
	"fmt"
	"math"
)

// maxDepth bounds Canonicalize recursion.  Cyclic objects exported
// from a script would otherwise never terminate.
const maxDepth = 200

// Canonicalize reduces an exported script value to the JSON-equivalent
// set: nil, bool, float64, string, []interface{}, and
// map[string]interface{}.
//
// Non-finite numbers become nil.  Functions, symbols, and anything
// else that can't be represented as JSON is a ConversionError, as are
// values nested (or cyclic) beyond maxDepth.
func Canonicalize(x interface{}) (interface{}, error) {
	return canonicalize(x, 0)
}

func canonicalize(x interface{}, depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, &ConversionError{Msg: "value nested too deeply (cyclic?)"}
	}
	switch v := x.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil
		}
		return v, nil
	case float32:
		return canonicalize(float64(v), depth)
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, &ConversionError{Msg: fmt.Sprintf("bad number %q", v)}
		}
		return canonicalize(f, depth)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			c, err := canonicalize(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			c, err := canonicalize(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	default:
		// Last chance for exported structs and named types.
		js, err := json.Marshal(x)
		if err != nil {
			return nil, &ConversionError{Msg: fmt.Sprintf("cannot represent %T as JSON", x)}
		}
		var y interface{}
		if err := json.Unmarshal(js, &y); err != nil {
			return nil, &ConversionError{Msg: fmt.Sprintf("cannot represent %T as JSON", x)}
		}
		return y, nil
	}
}
