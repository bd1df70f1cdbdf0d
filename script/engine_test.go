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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	e := New()

	v, err := e.Evaluate(`1 + 2`)
	require.NoError(t, err)
	require.Equal(t, float64(3), v)

	v, err = e.Evaluate(`({likes: "chips", n: [1, 2]})`)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"likes": "chips",
		"n":     []interface{}{float64(1), float64(2)},
	}, v)

	_, err = e.Evaluate(`this is not javascript`)
	require.Error(t, err)
	require.IsType(t, &EvalError{}, err)
}

func TestLoadModuleAndCall(t *testing.T) {
	e := New()

	err := e.LoadModule("greeter", `
		var greeter = {
			prefix: "hello, ",
			greet: function (who) { return this.prefix + who; }
		};
	`)
	require.NoError(t, err)

	v, err := e.Call("greeter.greet", "world")
	require.NoError(t, err)
	require.Equal(t, "hello, world", v)
}

func TestCallMissingFunction(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadModule("p", `var p = {before: function (ctx) { return ctx; }};`))

	// Present hook works.
	v, err := e.Call("p.before", map[string]interface{}{"x": float64(1)})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"x": float64(1)}, v)

	// Absent hook, absent module, and non-callable slot all read as
	// "is not a function".
	for _, path := range []string{"p.after", "nosuch.before", "p.prefix.deeper", "p"} {
		_, err := e.Call(path)
		require.Error(t, err, path)
		require.True(t, IsNotFunction(err), "path %s gave %v", path, err)
	}
}

func TestCallPropagatesThrow(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadModule("bad", `var bad = {before: function () { throw new Error("boom"); }};`))

	_, err := e.Call("bad.before")
	require.Error(t, err)
	require.IsType(t, &CallError{}, err)
	require.Contains(t, err.Error(), "boom")
	require.False(t, IsNotFunction(err))
}

func TestCanonicalize(t *testing.T) {
	e := New()

	// Non-finite numbers collapse to null.
	v, err := e.Evaluate(`({a: 0/0, b: 1/0, c: -1/0, d: 42})`)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"a": nil, "b": nil, "c": nil, "d": float64(42),
	}, v)

	// Integers up to 2^53 survive exactly.
	v, err = e.Evaluate(`Math.pow(2, 53)`)
	require.NoError(t, err)
	require.Equal(t, float64(9007199254740992), v)

	// Functions can't cross.
	_, err = e.Evaluate(`(function () {})`)
	require.Error(t, err)
	require.IsType(t, &ConversionError{}, err)
}

func TestRoundTrip(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadModule("id", `var id = {echo: function (x) { return x; }};`))

	in := map[string]interface{}{
		"s":    "str",
		"n":    float64(9007199254740992),
		"b":    true,
		"null": nil,
		"arr":  []interface{}{float64(1), "two", map[string]interface{}{"three": float64(3)}},
	}
	out, err := e.Call("id.echo", in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestNestedPushSurvivesBridge(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadModule("acc", `
		var acc = {
			add: function (doc) {
				doc.items.push({n: doc.items.length});
				doc.tags.push("extra");
				return doc;
			}
		};`))

	in := map[string]interface{}{
		"items": []interface{}{},
		"tags":  []interface{}{"seed"},
	}
	out, err := e.Call("acc.add", in)
	require.NoError(t, err)

	doc, ok := out.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{
		map[string]interface{}{"n": float64(0)},
	}, doc["items"])
	require.Equal(t, []interface{}{"seed", "extra"}, doc["tags"])

	// The argument crossed by value.
	require.Empty(t, in["items"])
}
