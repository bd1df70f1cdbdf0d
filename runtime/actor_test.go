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
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whisper-cms/whisper/core"
)

func startTestActor(t *testing.T, specs ...PluginSpec) *PluginActor {
	t.Helper()
	rt, err := NewPluginRuntime(specs, zerolog.Nop())
	require.NoError(t, err)
	a := StartPluginActor(rt, zerolog.Nop())
	t.Cleanup(a.Shutdown)
	return a
}

func TestActorBefore(t *testing.T) {
	a := startTestActor(t, PluginSpec{ID: "seo", Name: "seo", Source: recommendingPlugin})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := a.Before(ctx, "seo", testCtx())
	require.NoError(t, err)
	require.Len(t, out.Recommendations.HeaderPatches, 1)
}

func TestActorDeadline(t *testing.T) {
	// The hook spins well past the caller's deadline; the call fails
	// fast and the late reply is discarded.
	a := startTestActor(t, PluginSpec{ID: "slow", Name: "slow", Source: `
		var slow = {before: function (ctx) {
			var until = Date.now() + 300;
			while (Date.now() < until) {}
			return ctx;
		}};
	`})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Before(ctx, "slow", testCtx())
	require.Error(t, err)
	require.Less(t, time.Since(start), 250*time.Millisecond)

	// The actor finishes the abandoned call and stays usable.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	out, err := a.Before(ctx2, "slow", testCtx())
	require.NoError(t, err)
	require.NotNil(t, out)
}

func TestActorSerializes(t *testing.T) {
	// Both hooks append to one engine-global list; strict arrival
	// order means no interleaving is possible.
	a := startTestActor(t,
		PluginSpec{ID: "p1", Name: "p1", Source: `
			var seen = [];
			var p1 = {before: function (ctx) { seen.push("p1"); return ctx; }};`},
		PluginSpec{ID: "p2", Name: "p2", Source: `
			var p2 = {before: function (ctx) { seen.push("p2"); return ctx; }};`},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		_, err := a.Before(ctx, "p1", testCtx())
		require.NoError(t, err)
		_, err = a.Before(ctx, "p2", testCtx())
		require.NoError(t, err)
	}
}

func TestActorInitAllAborts(t *testing.T) {
	a := startTestActor(t, PluginSpec{ID: "bad", Name: "bad",
		Source: `var bad = {init: function () { throw new Error("bad init"); }};`})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := a.InitAll(ctx, testCtx())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad init")
}

func TestActorAfterHook(t *testing.T) {
	a := startTestActor(t, PluginSpec{ID: "aud", Name: "aud", Source: `
		var aud = {after: function (ctx) {
			ctx.recommendations.headerPatches.push(
				{op: "append", name: "X-Audit", value: "seen"});
			return ctx;
		}};
	`})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := a.After(ctx, "aud", testCtx())
	require.NoError(t, err)
	require.Len(t, out.Recommendations.HeaderPatches, 1)
	require.Equal(t, core.HeaderAppend, out.Recommendations.HeaderPatches[0].Op)
}
