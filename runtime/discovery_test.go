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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, dir, id, js, manifest string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, id), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, id, "plugin.js"), []byte(js), 0644))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id, "plugin.yaml"), []byte(manifest), 0644))
	}
}

func TestDiscoverPlugins(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "zeta", `var zeta = {};`, "order: 1\n")
	writePlugin(t, dir, "alpha", `var alpha = {};`, "order: 2\nname: Alpha\nconfig:\n  level: 3\n")
	writePlugin(t, dir, "mid", `var mid = {};`, "order: 1\n")
	// A directory without plugin.js is skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-plugin"), 0755))

	specs, err := DiscoverPlugins(dir)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	// Manifest order first, id ties the rest.
	require.Equal(t, "mid", specs[0].ID)
	require.Equal(t, "zeta", specs[1].ID)
	require.Equal(t, "alpha", specs[2].ID)
	require.Equal(t, "Alpha", specs[2].Name)
	require.EqualValues(t, 3, specs[2].Config["level"])
}

func TestDiscoverThemes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "theme.js"),
		[]byte(`var blog = {handle: function (ctx) { return ctx; }};`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "theme.yaml"),
		[]byte("mount: /blog\nname: Blog\n"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "base"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base", "theme.js"),
		[]byte(`var base = {handle: function (ctx) { return ctx; }};`), 0644))

	specs, err := DiscoverThemes(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	require.Equal(t, "base", specs[0].ID)
	require.Equal(t, "/", specs[0].Mount)
	require.Equal(t, "blog", specs[1].ID)
	require.Equal(t, "/blog", specs[1].Mount)
	require.Equal(t, "Blog", specs[1].Name)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := DiscoverPlugins(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
