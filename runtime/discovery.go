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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// pluginManifest is the optional plugin.yaml next to a plugin.js.
type pluginManifest struct {
	Name   string                 `yaml:"name"`
	Order  int                    `yaml:"order"`
	Config map[string]interface{} `yaml:"config"`
}

// themeManifest is the theme.yaml next to a theme.js.
type themeManifest struct {
	Name   string                 `yaml:"name"`
	Mount  string                 `yaml:"mount"`
	Config map[string]interface{} `yaml:"config"`
}

// DiscoverPlugins loads plugin specs from a directory laid out as
// <dir>/<id>/plugin.js with an optional <dir>/<id>/plugin.yaml.
// Order is the manifest's order key, ties broken by id, so discovery
// is deterministic across hosts.
func DiscoverPlugins(dir string) ([]PluginSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plugin dir %s: %w", dir, err)
	}

	type ordered struct {
		spec  PluginSpec
		order int
	}
	var found []ordered
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		src, err := os.ReadFile(filepath.Join(dir, id, "plugin.js"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read plugin %s: %w", id, err)
		}

		var m pluginManifest
		if bs, err := os.ReadFile(filepath.Join(dir, id, "plugin.yaml")); err == nil {
			if err := yaml.Unmarshal(bs, &m); err != nil {
				return nil, fmt.Errorf("parse manifest for plugin %s: %w", id, err)
			}
		}
		name := m.Name
		if name == "" {
			name = id
		}
		found = append(found, ordered{
			spec:  PluginSpec{ID: id, Name: name, Source: string(src), Config: m.Config},
			order: m.Order,
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].order != found[j].order {
			return found[i].order < found[j].order
		}
		return found[i].spec.ID < found[j].spec.ID
	})

	specs := make([]PluginSpec, 0, len(found))
	for _, f := range found {
		specs = append(specs, f.spec)
	}
	return specs, nil
}

// DiscoverThemes loads theme specs from <dir>/<id>/theme.js plus an
// optional <dir>/<id>/theme.yaml naming the mount (default "/").
// Themes are ordered by id.
func DiscoverThemes(dir string) ([]ThemeSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read theme dir %s: %w", dir, err)
	}

	var specs []ThemeSpec
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		src, err := os.ReadFile(filepath.Join(dir, id, "theme.js"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read theme %s: %w", id, err)
		}

		var m themeManifest
		if bs, err := os.ReadFile(filepath.Join(dir, id, "theme.yaml")); err == nil {
			if err := yaml.Unmarshal(bs, &m); err != nil {
				return nil, fmt.Errorf("parse manifest for theme %s: %w", id, err)
			}
		}
		name := m.Name
		if name == "" {
			name = id
		}
		mount := m.Mount
		if mount == "" {
			mount = "/"
		}
		specs = append(specs, ThemeSpec{ID: id, Name: name, Mount: mount, Source: string(src), Config: m.Config})
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs, nil
}
