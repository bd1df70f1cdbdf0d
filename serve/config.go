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

// Package serve wires a request through the whole core: resolve,
// before hooks under the breaker, theme dispatch, patch application,
// body render, after hooks, response.
package serve

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/whisper-cms/whisper/runtime"
)

// MountConfig binds a path prefix to a theme id in configuration.
type MountConfig struct {
	MountPath string `yaml:"mount_path"`
	ThemeID   string `yaml:"theme_id"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Config is the whisperd configuration file.
type Config struct {
	Listen string `yaml:"listen"`

	ContentDir string `yaml:"content_dir"`
	ContentDB  string `yaml:"content_db"`
	PluginDir  string `yaml:"plugin_dir"`
	ThemeDir   string `yaml:"theme_dir"`

	PluginTimeoutMS    int `yaml:"plugin_timeout_ms"`
	ThemeTimeoutMS     int `yaml:"theme_timeout_ms"`
	BreakerWindowSec   int `yaml:"breaker_window_sec"`
	BreakerMaxFailures int `yaml:"breaker_max_failures"`
	BreakerOpenSec     int `yaml:"breaker_open_sec"`
	RegexTailWindow    int `yaml:"regex_tail_window"`

	// ThemeMounts and PluginOrder override what discovery found.
	ThemeMounts []MountConfig `yaml:"theme_mounts"`
	PluginOrder []string      `yaml:"plugin_order"`

	ThemeConfig   map[string]interface{}            `yaml:"theme_config"`
	PluginConfigs map[string]map[string]interface{} `yaml:"plugin_configs"`

	Log LogConfig `yaml:"log"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Listen:             ":8080",
		PluginTimeoutMS:    100,
		ThemeTimeoutMS:     1000,
		BreakerWindowSec:   30,
		BreakerMaxFailures: 5,
		BreakerOpenSec:     30,
		RegexTailWindow:    4096,
		Log:                LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	bs, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return cfg, nil
}

// OrderThemes applies configured mounts to discovered themes.  The
// theme_mounts list is ordered: themes it names register first, in
// list order, and registration order is what breaks ties between
// equal mount prefixes.  Unnamed themes keep their discovered order
// after them.
func OrderThemes(themes []runtime.ThemeSpec, mounts []MountConfig) []runtime.ThemeSpec {
	if len(mounts) == 0 {
		return themes
	}
	byID := make(map[string]int, len(themes))
	for i, th := range themes {
		byID[th.ID] = i
	}
	out := make([]runtime.ThemeSpec, 0, len(themes))
	taken := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		i, ok := byID[m.ThemeID]
		if !ok || taken[m.ThemeID] {
			continue
		}
		th := themes[i]
		th.Mount = m.MountPath
		out = append(out, th)
		taken[m.ThemeID] = true
	}
	for _, th := range themes {
		if !taken[th.ID] {
			out = append(out, th)
		}
	}
	return out
}

// Breaker translates the file-level knobs into the middleware's terms.
func (c Config) Breaker() BreakerConfig {
	return BreakerConfig{
		CallTimeout: time.Duration(c.PluginTimeoutMS) * time.Millisecond,
		Window:      time.Duration(c.BreakerWindowSec) * time.Second,
		MaxFailures: c.BreakerMaxFailures,
		Open:        time.Duration(c.BreakerOpenSec) * time.Second,
	}
}

// ThemeTimeout is the per-render deadline.
func (c Config) ThemeTimeout() time.Duration {
	return time.Duration(c.ThemeTimeoutMS) * time.Millisecond
}
