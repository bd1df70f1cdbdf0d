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

// Package runtime hosts plugins and themes: the context bridge between
// Go and script land, the runtimes that own scripting engines, and the
// actors that confine those engines to single OS threads.
package runtime

import "fmt"

// BootstrapError is a plugin or theme that failed to load.  Bootstrap
// errors abort startup; nothing is served with a half-loaded registry.
type BootstrapError struct {
	Kind string // "plugin" or "theme"
	ID   string
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("%s %s failed to load: %v", e.Kind, e.ID, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// HookError is a plugin or theme hook that ran and failed.
type HookError struct {
	ID   string
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.ID, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// BridgeError is a script that returned something the context bridge
// could not take back: malformed recommendations, an unknown patch
// kind, a bad response spec.  The call that produced it counts as
// failed and the prior context stands.
type BridgeError struct {
	Source string
	Err    error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("context bridge (from %s): %v", e.Source, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }
