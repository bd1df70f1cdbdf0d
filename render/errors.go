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

// Package render realizes response bodies: template expansion, the
// ordered regex pass, and the structural pass (HTML DOM rewriting or
// RFC 6902 for JSON).
package render

import "fmt"

// ErrorKind classifies pipeline failures.  All of them fail the
// request; none are recovered.
type ErrorKind string

const (
	ErrInvalidRegex   ErrorKind = "invalidRegex"
	ErrDom            ErrorKind = "dom"
	ErrJSONAfterRegex ErrorKind = "jsonAfterRegex"
	ErrJSONPatch      ErrorKind = "jsonPatch"
	ErrTemplate       ErrorKind = "template"
	ErrIO             ErrorKind = "io"

	// ErrMissingBody is a body spec still unset at render time,
	// which means something upstream skipped the theme.
	ErrMissingBody ErrorKind = "missingBody"
)

// Error is a render pipeline failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("render %s: %s", e.Kind, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the render error kind, or "" for other errors.
func KindOf(err error) ErrorKind {
	if re, ok := err.(*Error); ok {
		return re.Kind
	}
	return ""
}
