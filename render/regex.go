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
	"io"
	"regexp"
	"unicode/utf8"

	"github.com/whisper-cms/whisper/core"
)

// DefaultTailWindow is how many trailing bytes the streaming regex
// writer holds back so matches spanning chunk boundaries survive.
const DefaultTailWindow = 4096

type regexPatch struct {
	re          *regexp.Regexp
	replacement string
}

// compileRegexPatches compiles the Regex-kind patches in order.  Any
// invalid pattern is an InvalidRegex error.
func compileRegexPatches(patches []core.BodyPatch) ([]regexPatch, error) {
	out := make([]regexPatch, 0, len(patches))
	for _, p := range patches {
		if p.Kind != core.BodyPatchRegex {
			continue
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidRegex, Msg: "pattern " + p.Pattern, Err: err}
		}
		out = append(out, regexPatch{re: re, replacement: p.Replacement})
	}
	return out, nil
}

func (p regexPatch) apply(s string) string {
	return p.re.ReplaceAllString(s, p.replacement)
}

func applyRegexPatches(s string, patches []regexPatch) string {
	for _, p := range patches {
		s = p.apply(s)
	}
	return s
}

// RegexWriter applies an ordered sequence of global regex
// substitutions to a byte stream without holding the whole stream in
// memory.  It keeps a tail window buffered so a match that straddles
// two writes is still seen in one piece; patterns longer than the
// window can miss.
//
// Input must be UTF-8; invalid bytes are an IO error.  Close flushes
// the remaining tail through the patches.
type RegexWriter struct {
	dst     io.Writer
	patches []regexPatch
	tail    int
	buf     []byte
	closed  bool
}

// NewRegexWriter builds a writer over dst.  tailWindow <= 0 selects
// DefaultTailWindow.
func NewRegexWriter(dst io.Writer, patches []regexPatch, tailWindow int) *RegexWriter {
	if tailWindow <= 0 {
		tailWindow = DefaultTailWindow
	}
	return &RegexWriter{dst: dst, patches: patches, tail: tailWindow}
}

func (w *RegexWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, &Error{Kind: ErrIO, Msg: "write after close"}
	}
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.tail {
		if err := w.flush(len(w.buf) - w.tail); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close transforms and emits whatever is still buffered.
func (w *RegexWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.flush(len(w.buf))
}

// flush transforms buf[:n] (backed off to a rune boundary) and writes
// the result out.
func (w *RegexWriter) flush(n int) error {
	for n > 0 && n < len(w.buf) && !utf8.RuneStart(w.buf[n]) {
		n--
	}
	if n == 0 {
		return nil
	}
	chunk := w.buf[:n]
	if !utf8.Valid(chunk) {
		return &Error{Kind: ErrIO, Msg: "body is not valid UTF-8"}
	}
	out := applyRegexPatches(string(chunk), w.patches)
	w.buf = w.buf[n:]
	if _, err := io.WriteString(w.dst, out); err != nil {
		return &Error{Kind: ErrIO, Msg: "write body", Err: err}
	}
	return nil
}
