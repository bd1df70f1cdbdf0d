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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whisper-cms/whisper/core"
)

func compile(t *testing.T, pairs ...string) []regexPatch {
	t.Helper()
	var patches []core.BodyPatch
	for i := 0; i < len(pairs); i += 2 {
		patches = append(patches, core.BodyPatch{
			Kind: core.BodyPatchRegex, Pattern: pairs[i], Replacement: pairs[i+1], SourcePlugin: "t",
		})
	}
	compiled, err := compileRegexPatches(patches)
	require.NoError(t, err)
	return compiled
}

func TestRegexWriterBasic(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "cat", "dog"), 0)

	_, err := w.Write([]byte("the cat sat on the cat"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "the dog sat on the dog", buf.String())
}

func TestRegexWriterMatchAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "cat", "dog"), 16)

	// The match straddles two writes; the tail window keeps it whole.
	_, err := w.Write([]byte("the ca"))
	require.NoError(t, err)
	_, err = w.Write([]byte("t sat"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "the dog sat", buf.String())
}

func TestRegexWriterStreamsLargeBody(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "b+", "B"), 8)

	in := strings.Repeat("a", 100) + "bbbb" + strings.Repeat("c", 100)
	for i := 0; i < len(in); i += 7 {
		end := i + 7
		if end > len(in) {
			end = len(in)
		}
		_, err := w.Write([]byte(in[i:end]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.Equal(t, strings.Repeat("a", 100)+"B"+strings.Repeat("c", 100), buf.String())
}

func TestRegexWriterRuneBoundary(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "é", "e"), 4)

	// Split a multi-byte rune across writes.
	in := []byte("caf\xc3\xa9 caf\xc3\xa9 caf\xc3\xa9")
	for _, b := range in {
		_, err := w.Write([]byte{b})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.Equal(t, "cafe cafe cafe", buf.String())
}

func TestRegexWriterInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "x", "y"), 4)

	_, werr := w.Write([]byte{'a', 0xff, 0xfe, 'b'})
	err := w.Close()
	if werr == nil && err == nil {
		t.Fatal("invalid utf-8 accepted")
	}
	if werr != nil {
		require.Equal(t, ErrIO, KindOf(werr))
	} else {
		require.Equal(t, ErrIO, KindOf(err))
	}
}

func TestRegexWriterOrdered(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegexWriter(&buf, compile(t, "a", "b", "b", "c"), 0)

	_, err := w.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "c", buf.String())
}
