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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whisper-cms/whisper/core"
)

func domPatch(selector string, ops ...core.DomOp) []core.BodyPatch {
	return []core.BodyPatch{{Kind: core.BodyPatchHTMLDom, Selector: selector, Ops: ops, SourcePlugin: "t"}}
}

func apply(t *testing.T, input, selector string, ops ...core.DomOp) string {
	t.Helper()
	out, err := ApplyDomPatches(input, domPatch(selector, ops...))
	require.NoError(t, err)
	return out
}

func TestDomAttrOps(t *testing.T) {
	require.Equal(t, `<a href="/new">x</a>`,
		apply(t, `<a href="/old">x</a>`, "a", core.DomOp{Kind: core.DomSetAttr, Name: "href", Value: "/new"}))
	require.Equal(t, `<a rel="nofollow">x</a>`,
		apply(t, `<a>x</a>`, "a", core.DomOp{Kind: core.DomSetAttr, Name: "rel", Value: "nofollow"}))
	require.Equal(t, `<a>x</a>`,
		apply(t, `<a href="/old">x</a>`, "a", core.DomOp{Kind: core.DomRemoveAttr, Name: "href"}))
}

func TestDomClassOps(t *testing.T) {
	require.Equal(t, `<p class="a b">x</p>`,
		apply(t, `<p class="a">x</p>`, "p", core.DomOp{Kind: core.DomAddClass, Value: "b"}))
	// Adding a present token is a no-op.
	require.Equal(t, `<p class="a">x</p>`,
		apply(t, `<p class="a">x</p>`, "p", core.DomOp{Kind: core.DomAddClass, Value: "a"}))
	require.Equal(t, `<p class="a c">x</p>`,
		apply(t, `<p class="a b c b">x</p>`, "p", core.DomOp{Kind: core.DomRemoveClass, Value: "b"}))
	// An emptied class list drops the attribute.
	require.Equal(t, `<p>x</p>`,
		apply(t, `<p class="a">x</p>`, "p", core.DomOp{Kind: core.DomRemoveClass, Value: "a"}))
}

func TestDomContentOps(t *testing.T) {
	require.Equal(t, `<div><em>new</em></div>`,
		apply(t, `<div>old</div>`, "div", core.DomOp{Kind: core.DomSetInnerHTML, HTML: "<em>new</em>"}))
	// Text set escapes markup.
	require.Equal(t, `<div>&lt;em&gt;no&lt;/em&gt;</div>`,
		apply(t, `<div>old</div>`, "div", core.DomOp{Kind: core.DomSetInnerText, Text: "<em>no</em>"}))
	require.Equal(t, `<ul><li>a</li><li>b</li></ul>`,
		apply(t, `<ul><li>a</li></ul>`, "ul", core.DomOp{Kind: core.DomAppendHTML, HTML: "<li>b</li>"}))
	require.Equal(t, `<ul><li>z</li><li>a</li></ul>`,
		apply(t, `<ul><li>a</li></ul>`, "ul", core.DomOp{Kind: core.DomPrependHTML, HTML: "<li>z</li>"}))
}

func TestDomStructureOps(t *testing.T) {
	require.Equal(t, `<div><span>n</span></div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomReplaceWithHTML, HTML: "<span>n</span>"}))
	require.Equal(t, `<div>a &amp; b</div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomReplaceWithText, Text: "a & b"}))
	require.Equal(t, `<div><hr/><p>o</p></div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomInsertBeforeH, HTML: "<hr>"}))
	require.Equal(t, `<div><p>o</p><hr/></div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomInsertAfterH, HTML: "<hr>"}))
	require.Equal(t, `<div>pre<p>o</p></div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomInsertBeforeT, Text: "pre"}))
	require.Equal(t, `<div><p>o</p>post</div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomInsertAfterT, Text: "post"}))
	require.Equal(t, `<div></div>`,
		apply(t, `<div><p>o</p></div>`, "p", core.DomOp{Kind: core.DomRemove}))
	require.Equal(t, `<div>o<em>k</em></div>`,
		apply(t, `<div><p>o<em>k</em></p></div>`, "p", core.DomOp{Kind: core.DomUnwrap}))
}

func TestDomOpsRunInOrderPerElement(t *testing.T) {
	out := apply(t, `<p class="a">x</p>`, "p",
		core.DomOp{Kind: core.DomAddClass, Value: "b"},
		core.DomOp{Kind: core.DomRemoveClass, Value: "a"},
		core.DomOp{Kind: core.DomSetAttr, Name: "data-done", Value: "1"},
	)
	require.Equal(t, `<p class="b" data-done="1">x</p>`, out)
}

func TestDomMultipleMatches(t *testing.T) {
	out := apply(t, `<ul><li>a</li><li>b</li></ul>`, "li",
		core.DomOp{Kind: core.DomAddClass, Value: "item"})
	require.Equal(t, `<ul><li class="item">a</li><li class="item">b</li></ul>`, out)
}

func TestDomFullDocumentStaysFull(t *testing.T) {
	in := `<!DOCTYPE html><html><head><title>t</title></head><body><p>x</p></body></html>`
	out, err := ApplyDomPatches(in, domPatch("p", core.DomOp{Kind: core.DomAddClass, Value: "y"}))
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "<html"))
	require.True(t, strings.Contains(out, `<p class="y">x</p>`))
}

func TestDomBadSelector(t *testing.T) {
	_, err := ApplyDomPatches(`<p>x</p>`, domPatch("p[", core.DomOp{Kind: core.DomRemove}))
	require.Error(t, err)
	require.Equal(t, ErrDom, KindOf(err))
}
