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

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/whisper-cms/whisper/core"
)

// ApplyDomPatches runs one structural pass over an HTML body.  Each
// HtmlDom patch contributes a selector and an op list; for every
// element the selector matches, the ops run in their registered order.
// Patches apply in recommendation order.
//
// A fragment in (no <html> or doctype) is a fragment out; a full
// document stays a full document.
func ApplyDomPatches(input string, patches []core.BodyPatch) (string, error) {
	fragment := !looksLikeDocument(input)

	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return "", &Error{Kind: ErrDom, Msg: "parse html", Err: err}
	}

	for _, p := range patches {
		if p.Kind != core.BodyPatchHTMLDom {
			continue
		}
		sel, err := cascadia.Compile(p.Selector)
		if err != nil {
			return "", &Error{Kind: ErrDom, Msg: "selector " + p.Selector, Err: err}
		}
		for _, n := range sel.MatchAll(doc) {
			for _, op := range p.Ops {
				if err := applyDomOp(n, op); err != nil {
					return "", err
				}
			}
		}
	}

	var buf bytes.Buffer
	if fragment {
		body := findElement(doc, atom.Body)
		if body == nil {
			return input, nil
		}
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", &Error{Kind: ErrDom, Msg: "render html", Err: err}
			}
		}
	} else {
		if err := html.Render(&buf, doc); err != nil {
			return "", &Error{Kind: ErrDom, Msg: "render html", Err: err}
		}
	}
	return buf.String(), nil
}

func looksLikeDocument(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "<html") || strings.Contains(l, "<!doctype")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func applyDomOp(n *html.Node, op core.DomOp) error {
	switch op.Kind {
	case core.DomSetAttr:
		setAttr(n, op.Name, op.Value)
	case core.DomRemoveAttr:
		removeAttr(n, op.Name)
	case core.DomAddClass:
		addClass(n, op.Value)
	case core.DomRemoveClass:
		removeClass(n, op.Value)
	case core.DomSetInnerHTML:
		kids, err := parseFragment(op.HTML, n)
		if err != nil {
			return err
		}
		removeChildren(n)
		for _, k := range kids {
			n.AppendChild(k)
		}
	case core.DomSetInnerText:
		removeChildren(n)
		n.AppendChild(textNode(op.Text))
	case core.DomAppendHTML:
		kids, err := parseFragment(op.HTML, n)
		if err != nil {
			return err
		}
		for _, k := range kids {
			n.AppendChild(k)
		}
	case core.DomPrependHTML:
		kids, err := parseFragment(op.HTML, n)
		if err != nil {
			return err
		}
		first := n.FirstChild
		for _, k := range kids {
			n.InsertBefore(k, first)
		}
	case core.DomReplaceWithHTML:
		return replaceWith(n, op.HTML, true)
	case core.DomReplaceWithText:
		return replaceWith(n, op.Text, false)
	case core.DomInsertBeforeH:
		return insertAdjacent(n, op.HTML, true, true)
	case core.DomInsertAfterH:
		return insertAdjacent(n, op.HTML, true, false)
	case core.DomInsertBeforeT:
		return insertAdjacent(n, op.Text, false, true)
	case core.DomInsertAfterT:
		return insertAdjacent(n, op.Text, false, false)
	case core.DomRemove:
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	case core.DomUnwrap:
		unwrap(n)
	default:
		return &Error{Kind: ErrDom, Msg: "unknown dom op " + string(op.Kind)}
	}
	return nil
}

// parseFragment parses markup in the context of node n, so "<li>x"
// inside a <ul> parses the way a browser would parse it there.
func parseFragment(markup string, n *html.Node) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	if n.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	kids, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, &Error{Kind: ErrDom, Msg: "parse fragment", Err: err}
	}
	return kids, nil
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func replaceWith(n *html.Node, payload string, isHTML bool) error {
	parent := n.Parent
	if parent == nil {
		return nil
	}
	if isHTML {
		kids, err := parseFragment(payload, parent)
		if err != nil {
			return err
		}
		for _, k := range kids {
			parent.InsertBefore(k, n)
		}
	} else {
		parent.InsertBefore(textNode(payload), n)
	}
	parent.RemoveChild(n)
	return nil
}

func insertAdjacent(n *html.Node, payload string, isHTML, before bool) error {
	parent := n.Parent
	if parent == nil {
		return nil
	}
	anchor := n
	if !before {
		anchor = n.NextSibling
	}
	if isHTML {
		kids, err := parseFragment(payload, parent)
		if err != nil {
			return err
		}
		for _, k := range kids {
			parent.InsertBefore(k, anchor)
		}
		return nil
	}
	parent.InsertBefore(textNode(payload), anchor)
	return nil
}

func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for n.FirstChild != nil {
		k := n.FirstChild
		n.RemoveChild(k)
		parent.InsertBefore(k, n)
	}
	parent.RemoveChild(n)
}

func attrIndex(n *html.Node, name string) int {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return i
		}
	}
	return -1
}

func setAttr(n *html.Node, name, value string) {
	if i := attrIndex(n, name); i >= 0 {
		n.Attr[i].Val = value
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	if i := attrIndex(n, name); i >= 0 {
		n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
	}
}

// addClass appends the token unless present.  The class attribute is
// whitespace-separated per HTML.
func addClass(n *html.Node, token string) {
	if token == "" {
		return
	}
	i := attrIndex(n, "class")
	if i < 0 {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: token})
		return
	}
	for _, t := range strings.Fields(n.Attr[i].Val) {
		if t == token {
			return
		}
	}
	n.Attr[i].Val = strings.TrimSpace(n.Attr[i].Val + " " + token)
}

// removeClass drops every occurrence of the token; an emptied class
// list drops the attribute itself.
func removeClass(n *html.Node, token string) {
	i := attrIndex(n, "class")
	if i < 0 {
		return
	}
	kept := []string{}
	for _, t := range strings.Fields(n.Attr[i].Val) {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
		return
	}
	n.Attr[i].Val = strings.Join(kept, " ")
}
