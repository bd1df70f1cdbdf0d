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

package resolve

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
)

// ContextError is a recoverable resolution failure.  The request
// carries on with empty content.
type ContextError struct {
	Path string
	Err  error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

func (e *ContextError) Unwrap() error { return e.Err }

// ResolveFunc maps a served path to content.  Implementations are
// injected at startup by whatever layer knows the physical content
// store.
type ResolveFunc func(path, method string) (core.ContentMeta, error)

// Resolver resolves request paths, recovering any lookup failure into
// empty asset content.
type Resolver struct {
	// Lookup is the injected hook.  Nil means the fallback: every
	// path is an asset with empty front matter.
	Lookup ResolveFunc

	Logger zerolog.Logger
}

// Resolve normalizes the path and consults the injected hook.  It
// never fails a request: hook errors are logged and degraded to empty
// asset content.
func (r *Resolver) Resolve(reqPath, method string) core.ContentMeta {
	served := Normalize(reqPath)

	if r.Lookup == nil {
		return emptyMeta()
	}
	meta, err := r.Lookup(served, method)
	if err != nil {
		r.Logger.Warn().Str("path", reqPath).Err(err).Msg("content resolution failed, serving empty")
		return emptyMeta()
	}
	if meta.FrontMatter == nil {
		meta.FrontMatter = map[string]interface{}{}
	}
	return meta
}

func emptyMeta() core.ContentMeta {
	return core.ContentMeta{Kind: core.ContentAsset, FrontMatter: map[string]interface{}{}}
}

// Normalize maps a request path to its served path: directory paths
// gain "index", extension-less paths gain ".html".
//
//	/          -> /index.html
//	/about     -> /about.html
//	/blog/     -> /blog/index.html
//	/style.css -> /style.css
func Normalize(reqPath string) string {
	p := reqPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if strings.HasSuffix(p, "/") {
		p += "index"
	}
	if path.Ext(p) == "" {
		p += ".html"
	}
	return p
}

// KindForPath classifies content by extension, case-insensitively.
func KindForPath(served string) core.ContentKind {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(served), ".")) {
	case "html", "htm":
		return core.ContentHTML
	case "json":
		return core.ContentJSON
	default:
		return core.ContentAsset
	}
}

// FileSource serves content straight from a directory tree.  It is
// the index-less counterpart of the bbolt-backed store.
type FileSource struct {
	Root string
}

// Resolve implements ResolveFunc against the file tree.  A missing
// file is not an error: it resolves to empty asset content, which the
// pipeline treats as a valid empty input.
func (s *FileSource) Resolve(served, method string) (core.ContentMeta, error) {
	rel := strings.TrimPrefix(path.Clean("/"+served), "/")
	full := filepath.Join(s.Root, filepath.FromSlash(rel))

	bs, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return core.ContentMeta{Kind: core.ContentAsset, FrontMatter: map[string]interface{}{}}, nil
	}
	if err != nil {
		return core.ContentMeta{}, &ContextError{Path: served, Err: err}
	}

	kind := KindForPath(served)
	meta := core.ContentMeta{Kind: kind, FrontMatter: map[string]interface{}{}, BodyPath: full}
	if kind == core.ContentHTML || kind == core.ContentJSON {
		fm, _ := ParseFrontMatter(string(bs))
		meta.FrontMatter = fm
	}
	return meta, nil
}
