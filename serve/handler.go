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

package serve

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
	"github.com/whisper-cms/whisper/render"
	"github.com/whisper-cms/whisper/resolve"
)

// Handler is the request core end to end.
type Handler struct {
	Resolver   *resolve.Resolver
	Builder    *resolve.Builder
	Middleware *Middleware
	Dispatcher *Dispatcher
	Pipeline   *render.Pipeline
	Logger     zerolog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// r.URL.Path is already percent-decoded.
	meta := h.Resolver.Resolve(r.URL.Path, r.Method)

	// Real files that aren't content go out as-is, below the plugin
	// and theme machinery.
	if meta.Kind == core.ContentAsset && meta.BodyPath != "" {
		h.serveAsset(w, r, meta.BodyPath)
		return
	}

	rc := h.Builder.Build(r.URL.Path, r.Method, r.Proto, r.Header, r.URL.Query(), meta)
	log := h.Logger.With().Str("req", rc.RequestID).Str("path", r.URL.Path).Logger()

	rc = h.Middleware.RunBefore(r.Context(), rc)

	themeID, ok := h.Dispatcher.Select(r.URL.Path)
	if !ok {
		log.Error().Msg("no theme mounted for path")
		h.internalError(w)
		return
	}
	themed, err := h.Dispatcher.Render(r.Context(), themeID, rc)
	if err != nil {
		log.Error().Str("theme", themeID).Err(err).Msg("theme failed")
		h.internalError(w)
		return
	}
	rc = themed

	spec := rc.Response
	ApplyHeaderPatches(&spec, rc.Recommendations.HeaderPatches, log)
	ApplyModelPatches(&spec, rc.Recommendations.ModelPatches, log)

	rendered, err := h.Pipeline.Render(spec.Body, rc.Recommendations.BodyPatches)
	if err != nil {
		log.Error().Str("kind", string(render.KindOf(err))).Err(err).Msg("render failed")
		h.internalError(w)
		return
	}

	// After hooks see the finished response; their recommendations
	// are collected for observability, never re-rendered.
	rc.Response = spec
	h.Middleware.RunAfter(r.Context(), rc)

	writeResponse(w, spec, rendered)
	log.Debug().Int("status", spec.Status).Int("bytes", len(rendered.Body)).Msg("served")
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		h.Logger.Warn().Str("path", path).Err(err).Msg("asset went missing")
		h.internalError(w)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		h.internalError(w)
		return
	}
	http.ServeContent(w, r, path, st.ModTime(), f)
}

// internalError is deliberately uninformative.  Details stay in the
// log.
func (h *Handler) internalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("internal server error\n"))
}

// writeResponse puts the response spec and the rendered body on the
// wire.  The pipeline's content type only applies when the theme
// didn't already set one.
func writeResponse(w http.ResponseWriter, spec core.ResponseSpec, rendered *render.Rendered) {
	hasContentType := false
	for _, hd := range spec.Headers {
		if core.CanonicalHeaderName(hd.Name) == "Content-Type" {
			hasContentType = true
		}
		w.Header().Add(hd.Name, hd.Value)
	}
	if !hasContentType && rendered.ContentType != "" {
		w.Header().Set("Content-Type", rendered.ContentType)
	}
	status := spec.Status
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)
	if len(rendered.Body) > 0 {
		w.Write(rendered.Body)
	}
}
