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

// whisperd serves content through the plugin and theme runtime.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/whisper-cms/whisper/contentstore"
	"github.com/whisper-cms/whisper/core"
	"github.com/whisper-cms/whisper/render"
	"github.com/whisper-cms/whisper/resolve"
	"github.com/whisper-cms/whisper/runtime"
	"github.com/whisper-cms/whisper/serve"
)

func main() {

	var (
		configFile = flag.String("c", "", "YAML configuration file")
		listen     = flag.String("l", "", "listen address (overrides config)")
		contentDir = flag.String("f", "", "content directory (overrides config)")
		verbose    = flag.Bool("v", false, "debug logging")
	)

	flag.Parse()

	cfg := serve.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = serve.LoadConfig(*configFile); err != nil {
			boot := zerolog.New(os.Stderr)
			boot.Fatal().Err(err).Msg("config")
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *contentDir != "" {
		cfg.ContentDir = *contentDir
	}

	log := newLogger(cfg.Log, *verbose)

	lookup, cleanup, err := newLookup(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("content source")
	}
	if cleanup != nil {
		defer cleanup()
	}

	plugins, err := loadPlugins(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("plugin discovery")
	}
	themes, err := loadThemes(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("theme discovery")
	}

	prt, err := runtime.NewPluginRuntime(plugins, log)
	if err != nil {
		log.Fatal().Err(err).Msg("plugin bootstrap")
	}
	actor := runtime.StartPluginActor(prt, log)
	defer actor.Shutdown()

	set, err := runtime.StartThemes(themes, log)
	if err != nil {
		log.Fatal().Err(err).Msg("theme bootstrap")
	}
	defer set.Shutdown()

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	bootRC := &core.RequestContext{
		ThemeConfig:   cfg.ThemeConfig,
		PluginConfigs: cfg.PluginConfigs,
		Response:      core.NewResponseSpec(),
	}
	if err := actor.InitAll(initCtx, bootRC); err != nil {
		initCancel()
		log.Fatal().Err(err).Msg("plugin init")
	}
	set.InitAll(initCtx, bootRC)
	initCancel()

	order := make([]string, 0, len(plugins))
	for _, p := range plugins {
		order = append(order, p.ID)
	}
	if len(cfg.PluginOrder) > 0 {
		order = cfg.PluginOrder
	}

	h := &serve.Handler{
		Resolver: &resolve.Resolver{Lookup: lookup, Logger: log},
		Builder: &resolve.Builder{
			ThemeConfig:   cfg.ThemeConfig,
			PluginConfigs: cfg.PluginConfigs,
		},
		Middleware: serve.NewMiddleware(actor, order, cfg.Breaker(), log),
		Dispatcher: serve.NewDispatcher(set, cfg.ThemeTimeout()),
		Pipeline:   render.NewPipeline(cfg.RegexTailWindow),
		Logger:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLog(log))
	r.Handle("/*", h)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("listen", cfg.Listen).Int("plugins", len(plugins)).Int("themes", len(themes)).Msg("whisperd up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func requestLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

func newLogger(lc serve.LogConfig, verbose bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if lc.File != "" {
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
		})
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// newLookup picks the content source: an indexed bbolt store when
// content_db is set, the raw file tree when only content_dir is set,
// otherwise nothing (themes supply every body).
func newLookup(cfg serve.Config, log zerolog.Logger) (resolve.ResolveFunc, func(), error) {
	if cfg.ContentDB != "" {
		store, err := contentStore(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return store.Resolve, func() { store.Close() }, nil
	}
	if cfg.ContentDir != "" {
		src := &resolve.FileSource{Root: cfg.ContentDir}
		return src.Resolve, nil, nil
	}
	return nil, nil, nil
}

func contentStore(cfg serve.Config, log zerolog.Logger) (*contentstore.Store, error) {
	store, err := contentstore.Open(cfg.ContentDB)
	if err != nil {
		return nil, err
	}
	if cfg.ContentDir != "" {
		n, err := store.IndexDir(cfg.ContentDir)
		if err != nil {
			store.Close()
			return nil, err
		}
		log.Info().Int("indexed", n).Str("dir", cfg.ContentDir).Msg("content indexed")
	}
	return store, nil
}

func loadPlugins(cfg serve.Config) ([]runtime.PluginSpec, error) {
	if cfg.PluginDir == "" {
		return nil, nil
	}
	plugins, err := runtime.DiscoverPlugins(cfg.PluginDir)
	if err != nil {
		return nil, err
	}
	for i := range plugins {
		if c, ok := cfg.PluginConfigs[plugins[i].ID]; ok {
			plugins[i].Config = c
		}
	}
	return plugins, nil
}

func loadThemes(cfg serve.Config) ([]runtime.ThemeSpec, error) {
	if cfg.ThemeDir == "" {
		return nil, nil
	}
	themes, err := runtime.DiscoverThemes(cfg.ThemeDir)
	if err != nil {
		return nil, err
	}
	return serve.OrderThemes(themes, cfg.ThemeMounts), nil
}
