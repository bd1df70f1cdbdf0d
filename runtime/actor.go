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

package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"

	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
)

// cmdQueueSize is how many commands can sit in an actor's queue before
// senders start waiting.  Senders wait under the caller's deadline, so
// a backed-up actor turns into call failures rather than stuck
// requests.
const cmdQueueSize = 128

type hookCmd struct {
	hook  string // "init", "before", "after", "handle"
	id    string
	rc    *core.RequestContext
	reply chan hookReply
}

type hookReply struct {
	rc  *core.RequestContext
	err error
}

// PluginActor confines the shared plugin engine to one goroutine
// locked to one OS thread.  Commands run strictly in arrival order; no
// two hooks ever execute concurrently.
//
// Deadlines bind the caller's wait, never the engine: a script that
// overruns keeps its actor busy and the late reply is dropped on the
// floor (the reply channel is buffered so the actor never blocks on a
// caller that gave up).
type PluginActor struct {
	cmds   chan hookCmd
	logger zerolog.Logger
}

// StartPluginActor takes ownership of the runtime and starts the
// actor goroutine.  The runtime must not be touched directly after
// this.
func StartPluginActor(rt *PluginRuntime, logger zerolog.Logger) *PluginActor {
	a := &PluginActor{cmds: make(chan hookCmd, cmdQueueSize), logger: logger}
	go a.loop(rt)
	return a
}

func (a *PluginActor) loop(rt *PluginRuntime) {
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	for cmd := range a.cmds {
		var rep hookReply
		switch cmd.hook {
		case "init":
			rep.err = rt.InitAll(cmd.rc)
			rep.rc = cmd.rc
		default:
			rep.rc, rep.err = rt.CallHook(cmd.id, cmd.hook, cmd.rc)
		}
		cmd.reply <- rep
	}
}

// InitAll runs every plugin's init hook.  Called once at startup; a
// failure aborts startup.
func (a *PluginActor) InitAll(ctx context.Context, rc *core.RequestContext) error {
	_, err := a.send(ctx, hookCmd{hook: "init", rc: rc})
	return err
}

// Before runs <id>.before under the caller's deadline.
func (a *PluginActor) Before(ctx context.Context, id string, rc *core.RequestContext) (*core.RequestContext, error) {
	return a.send(ctx, hookCmd{hook: "before", id: id, rc: rc})
}

// After runs <id>.after under the caller's deadline.
func (a *PluginActor) After(ctx context.Context, id string, rc *core.RequestContext) (*core.RequestContext, error) {
	return a.send(ctx, hookCmd{hook: "after", id: id, rc: rc})
}

// Shutdown stops the actor once queued commands drain.
func (a *PluginActor) Shutdown() {
	close(a.cmds)
}

func (a *PluginActor) send(ctx context.Context, cmd hookCmd) (*core.RequestContext, error) {
	cmd.reply = make(chan hookReply, 1)
	select {
	case a.cmds <- cmd:
	case <-ctx.Done():
		return nil, fmt.Errorf("plugin actor busy: %w", ctx.Err())
	}
	select {
	case rep := <-cmd.reply:
		return rep.rc, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ThemeActor confines one theme's engine the same way.
type ThemeActor struct {
	id     string
	cmds   chan hookCmd
	logger zerolog.Logger
}

func startThemeActor(rt *ThemeRuntime, logger zerolog.Logger) *ThemeActor {
	a := &ThemeActor{id: rt.spec.ID, cmds: make(chan hookCmd, cmdQueueSize), logger: logger}
	go a.loop(rt)
	return a
}

func (a *ThemeActor) loop(rt *ThemeRuntime) {
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	for cmd := range a.cmds {
		var rep hookReply
		switch cmd.hook {
		case "init":
			rep.err = rt.Init(cmd.rc)
			rep.rc = cmd.rc
		default:
			rep.rc, rep.err = rt.Handle(cmd.rc)
		}
		cmd.reply <- rep
	}
}

func (a *ThemeActor) send(ctx context.Context, cmd hookCmd) (*core.RequestContext, error) {
	cmd.reply = make(chan hookReply, 1)
	select {
	case a.cmds <- cmd:
	case <-ctx.Done():
		return nil, fmt.Errorf("theme actor busy: %w", ctx.Err())
	}
	select {
	case rep := <-cmd.reply:
		return rep.rc, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ThemeSet is every running theme actor, one per theme, each with its
// own engine on its own thread.  Distinct themes render in parallel;
// requests hitting the same theme serialize behind its actor.
type ThemeSet struct {
	actors map[string]*ThemeActor
	mounts []Mount
	logger zerolog.Logger
}

// Mount binds a path prefix to a theme id.  Order is registration
// order, which breaks prefix-length ties.
type Mount struct {
	Path    string
	ThemeID string
}

// StartThemes boots an actor for every spec.  Any bootstrap failure
// shuts the rest down and aborts.
func StartThemes(specs []ThemeSpec, logger zerolog.Logger) (*ThemeSet, error) {
	s := &ThemeSet{actors: map[string]*ThemeActor{}, logger: logger}
	for _, spec := range specs {
		if _, dup := s.actors[spec.ID]; dup {
			s.Shutdown()
			return nil, &BootstrapError{Kind: "theme", ID: spec.ID, Err: fmt.Errorf("duplicate theme id")}
		}
		rt, err := NewThemeRuntime(spec, logger)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
		mount := spec.Mount
		if mount == "" {
			mount = "/"
		}
		s.actors[spec.ID] = startThemeActor(rt, logger)
		s.mounts = append(s.mounts, Mount{Path: mount, ThemeID: spec.ID})
		logger.Info().Str("theme", spec.ID).Str("mount", mount).Msg("theme loaded")
	}
	return s, nil
}

// Mounts returns the mount table in registration order.
func (s *ThemeSet) Mounts() []Mount {
	return append([]Mount(nil), s.mounts...)
}

// InitAll runs init on every theme.  Failures are logged, never
// propagated; a theme with a broken init still gets to render.
func (s *ThemeSet) InitAll(ctx context.Context, rc *core.RequestContext) {
	for _, m := range s.mounts {
		a := s.actors[m.ThemeID]
		if _, err := a.send(ctx, hookCmd{hook: "init", rc: rc}); err != nil {
			s.logger.Warn().Str("theme", m.ThemeID).Err(err).Msg("theme init failed")
		}
	}
}

// Render dispatches to the named theme under the caller's deadline.
func (s *ThemeSet) Render(ctx context.Context, themeID string, rc *core.RequestContext) (*core.RequestContext, error) {
	a, have := s.actors[themeID]
	if !have {
		return nil, fmt.Errorf("unknown theme %q", themeID)
	}
	return a.send(ctx, hookCmd{hook: "handle", rc: rc})
}

// Shutdown stops every theme actor.
func (s *ThemeSet) Shutdown() {
	for _, a := range s.actors {
		close(a.cmds)
	}
}
