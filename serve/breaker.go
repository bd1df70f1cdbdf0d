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
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/whisper-cms/whisper/core"
)

// HookCaller is what the middleware needs from the plugin actor.
type HookCaller interface {
	Before(ctx context.Context, id string, rc *core.RequestContext) (*core.RequestContext, error)
	After(ctx context.Context, id string, rc *core.RequestContext) (*core.RequestContext, error)
}

// BreakerConfig is the middleware's scheduling constants.
type BreakerConfig struct {
	// CallTimeout is the deadline on each hook reply.
	CallTimeout time.Duration
	// Window is the rolling failure window: a failure older than
	// this doesn't count against the plugin anymore.
	Window time.Duration
	// MaxFailures trips the breaker.
	MaxFailures int
	// Open is how long a tripped breaker skips the plugin.
	Open time.Duration
}

// breakerState is the flat per-plugin record.  Only ever touched under
// the middleware mutex, and only for long enough to read or bump the
// counters.
type breakerState struct {
	failures      int
	lastFailureAt time.Time
	openUntil     time.Time

	// probing marks that the last admitted call went out on an
	// expired open interval.  Its failure restarts the interval
	// instead of counting from scratch.
	probing bool
}

// Middleware runs the plugin chain around each request: before hooks
// in registration order, after hooks in reverse, every call under its
// own deadline and its plugin's circuit breaker.
//
// A plugin can fail, stall, or rant; the request never notices.  The
// worst a plugin can do to a request is not contribute to it.
type Middleware struct {
	actor  HookCaller
	order  []string
	cfg    BreakerConfig
	logger zerolog.Logger

	mu     sync.Mutex
	states map[string]*breakerState

	// now is replaceable so tests can steer the clock.
	now func() time.Time
}

func NewMiddleware(actor HookCaller, order []string, cfg BreakerConfig, logger zerolog.Logger) *Middleware {
	return &Middleware{
		actor:  actor,
		order:  append([]string(nil), order...),
		cfg:    cfg,
		logger: logger,
		states: map[string]*breakerState{},
		now:    time.Now,
	}
}

// RunBefore runs every before hook.  On success the returned context
// replaces the working one; on failure the prior context stands and
// the chain continues.
func (m *Middleware) RunBefore(ctx context.Context, rc *core.RequestContext) *core.RequestContext {
	return m.run(ctx, rc, "before", m.order)
}

// RunAfter runs the after hooks in reverse registration order.
func (m *Middleware) RunAfter(ctx context.Context, rc *core.RequestContext) *core.RequestContext {
	rev := make([]string, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		rev = append(rev, m.order[i])
	}
	return m.run(ctx, rc, "after", rev)
}

func (m *Middleware) run(ctx context.Context, rc *core.RequestContext, hook string, order []string) *core.RequestContext {
	for _, id := range order {
		if !m.admit(id) {
			m.logger.Debug().Str("plugin", id).Str("hook", hook).Msg("breaker open, skipping")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
		var (
			out *core.RequestContext
			err error
		)
		if hook == "before" {
			out, err = m.actor.Before(callCtx, id, rc)
		} else {
			out, err = m.actor.After(callCtx, id, rc)
		}
		cancel()

		if err != nil {
			m.failure(id)
			m.logger.Warn().Str("plugin", id).Str("hook", hook).
				Str("req", rc.RequestID).Err(err).Msg("plugin hook failed")
			continue
		}
		m.success(id)
		rc = out
	}
	return rc
}

// admit decides whether the plugin runs right now.  An expired open
// interval is cleared on the way through, so exactly this invocation
// is the probe.
func (m *Middleware) admit(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[id]
	if st == nil || st.openUntil.IsZero() {
		return true
	}
	if m.now().Before(st.openUntil) {
		return false
	}
	st.openUntil = time.Time{}
	st.probing = true
	return true
}

func (m *Middleware) success(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
}

func (m *Middleware) failure(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[id]
	if st == nil {
		st = &breakerState{}
		m.states[id] = st
	}
	now := m.now()
	if st.probing {
		st.probing = false
		st.lastFailureAt = now
		st.openUntil = now.Add(m.cfg.Open)
		m.logger.Warn().Str("plugin", id).Time("until", st.openUntil).
			Msg("probe failed, breaker reopened")
		return
	}
	if !st.lastFailureAt.IsZero() && now.Sub(st.lastFailureAt) > m.cfg.Window {
		st.failures = 0
	}
	st.failures++
	st.lastFailureAt = now
	if st.failures >= m.cfg.MaxFailures {
		st.openUntil = now.Add(m.cfg.Open)
		m.logger.Warn().Str("plugin", id).Int("failures", st.failures).
			Time("until", st.openUntil).Msg("breaker opened")
	}
}
