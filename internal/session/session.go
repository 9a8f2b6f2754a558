// Package session is the process-wide store of live agent sessions: the
// in-memory replacement for the reference's module-level
// `agents_storage: dict[str, BaseAgent]`, plus the TTL eviction it never
// needed because it never ran long enough to care.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sgrlabs/agentcore/internal/agent"
	"github.com/sgrlabs/agentcore/internal/config"
	"github.com/sgrlabs/agentcore/internal/llm"
	"github.com/sgrlabs/agentcore/internal/logging"
	"github.com/sgrlabs/agentcore/internal/metrics"
	"github.com/sgrlabs/agentcore/internal/report"
	"github.com/sgrlabs/agentcore/internal/tool"
	"github.com/sgrlabs/agentcore/internal/tool/tavily"
)

// Registry holds every session created since process start, keyed by
// agent ID, plus the agent definitions it can spawn new sessions from.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	defs    map[string]*config.AgentDefinition
	metrics *metrics.Metrics
	logger  interface {
		Info(msg string, args ...any)
	}

	// baseCtx is the server's lifetime context: every session's Run
	// goroutine derives its own context from this one, not from whatever
	// inbound HTTP request happened to create it, so Close cancels every
	// running session exactly once regardless of which client requests
	// are still open.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	stop chan struct{}
	once sync.Once
}

type entry struct {
	session  *agent.Session
	lastSeen time.Time
}

// New builds a Registry over the given agent definitions (by name, as
// loaded into config.Config.Agents) and starts its background TTL
// eviction loop if any definition sets a nonzero SessionTTL. m may be nil,
// in which case every session it creates runs uninstrumented. ctx is the
// server's lifetime context: every session Create spawns derives its Run
// context from ctx, not from the inbound request, so cancelling ctx (or
// calling Close) ends every in-flight session together.
func New(ctx context.Context, defs map[string]*config.AgentDefinition, m *metrics.Metrics) *Registry {
	baseCtx, cancel := context.WithCancel(ctx)
	r := &Registry{
		entries:    make(map[string]*entry),
		defs:       defs,
		metrics:    m,
		logger:     logging.Component("session"),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		stop:       make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Definitions returns the registry's agent definitions map, keyed by
// definition name; its iteration order is unspecified.
func (r *Registry) Definitions() map[string]*config.AgentDefinition {
	return r.defs
}

// ValidateDefinitions resolves every agent definition's base_class and
// tool names against their registries, without constructing a session.
// Call this once at startup, right after config.Load, so an unknown
// base_class or tool name is fatal before the server starts serving
// rather than surfacing as a per-request 400 the first time a client
// talks to that agent. Definitions are independent of one another, so
// they're checked concurrently via errgroup, the same fan-out-and-join
// shape the teacher uses to run independent units and collect the first
// error.
func ValidateDefinitions(defs map[string]*config.AgentDefinition) error {
	var g errgroup.Group
	for name, def := range defs {
		g.Go(func() error {
			if !agent.KnownKind(def.BaseClass) {
				return fmt.Errorf("session: agent %q: unknown base_class %q", name, def.BaseClass)
			}
			if _, missing := tool.Build(def.Tools, tool.Deps{}); len(missing) > 0 {
				return fmt.Errorf("session: agent %q: unknown tools %v", name, missing)
			}
			return nil
		})
	}
	return g.Wait()
}

// Create builds a new Session for the named agent definition and task,
// registers it, and starts its Run loop on a new goroutine against the
// registry's own lifetime context (see New) rather than any particular
// caller's request context, so the session keeps running for as long as
// the server does, independent of the HTTP request that created it.
func (r *Registry) Create(defName, task string) (*agent.Session, error) {
	def, ok := r.defs[defName]
	if !ok {
		return nil, fmt.Errorf("session: unknown agent %q", defName)
	}

	deps := tool.Deps{Reports: report.New(def.Execution.ReportsDir), DefaultMaxResults: 10}
	if def.Search != nil {
		deps.Search = tavily.New(def.Search.TavilyAPIKey, def.Search.TavilyAPIBaseURL)
		deps.ContentLimit = def.Search.ContentLimit
		deps.DefaultMaxResults = def.Search.MaxResults
	}
	toolkit, missing := tool.Build(def.Tools, deps)
	if len(missing) > 0 {
		return nil, fmt.Errorf("session: agent %q names unknown tools %v", defName, missing)
	}

	client, err := llm.NewClient(def.LLM.BaseURL, def.LLM.APIKey, def.LLM.Model, def.LLM.Proxy)
	if err != nil {
		return nil, fmt.Errorf("session: build llm client: %w", err)
	}

	s, err := agent.New(def, task, toolkit, client)
	if err != nil {
		return nil, err
	}
	s.Metrics = r.metrics

	r.mu.Lock()
	r.entries[s.ID] = &entry{session: s, lastSeen: time.Now()}
	r.mu.Unlock()

	go s.Run(r.baseCtx)

	return s, nil
}

// Get looks up a session by ID and bumps its last-seen time, so an active
// agent is never evicted mid-conversation purely because it is old.
func (r *Registry) Get(id string) (*agent.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.session, true
}

// List returns a summary of every known session, in no particular order.
func (r *Registry) List() []agent.ListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.ListItem, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.session.Summary())
	}
	return out
}

// Close stops the eviction loop and cancels every session's Run context,
// so a graceful server shutdown (see cmd/agentcore) drives every in-flight
// session to its ctx.Done() branch, which marks it Failed and emits a
// final SSE frame instead of being killed silently when the process exits.
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.stop)
		r.cancelBase()
	})
}

func (r *Registry) evictLoop() {
	ttl := r.maxTTL()
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictOnce(ttl)
		}
	}
}

func (r *Registry) maxTTL() time.Duration {
	var max time.Duration
	for _, d := range r.defs {
		if d.Execution.SessionTTL > max {
			max = d.Execution.SessionTTL
		}
	}
	return max
}

func (r *Registry) evictOnce(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			r.logger.Info("evicted expired session", "agent_id", id)
		}
	}
}
