package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/singlestat/pkg/types"
	"github.com/obsidianstack/singlestat/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	SourceID   string     `json:"source_id"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against incoming snapshots and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig
	client   *http.Client
	now      func() time.Time

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:sourceID"
	lastFire map[string]time.Time // cooldown bookkeeping per key
	history  []*Alert             // recently resolved alerts

	wg sync.WaitGroup // in-flight webhook deliveries
}

// New creates an Engine from the server alert configuration. It fails when
// a rule condition cannot be parsed. An Engine without rules is valid and
// Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	return &Engine{
		rules:    rules,
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}, nil
}

// Evaluate tests every rule that applies to snap. Rules that start to hold
// fire (subject to cooldown); firing rules that no longer hold resolve. Both
// transitions are delivered to the webhooks asynchronously.
func (e *Engine) Evaluate(snap *types.Snapshot) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, r := range e.rules {
		if r.Source != "" && r.Source != snap.SourceID {
			continue
		}
		fires, value := r.cond.eval(snap, now)
		if a := e.transition(r, snap.SourceID, fires, value, now); a != nil {
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.deliver(a)
			}()
		}
	}
}

// transition updates the alert state for one rule/source pair and returns a
// copy of the alert when it fired or resolved.
func (e *Engine) transition(r rule, sourceID string, fires bool, value float64, now time.Time) *Alert {
	key := r.Name + ":" + sourceID

	e.mu.Lock()
	defer e.mu.Unlock()

	if !fires {
		a, ok := e.active[key]
		if !ok {
			return nil
		}
		a.State = StateResolved
		a.ResolvedAt = &now
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		slog.Info("alerts: resolved", "rule", r.Name, "source", sourceID)
		cp := *a
		return &cp
	}

	if _, firing := e.active[key]; firing {
		return nil
	}
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) < cooldown {
		return nil
	}

	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  r.Name,
		SourceID:  sourceID,
		Severity:  sev,
		Condition: r.Condition,
		Value:     value,
		Message:   fmt.Sprintf("[%s] %s fired on %s: %s (%s = %.2f)", sev, r.Name, sourceID, r.Condition, r.cond.field, value),
		FiredAt:   now,
		State:     StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now

	slog.Warn("alerts: fired", "rule", r.Name, "source", sourceID, "value", value, "severity", sev)
	cp := *a
	return &cp
}

// Forget resolves every alert firing for sourceID. The store calls it when
// a silent source is evicted, after which no snapshot can resolve it.
func (e *Engine) Forget(sourceID string) {
	now := e.now()

	e.mu.Lock()
	var resolved []*Alert
	for key, a := range e.active {
		if a.SourceID != sourceID {
			continue
		}
		a.State = StateResolved
		a.ResolvedAt = &now
		delete(e.active, key)
		e.history = append(e.history, a)
		cp := *a
		resolved = append(resolved, &cp)
	}
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	e.mu.Unlock()

	for _, a := range resolved {
		slog.Info("alerts: resolved, source evicted", "rule", a.RuleName, "source", sourceID)
		e.wg.Add(1)
		go func(a *Alert) {
			defer e.wg.Done()
			e.deliver(a)
		}(a)
	}
}

// Active returns copies of all firing alerts plus alerts resolved within the
// past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Run re-evaluates the snapshots returned by list every interval, so
// conditions that depend on the clock (age_s) fire even when a source stops
// pushing. list should include sources past the store TTL that are not
// evicted yet (store.Snapshots). Run blocks until ctx is cancelled, then waits for in-flight
// webhook deliveries.
func (e *Engine) Run(ctx context.Context, interval time.Duration, list func() []*types.Snapshot) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return
		case <-t.C:
			for _, snap := range list() {
				e.Evaluate(snap)
			}
		}
	}
}
