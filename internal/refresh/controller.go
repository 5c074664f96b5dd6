// Package refresh runs the scan pipeline on a timer and on demand, and
// publishes the resulting aggregates to subscribers.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tokenbar/tokenbar/internal/history"
	"github.com/tokenbar/tokenbar/internal/ingest"
	"github.com/tokenbar/tokenbar/internal/pricing"
	"github.com/tokenbar/tokenbar/internal/usage"
)

// State is the controller's place in its two-state machine.
type State int32

const (
	StateIdle State = iota
	StateRefreshing
)

// DefaultInterval is the tick cadence when the config does not set one.
const DefaultInterval = 60 * time.Second

// Update is one publication: the aggregate plus the per-day rollup and
// pass statistics that the monitor renders around it.
type Update struct {
	Aggregate usage.Aggregate
	Daily     []usage.DayTotals
	Stats     ingest.Stats
	// Restored marks the persisted last-known-good republished at startup,
	// before any scan has run.
	Restored bool
}

// Options wires a Controller. Engine, Resolver and Calculator are
// required; History is optional.
type Options struct {
	Roots      []string
	Horizon    time.Duration
	Interval   time.Duration
	Engine     *ingest.Engine
	Resolver   *pricing.Resolver
	Calculator *pricing.Calculator
	History    *history.Store
	Logger     *slog.Logger
	Now        func() time.Time
}

type Controller struct {
	roots    []string
	horizon  time.Duration
	interval time.Duration

	engine   *ingest.Engine
	resolver *pricing.Resolver
	calc     *pricing.Calculator
	store    *history.Store
	log      *slog.Logger
	now      func() time.Time

	mu    sync.Mutex // guards state
	state State

	viewMu  sync.RWMutex
	current *Update

	subMu    sync.Mutex
	onUpdate []func(Update)

	kick chan struct{}
}

func NewController(opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Horizon < 0 {
		opts.Horizon = ingest.DefaultHorizon
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		roots:    opts.Roots,
		horizon:  opts.Horizon,
		interval: opts.Interval,
		engine:   opts.Engine,
		resolver: opts.Resolver,
		calc:     opts.Calculator,
		store:    opts.History,
		log:      opts.Logger,
		now:      opts.Now,
		kick:     make(chan struct{}, 1),
	}
}

// State reports Idle or Refreshing.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current is the query surface: the latest published update.
func (c *Controller) Current() (Update, bool) {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	if c.current == nil {
		return Update{}, false
	}
	return *c.current, true
}

// OnUpdate registers a callback invoked after every publication. The
// callback runs on the refreshing goroutine and must not block.
func (c *Controller) OnUpdate(fn func(Update)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.onUpdate = append(c.onUpdate, fn)
}

// TriggerNow requests an early pass. Requests landing while a pass runs
// coalesce into at most one pending pass; TriggerNow never blocks.
func (c *Controller) TriggerNow() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Refresh runs one pass and reports whether it ran to completion and
// published. A pass already in flight makes it return false immediately:
// refreshes are never queued or doubled up. A pass whose context dies
// mid-flight aborts without publishing, so the previous aggregate stays
// current.
func (c *Controller) Refresh(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == StateRefreshing {
		c.mu.Unlock()
		return false
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}()

	start := c.now()
	if c.resolver != nil {
		c.resolver.Ensure(ctx)
	}

	files := ingest.Discover(c.roots, c.horizon, c.now())
	records, stats := c.engine.Load(ctx, files)
	if ctx.Err() != nil {
		c.log.Debug("refresh aborted, keeping previous aggregate", "err", ctx.Err())
		return false
	}

	var costFn usage.CostFn
	if c.calc != nil {
		costFn = c.calc.Cost
	}
	update := Update{
		Aggregate: usage.Summarize(records, c.now(), costFn),
		Daily:     usage.DailyRollup(records, costFn),
		Stats:     stats,
	}
	c.publish(ctx, update)

	c.log.Debug("refresh pass complete",
		"files", stats.Files,
		"cache_hits", stats.CacheHits,
		"parsed", stats.Parsed,
		"failed", stats.Failed,
		"took", c.now().Sub(start))
	return true
}

// Run republishes the persisted last-known-good (so consumers see data
// before the first scan finishes), runs an immediate pass, then loops on
// the ticker and the kick channel until ctx ends.
func (c *Controller) Run(ctx context.Context) {
	if c.store != nil {
		if agg, ok, err := c.store.Latest(ctx); err != nil {
			c.log.Debug("last snapshot unavailable", "err", err)
		} else if ok {
			c.publish(ctx, Update{Aggregate: agg, Restored: true})
		}
		if removed, err := c.store.Prune(ctx, 0); err != nil {
			c.log.Debug("snapshot prune failed", "err", err)
		} else if removed > 0 {
			c.log.Debug("pruned old snapshots", "removed", removed)
		}
	}

	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("refresh loop stopping")
			return
		case <-ticker.C:
			c.Refresh(ctx)
		case <-c.kick:
			c.Refresh(ctx)
		}
	}
}

func (c *Controller) publish(ctx context.Context, u Update) {
	c.viewMu.Lock()
	c.current = &u
	c.viewMu.Unlock()

	if c.store != nil && !u.Restored {
		if err := c.store.Record(ctx, u.Aggregate); err != nil {
			c.log.Debug("snapshot not persisted", "err", err)
		}
	}

	c.subMu.Lock()
	subs := make([]func(Update), len(c.onUpdate))
	copy(subs, c.onUpdate)
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(u)
	}
}
