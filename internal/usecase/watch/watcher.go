// Package watch polls wallet balances on a schedule and reports changes.
package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"insomnia-keeper/internal/domain"
	"insomnia-keeper/internal/infra/config"
	"insomnia-keeper/internal/infra/logger"
)

// BalanceFetcher is satisfied by *walletcli.Client.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, address string) domain.WalletResult
}

// Change is a balance that differs from the previous observation.
type Change struct {
	Address  string    `json:"address"`
	Previous string    `json:"previous"`
	Current  string    `json:"current"`
	At       time.Time `json:"at"`
}

// Watcher polls a fixed set of addresses. The first successful poll of an
// address records a baseline and is not reported as a change.
type Watcher struct {
	fetcher   BalanceFetcher
	addresses []string
	schedule  cron.Schedule
	spec      string
	onChange  func(Change)
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	last map[string]string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithOnChange registers a callback invoked for every detected change.
func WithOnChange(fn func(Change)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithRateLimit paces balance queries to perSecond. Zero or less disables
// pacing.
func WithRateLimit(perSecond float64) Option {
	return func(w *Watcher) {
		if perSecond <= 0 {
			w.limiter = nil
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a Watcher. schedule accepts the same forms as the
// watch.schedule config key.
func New(fetcher BalanceFetcher, addresses []string, schedule string, log *slog.Logger, opts ...Option) (*Watcher, error) {
	if fetcher == nil {
		return nil, domain.NewDomainError("watch.New", domain.ErrInvalidInput, "nil balance fetcher")
	}
	if len(addresses) == 0 {
		return nil, domain.NewDomainError("watch.New", domain.ErrInvalidInput, "no addresses to watch")
	}
	sched, err := config.ParseSchedule(schedule)
	if err != nil {
		return nil, domain.NewDomainError("watch.New", domain.ErrInvalidInput, err.Error())
	}
	if log == nil {
		log = logger.Discard()
	}
	w := &Watcher{
		fetcher:   fetcher,
		addresses: append([]string(nil), addresses...),
		schedule:  sched,
		spec:      schedule,
		logger:    log,
		now:       time.Now,
		last:      make(map[string]string, len(addresses)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Poll queries every address once, in order, and returns the changes seen.
// Failed queries are logged and leave the stored balance untouched.
func (w *Watcher) Poll(ctx context.Context) []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changes []Change
	for _, addr := range w.addresses {
		if ctx.Err() != nil {
			break
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				break
			}
		}
		res := w.fetcher.GetBalance(ctx, addr)
		if !res.Success {
			w.logger.Warn("balance query failed",
				"address", addr,
				"error", res.Cause,
				"stderr", strings.TrimSpace(string(res.Data)))
			continue
		}
		current := balanceText(res.Data)
		previous, seen := w.last[addr]
		w.last[addr] = current
		if !seen {
			w.logger.Info("balance baseline", "address", addr, "balance", current)
			continue
		}
		if previous == current {
			continue
		}
		c := Change{Address: addr, Previous: previous, Current: current, At: w.now()}
		w.logger.Info("balance changed", "address", addr, "previous", previous, "current", current)
		if w.onChange != nil {
			w.onChange(c)
		}
		changes = append(changes, c)
	}
	return changes
}

// Balance returns the last observed balance of address.
func (w *Watcher) Balance(address string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.last[address]
	return b, ok
}

// Run polls once immediately and then on every tick until ctx is cancelled.
// Ticks that arrive while a poll is still running are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(w.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		changes := w.Poll(ctx)
		w.logger.Debug("balance poll completed",
			"addresses", len(w.addresses),
			"changes", len(changes),
			"duration", time.Since(start))
	}))

	w.logger.Info("balance watch started", "schedule", w.spec, "addresses", len(w.addresses))
	w.Poll(ctx)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	w.logger.Info("balance watch stopped")
	return nil
}

// balanceText renders a getBalance payload. JSON strings are unquoted,
// anything else is kept as its raw JSON text.
func balanceText(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(data))
}
