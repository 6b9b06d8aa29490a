// Package history keeps the search log bounded.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SearchPruner deletes searches older than a cutoff.
type SearchPruner interface {
	PruneSearches(cutoff time.Time) (int64, error)
}

// Pruner periodically removes searches older than its retention.
type Pruner struct {
	store     SearchPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewPruner creates a Pruner. A retention <= 0 disables pruning; an
// interval <= 0 defaults to one hour.
func NewPruner(store SearchPruner, retention, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// Run prunes once immediately and then on every interval until ctx is
// cancelled.
func (p *Pruner) Run(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("search history pruning disabled")
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("pruning search history", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes every search created before now minus the retention and
// returns how many were removed.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().UTC().Add(-p.retention)
	n, err := p.store.PruneSearches(cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning searches before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		p.logger.Info("pruned search history", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}
