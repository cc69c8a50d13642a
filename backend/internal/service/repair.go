package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/logger"
)

// Repairer brings back-references in line with parent ids. It cleans up after writes
// that were interrupted outside a transaction (older data, manual edits) and deletes
// replies whose parent is gone, cascading through the Deleter.
type Repairer struct {
	storage RepairStorage
	deleter ConvoDeleter

	mu        sync.Mutex
	lastStats RepairStats
}

// RepairStats tracks what the last sweep fixed.
type RepairStats struct {
	RunAt                   time.Time
	StaleChildLinks         int64
	RestoredChildLinks      int64
	OrphansDeleted          int
	DanglingUserConvos      int64
	DanglingCommunityConvos int64
	DurationMs              int64
	Errors                  []string
}

type RepairStorage interface {
	RemoveStaleChildLinks(ctx context.Context) (int64, error)
	RestoreMissingChildLinks(ctx context.Context) (int64, error)
	OrphanReplyIds(ctx context.Context) ([]domain.ConvoId, error)
	RemoveDanglingUserConvos(ctx context.Context) (int64, error)
	RemoveDanglingCommunityConvos(ctx context.Context) (int64, error)
}

func NewRepairer(storage RepairStorage, deleter ConvoDeleter) *Repairer {
	return &Repairer{storage: storage, deleter: deleter}
}

// StartBackgroundRepair runs RunRepair every interval until ctx is done.
// A zero interval disables the sweep.
func (r *Repairer) StartBackgroundRepair(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logger.Log.Warn("repair interval not configured, background repair disabled",
			"component", "repair")
		return
	}

	ticker := time.NewTicker(interval)
	logger.Log.Info("started consistency repairer",
		"component", "repair",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.RunRepair(ctx); err != nil {
					logger.Log.Error("consistency repair failed",
						"component", "repair",
						"error", err)
				} else {
					stats := r.LastStats()
					logger.Log.Info("consistency repair completed",
						"component", "repair",
						"stale_child_links", stats.StaleChildLinks,
						"restored_child_links", stats.RestoredChildLinks,
						"orphans_deleted", stats.OrphansDeleted,
						"dangling_user_convos", stats.DanglingUserConvos,
						"dangling_community_convos", stats.DanglingCommunityConvos,
						"duration_ms", stats.DurationMs,
						"errors", len(stats.Errors))
				}
			case <-ctx.Done():
				logger.Log.Info("consistency repairer shutting down gracefully",
					"component", "repair")
				return
			}
		}
	}()
}

// RunRepair executes a single sweep. Orphan deletion failures are collected in the
// stats and do not stop the sweep; failures of the bulk steps abort it.
func (r *Repairer) RunRepair(ctx context.Context) error {
	startTime := time.Now()
	stats := RepairStats{
		RunAt:  startTime,
		Errors: []string{},
	}

	// Step 1: children rows that point at nothing or at the wrong parent
	n, err := r.storage.RemoveStaleChildLinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove stale child links: %w", err)
	}
	stats.StaleChildLinks = n

	// Step 2: replies missing from their parent's children
	n, err = r.storage.RestoreMissingChildLinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore child links: %w", err)
	}
	stats.RestoredChildLinks = n

	// Step 3: replies whose parent is gone, with their subtrees
	orphans, err := r.storage.OrphanReplyIds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list orphan replies: %w", err)
	}
	for _, id := range orphans {
		if _, err := r.deleter.Delete(ctx, id, ""); err != nil {
			// an earlier orphan's subtree may already have taken this one
			if errors.Is(err, internal_errors.ErrNotFound) {
				continue
			}
			stats.Errors = append(stats.Errors, fmt.Sprintf("orphan %s: %v", id, err))
			continue
		}
		stats.OrphansDeleted++
	}

	// Step 4: back-references to convos that no longer exist
	n, err = r.storage.RemoveDanglingUserConvos(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove dangling user convos: %w", err)
	}
	stats.DanglingUserConvos = n

	n, err = r.storage.RemoveDanglingCommunityConvos(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove dangling community convos: %w", err)
	}
	stats.DanglingCommunityConvos = n

	stats.DurationMs = time.Since(startTime).Milliseconds()

	repairFixesTotal.WithLabelValues("stale_child_link").Add(float64(stats.StaleChildLinks))
	repairFixesTotal.WithLabelValues("restored_child_link").Add(float64(stats.RestoredChildLinks))
	repairFixesTotal.WithLabelValues("orphan").Add(float64(stats.OrphansDeleted))
	repairFixesTotal.WithLabelValues("dangling_user_convo").Add(float64(stats.DanglingUserConvos))
	repairFixesTotal.WithLabelValues("dangling_community_convo").Add(float64(stats.DanglingCommunityConvos))

	r.mu.Lock()
	r.lastStats = stats
	r.mu.Unlock()
	return nil
}

// LastStats returns statistics from the last completed sweep.
func (r *Repairer) LastStats() RepairStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats
}
