package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"pairchat/pkg/config"
	"pairchat/pkg/logger"
	"pairchat/pkg/store"
)

// Start starts the maintenance scheduler if enabled. Each run snapshots
// store statistics, warns when the database grows past the configured disk
// budget and optionally compacts the keyspace. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult) (context.CancelFunc, error) {
	mnt := eff.Config.Maintenance

	if !mnt.Enabled {
		logger.Info("maintenance_disabled")
		return func() {}, nil
	}

	// map empty cron to default daily @03:00
	cronExpr := mnt.Cron
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("maintenance_invalid_cron", zap.String("cron", mnt.Cron))
		return nil, fmt.Errorf("invalid maintenance cron expression: %s", mnt.Cron)
	}

	logger.Info("maintenance_enabled", zap.String("cron", cronExpr), zap.Bool("compact", mnt.Compact))
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, mnt, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, mnt config.MaintenanceConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("maintenance_nexttick_failed", zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if err := RunOnce(mnt); err != nil {
				logger.Error("maintenance_run_error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single maintenance pass. Exported so admin triggers
// can invoke it on demand.
func RunOnce(mnt config.MaintenanceConfig) error {
	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("stats snapshot failed: %w", err)
	}
	logger.Info("maintenance_stats",
		zap.Int("users", stats.Users),
		zap.Int("conversations", stats.Conversations),
		zap.Int("messages", stats.Messages),
		zap.Int("presence", stats.Presence),
		zap.String("disk", humanize.Bytes(stats.DiskBytes)),
	)

	if budget := mnt.MaxDiskBytes.Int64(); budget > 0 && stats.DiskBytes > uint64(budget) {
		logger.Warn("maintenance_disk_over_budget",
			zap.String("disk", humanize.Bytes(stats.DiskBytes)),
			zap.String("budget", humanize.Bytes(uint64(budget))),
		)
	}

	if mnt.Compact {
		start := time.Now()
		if err := store.Compact(); err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}
		logger.Info("maintenance_compacted", zap.Duration("took", time.Since(start)))
	}
	return nil
}
