package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/observability/metrics"
	"github.com/superplace/rosterd/internal/reliability/retry"
)

// StatsWorker periodically refreshes the per-academy account gauges so the
// dashboards track enrollment without hitting the roster endpoint
type StatsWorker struct {
	accountRepo domain.AccountRepository
	tenantRepo  domain.TenantRepository
	logger      *slog.Logger
	interval    time.Duration
	retryCfg    *retry.Config
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(
	accountRepo domain.AccountRepository,
	tenantRepo domain.TenantRepository,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{
		accountRepo: accountRepo,
		tenantRepo:  tenantRepo,
		logger:      logger,
		interval:    interval,
		retryCfg:    retry.DefaultConfig(),
	}
}

// Start begins the stats worker loop
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))

	// one immediate pass so gauges are populated right after startup
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	accounts, err := retry.Do(ctx, w.retryCfg, w.logger, "stats_list_accounts", func(ctx context.Context) ([]*domain.Account, error) {
		return w.accountRepo.ListAll()
	})
	if err != nil {
		w.logger.Error("failed to list accounts for stats",
			slog.String("error", err.Error()),
		)
		return
	}

	counts := map[string]int{}
	for _, a := range accounts {
		if a.TenantID == "" {
			continue
		}
		counts[a.TenantID]++
	}

	// publish zero for academies with no accounts yet, so gauges reset
	// when the last account of an academy disappears
	tenants, err := w.tenantRepo.List()
	if err != nil {
		w.logger.Warn("failed to list academies for stats",
			slog.String("error", err.Error()),
		)
	} else {
		for _, t := range tenants {
			if _, ok := counts[t.ID]; !ok {
				counts[t.ID] = 0
			}
		}
	}

	for tenantID, count := range counts {
		metrics.SetTenantAccounts(tenantID, count)
	}

	w.logger.Debug("account stats refreshed", slog.Int("academies", len(counts)))
}
