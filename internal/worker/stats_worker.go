package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/observability/metrics"
	"github.com/yourorg/civictrack/internal/service"
)

// StatsWorker periodically recomputes employee performance stats and
// refreshes the complaint status gauge.
type StatsWorker struct {
	statsService  *service.StatsService
	complaintRepo domain.ComplaintRepository
	logger        *slog.Logger
	interval      time.Duration
}

// NewStatsWorker creates a new stats refresh worker.
func NewStatsWorker(
	statsService *service.StatsService,
	complaintRepo domain.ComplaintRepository,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	return &StatsWorker{
		statsService:  statsService,
		complaintRepo: complaintRepo,
		logger:        logger,
		interval:      interval,
	}
}

// Start begins the refresh loop. It runs one pass immediately so dashboards
// have data right after startup, then ticks on the configured interval.
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
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
	refreshed, err := w.statsService.RecomputeAll(ctx)
	if err != nil {
		w.logger.Error("stats refresh failed", slog.String("error", err.Error()))
	} else {
		w.logger.Info("employee stats refreshed", slog.Int("employees", refreshed))
	}

	complaints, err := w.complaintRepo.ListAll()
	if err != nil {
		w.logger.Error("failed to list complaints for gauge refresh", slog.String("error", err.Error()))
		return
	}

	counts := map[string]int{
		domain.StatusPending:  0,
		domain.StatusActive:   0,
		domain.StatusResolved: 0,
	}
	for _, c := range complaints {
		counts[c.Status]++
	}
	for status, n := range counts {
		metrics.SetComplaintsByStatus(status, n)
	}
}
