package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/observability/metrics"
)

// StatsService recomputes an employee's resolution performance from the
// complaint set. The result is a display metric: the recompute is
// read-then-write with no transaction, so concurrent resolutions may
// leave it briefly stale.
type StatsService struct {
	employeeRepo  domain.EmployeeRepository
	complaintRepo domain.ComplaintRepository
	logger        *slog.Logger
}

// NewStatsService creates a new statistics service
func NewStatsService(
	employeeRepo domain.EmployeeRepository,
	complaintRepo domain.ComplaintRepository,
	logger *slog.Logger,
) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}

	return &StatsService{
		employeeRepo:  employeeRepo,
		complaintRepo: complaintRepo,
		logger:        logger,
	}
}

// Recompute counts the employee's assigned and resolved complaints,
// derives the resolution rate, writes the stats back onto the record and
// stamps last_activity. Idempotent absent complaint mutations.
func (s *StatsService) Recompute(ctx context.Context, employee *domain.Employee) (domain.PerformanceStats, error) {
	return s.recompute(ctx, employee, "on_demand")
}

// RecomputeAll refreshes stats for every active employee. Used by the
// background refresher; errors on individual employees are logged and
// skipped so one bad record does not starve the rest.
func (s *StatsService) RecomputeAll(ctx context.Context) (int, error) {
	employees, err := s.employeeRepo.ListActive()
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, employee := range employees {
		if _, err := s.recompute(ctx, employee, "background"); err != nil {
			s.logger.Error("failed to recompute stats",
				slog.String("employee_id", employee.EmployeeID),
				slog.String("error", err.Error()),
			)
			continue
		}
		refreshed++
	}

	return refreshed, nil
}

func (s *StatsService) recompute(ctx context.Context, employee *domain.Employee, source string) (domain.PerformanceStats, error) {
	assigned, err := s.complaintRepo.CountAssigned(employee.EmployeeID)
	if err != nil {
		return domain.PerformanceStats{}, err
	}

	resolved, err := s.complaintRepo.CountResolved(employee.EmployeeID)
	if err != nil {
		return domain.PerformanceStats{}, err
	}

	stats := domain.PerformanceStats{
		TotalComplaintsAssigned: assigned,
		TotalComplaintsResolved: resolved,
		ResolutionRate:          resolutionRate(resolved, assigned),
		LastActivity:            time.Now().UTC(),
	}

	if err := s.employeeRepo.UpdateStats(employee.EmployeeID, stats); err != nil {
		return domain.PerformanceStats{}, err
	}

	employee.Stats = stats
	metrics.ObserveStatsRecompute(source)

	s.logger.Debug("performance stats recomputed",
		slog.String("employee_id", employee.EmployeeID),
		slog.Int("assigned", assigned),
		slog.Int("resolved", resolved),
	)

	return stats, nil
}

// resolutionRate is resolved/assigned as a percentage rounded to one
// decimal, 0 when nothing is assigned.
func resolutionRate(resolved, assigned int) float64 {
	if assigned == 0 {
		return 0
	}
	return math.Round(float64(resolved)/float64(assigned)*100*10) / 10
}
