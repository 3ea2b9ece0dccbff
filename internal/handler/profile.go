package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/civictrack/internal/service"
)

// ProfileHandler returns the authenticated employee's profile with
// freshly recomputed performance stats.
type ProfileHandler struct {
	authService  *service.AuthService
	statsService *service.StatsService
	logger       *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *service.AuthService, statsService *service.StatsService, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandler{
		authService:  authService,
		statsService: statsService,
		logger:       logger,
	}
}

// ServeHTTP handles GET /api/profile requests
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats, err := h.statsService.Recompute(r.Context(), employee)
	if err != nil {
		// Stale stats beat a failed profile fetch.
		h.logger.Warn("stats recompute failed, serving stored stats",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
	} else {
		employee.Stats = stats
		h.authService.InvalidateEmployee(employee.EmployeeID)
	}

	respondJSON(w, http.StatusOK, toEmployeeResponse(employee))
}
