package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/service"
)

// CreateEmployeeRequest is the registration payload for a new employee
type CreateEmployeeRequest struct {
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Department   string `json:"department"`
	ContactPhone string `json:"contact_phone"`
	Password     string `json:"password"`
}

// EmployeeCreateHandler handles employee registration
type EmployeeCreateHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewEmployeeCreateHandler creates a new employee registration handler
func NewEmployeeCreateHandler(authService *service.AuthService, logger *slog.Logger) *EmployeeCreateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeCreateHandler{authService: authService, logger: logger}
}

// ServeHTTP handles POST /api/employees requests
func (h *EmployeeCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	employee := &domain.Employee{
		EmployeeID:   req.EmployeeID,
		Name:         req.Name,
		Email:        req.Email,
		Department:   req.Department,
		ContactPhone: req.ContactPhone,
	}
	if err := h.authService.RegisterEmployee(r.Context(), employee, req.Password); err != nil {
		if verr, ok := err.(*service.ValidationError); ok {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("employee registration failed",
			slog.String("employee_id", req.EmployeeID),
			slog.String("error", err.Error()),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message":     "employee created successfully",
		"employee_id": employee.EmployeeID,
	})
}

// EmployeeDeactivateHandler handles admin soft-deletion of an employee
type EmployeeDeactivateHandler struct {
	authService *service.AuthService
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewEmployeeDeactivateHandler creates a new employee deactivation handler
func NewEmployeeDeactivateHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *EmployeeDeactivateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeDeactivateHandler{authService: authService, auditLog: auditLog, logger: logger}
}

// ServeHTTP handles DELETE /api/employees/{id} requests
func (h *EmployeeDeactivateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !actor.IsAdmin() {
		respondError(w, http.StatusForbidden, "admin access required")
		return
	}

	employeeID := r.PathValue("id")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required")
		return
	}
	if employeeID == actor.EmployeeID {
		respondError(w, http.StatusBadRequest, "cannot deactivate own account")
		return
	}

	if err := h.authService.DeactivateEmployee(r.Context(), employeeID); err != nil {
		h.auditLog.LogAction(r.Context(), actor.EmployeeID, "deactivate", "employee", employeeID, "denied", err.Error())
		respondDomainError(w, err)
		return
	}

	h.auditLog.LogAction(r.Context(), actor.EmployeeID, "deactivate", "employee", employeeID, "success", "")
	respondJSON(w, http.StatusOK, map[string]string{
		"message":     "employee deactivated",
		"employee_id": employeeID,
	})
}
