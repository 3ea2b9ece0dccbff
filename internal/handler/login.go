package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/civictrack/internal/observability/metrics"
	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/service"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

// LoginResponse contains the bearer token and the employee profile
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	Employee    employeeResponse `json:"employee"`
}

// LoginHandler handles employee authentication
type LoginHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(authService *service.AuthService, auditLogger *audit.Logger, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		authService: authService,
		audit:       auditLogger,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/auth/login requests
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EmployeeID == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "employee_id and password required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.EmployeeID, req.Password)
	if err != nil {
		h.logger.Warn("login failed",
			slog.String("employee_id", req.EmployeeID),
			slog.String("error", err.Error()),
		)
		h.audit.LogLogin(r.Context(), req.EmployeeID, "denied", err.Error())
		metrics.ObserveLogin("failure")
		respondDomainError(w, err)
		return
	}

	h.audit.LogLogin(r.Context(), req.EmployeeID, "success", "")
	metrics.ObserveLogin("success")
	respondJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		Employee:    toEmployeeResponse(result.Employee),
	})
}
