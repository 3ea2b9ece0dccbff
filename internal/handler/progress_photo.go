package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/service"
)

// ProgressPhotoRequest carries a base64 photo and an optional note
type ProgressPhotoRequest struct {
	Image string `json:"image"`
	Note  string `json:"note"`
}

// ProgressPhotoHandler appends a photo to a complaint's work history
type ProgressPhotoHandler struct {
	complaintService *service.ComplaintService
	authService      *service.AuthService
	audit            *audit.Logger
	logger           *slog.Logger
}

// NewProgressPhotoHandler creates a new progress photo handler
func NewProgressPhotoHandler(complaintService *service.ComplaintService, authService *service.AuthService, auditLogger *audit.Logger, logger *slog.Logger) *ProgressPhotoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressPhotoHandler{
		complaintService: complaintService,
		authService:      authService,
		audit:            auditLogger,
		logger:           logger,
	}
}

// ServeHTTP handles POST /api/complaints/{id}/progress-photo requests
func (h *ProgressPhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req ProgressPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	complaintID := r.PathValue("id")
	if err := h.complaintService.AppendProgressPhoto(r.Context(), employee, complaintID, req.Image, req.Note); err != nil {
		h.audit.LogProgressPhoto(r.Context(), employee.EmployeeID, complaintID, "denied")
		respondDomainError(w, err)
		return
	}

	h.audit.LogProgressPhoto(r.Context(), employee.EmployeeID, complaintID, "success")
	respondJSON(w, http.StatusOK, map[string]string{"message": "progress photo added successfully"})
}
