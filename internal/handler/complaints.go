package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/service"
)

// ComplaintListHandler serves the visibility-filtered complaint listing
type ComplaintListHandler struct {
	complaintService *service.ComplaintService
	authService      *service.AuthService
	logger           *slog.Logger
}

// NewComplaintListHandler creates a new complaint listing handler
func NewComplaintListHandler(complaintService *service.ComplaintService, authService *service.AuthService, logger *slog.Logger) *ComplaintListHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplaintListHandler{
		complaintService: complaintService,
		authService:      authService,
		logger:           logger,
	}
}

// ServeHTTP handles GET /api/complaints requests
func (h *ComplaintListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	visible, err := h.complaintService.ListVisible(r.Context(), employee)
	if err != nil {
		h.logger.Error("failed to list complaints",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		respondDomainError(w, err)
		return
	}

	out := make([]complaintResponse, 0, len(visible))
	for _, vc := range visible {
		out = append(out, toComplaintResponse(vc))
	}
	respondJSON(w, http.StatusOK, out)
}

// ComplaintGetHandler serves a single complaint by id
type ComplaintGetHandler struct {
	complaintService *service.ComplaintService
	authService      *service.AuthService
	logger           *slog.Logger
}

// NewComplaintGetHandler creates a new single-complaint handler
func NewComplaintGetHandler(complaintService *service.ComplaintService, authService *service.AuthService, logger *slog.Logger) *ComplaintGetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplaintGetHandler{
		complaintService: complaintService,
		authService:      authService,
		logger:           logger,
	}
}

// ServeHTTP handles GET /api/complaints/{id} requests
func (h *ComplaintGetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	vc, err := h.complaintService.Get(r.Context(), employee, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toComplaintResponse(*vc))
}

// CreateComplaintRequest is the citizen intake payload
type CreateComplaintRequest struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	CitizenName     string              `json:"citizen_name"`
	CitizenPhone    string              `json:"citizen_phone"`
	CitizenEmail    string              `json:"citizen_email"`
	Category        string              `json:"category"`
	Priority        string              `json:"priority"`
	LocationAddress string              `json:"location_address"`
	Coordinates     *domain.Coordinates `json:"coordinates"`
	CitizenImage    string              `json:"citizen_image"`
}

// ComplaintCreateHandler handles unauthenticated citizen intake
type ComplaintCreateHandler struct {
	complaintService *service.ComplaintService
	logger           *slog.Logger
}

// NewComplaintCreateHandler creates a new complaint intake handler
func NewComplaintCreateHandler(complaintService *service.ComplaintService, logger *slog.Logger) *ComplaintCreateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplaintCreateHandler{complaintService: complaintService, logger: logger}
}

// ServeHTTP handles POST /api/complaints requests
func (h *ComplaintCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" || req.CitizenName == "" || req.CitizenPhone == "" || req.Category == "" || req.LocationAddress == "" {
		respondError(w, http.StatusBadRequest, "title, description, citizen_name, citizen_phone, category, and location_address are required")
		return
	}

	complaint, err := h.complaintService.Create(r.Context(), service.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		CitizenName:     req.CitizenName,
		CitizenPhone:    req.CitizenPhone,
		CitizenEmail:    req.CitizenEmail,
		Category:        req.Category,
		Priority:        req.Priority,
		LocationAddress: req.LocationAddress,
		Coordinates:     req.Coordinates,
		CitizenImage:    req.CitizenImage,
	})
	if err != nil {
		h.logger.Error("failed to create complaint", slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message":      "complaint registered successfully",
		"complaint_id": complaint.ID,
	})
}

// UpdateComplaintRequest is a partial patch. Absent fields are left
// untouched; assignment id and name travel as a pair.
type UpdateComplaintRequest struct {
	Status               *string `json:"status"`
	AssignedEmployeeID   *string `json:"assigned_employee_id"`
	AssignedEmployeeName *string `json:"assigned_employee_name"`
}

// ComplaintUpdateHandler handles status and assignment changes
type ComplaintUpdateHandler struct {
	complaintService *service.ComplaintService
	authService      *service.AuthService
	audit            *audit.Logger
	logger           *slog.Logger
}

// NewComplaintUpdateHandler creates a new complaint update handler
func NewComplaintUpdateHandler(complaintService *service.ComplaintService, authService *service.AuthService, auditLogger *audit.Logger, logger *slog.Logger) *ComplaintUpdateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplaintUpdateHandler{
		complaintService: complaintService,
		authService:      authService,
		audit:            auditLogger,
		logger:           logger,
	}
}

// ServeHTTP handles PUT /api/complaints/{id} requests
func (h *ComplaintUpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := currentEmployee(r, h.authService)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req UpdateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != nil && !validStatus(*req.Status) {
		respondError(w, http.StatusBadRequest, "status must be pending, active, or resolved")
		return
	}
	if (req.AssignedEmployeeID == nil) != (req.AssignedEmployeeName == nil) {
		respondError(w, http.StatusBadRequest, "assigned_employee_id and assigned_employee_name must be set together")
		return
	}

	complaintID := r.PathValue("id")
	patch := domain.ComplaintPatch{
		Status:               req.Status,
		AssignedEmployeeID:   req.AssignedEmployeeID,
		AssignedEmployeeName: req.AssignedEmployeeName,
	}
	if err := h.complaintService.Update(r.Context(), employee, complaintID, patch); err != nil {
		h.audit.LogComplaintUpdate(r.Context(), employee.EmployeeID, complaintID, "denied", err.Error())
		respondDomainError(w, err)
		return
	}

	h.audit.LogComplaintUpdate(r.Context(), employee.EmployeeID, complaintID, "success", "")
	respondJSON(w, http.StatusOK, map[string]string{"message": "complaint updated successfully"})
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusPending, domain.StatusActive, domain.StatusResolved:
		return true
	}
	return false
}
