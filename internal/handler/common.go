package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security/middleware"
	"github.com/yourorg/civictrack/internal/service"
)

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps a domain sentinel error to its HTTP status.
// Unknown errors become a generic 500 so internals never leak outward.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrAccountDeactivated):
		respondError(w, http.StatusUnauthorized, "account is deactivated")
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrTokenExpired):
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, domain.ErrDuplicateEmployeeID):
		respondError(w, http.StatusConflict, "employee ID already exists")
	case errors.Is(err, domain.ErrComplaintNotFound):
		respondError(w, http.StatusNotFound, "complaint not found")
	case errors.Is(err, domain.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, "employee not found")
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		respondError(w, http.StatusBadRequest, "invalid status transition")
	case errors.Is(err, domain.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// currentEmployee resolves the authenticated employee for the request from
// the JWT claims placed in the context by the middleware. A token whose
// employee record no longer exists is an authentication failure, not a
// missing resource: the 404 mapping of ErrEmployeeNotFound is reserved
// for operations targeting someone else's record.
func currentEmployee(r *http.Request, authService *service.AuthService) (*domain.Employee, error) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return nil, domain.ErrInvalidToken
	}
	employee, err := authService.EmployeeByID(r.Context(), claims.EmployeeID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return employee, nil
}

// employeeResponse is the outward employee shape. The password hash and
// the internal row UUID are never serialized.
type employeeResponse struct {
	EmployeeID       string                  `json:"employee_id"`
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Department       string                  `json:"department"`
	ContactPhone     string                  `json:"contact_phone,omitempty"`
	IsActive         bool                    `json:"is_active"`
	CreatedAt        string                  `json:"created_at"`
	PerformanceStats domain.PerformanceStats `json:"performance_stats"`
}

func toEmployeeResponse(e *domain.Employee) employeeResponse {
	return employeeResponse{
		EmployeeID:       e.EmployeeID,
		Name:             e.Name,
		Email:            e.Email,
		Department:       e.Department,
		ContactPhone:     e.ContactPhone,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
		PerformanceStats: e.Stats,
	}
}

// complaintResponse is the outward complaint shape, including the derived
// color_code for the status badge.
type complaintResponse struct {
	ID                   string                 `json:"id"`
	Title                string                 `json:"title"`
	Description          string                 `json:"description"`
	CitizenName          string                 `json:"citizen_name"`
	CitizenPhone         string                 `json:"citizen_phone"`
	CitizenEmail         string                 `json:"citizen_email,omitempty"`
	Category             string                 `json:"category"`
	Priority             string                 `json:"priority"`
	Status               string                 `json:"status"`
	ColorCode            string                 `json:"color_code"`
	LocationAddress      string                 `json:"location_address"`
	Coordinates          *domain.Coordinates    `json:"coordinates,omitempty"`
	CitizenImage         string                 `json:"citizen_image,omitempty"`
	AssignedEmployeeID   string                 `json:"assigned_employee_id,omitempty"`
	AssignedEmployeeName string                 `json:"assigned_employee_name,omitempty"`
	ProgressPhotos       []domain.ProgressPhoto `json:"progress_photos"`
	CreatedAt            string                 `json:"created_at"`
	UpdatedAt            string                 `json:"updated_at"`
}

func toComplaintResponse(vc service.VisibleComplaint) complaintResponse {
	c := vc.Complaint
	photos := c.ProgressPhotos
	if photos == nil {
		photos = []domain.ProgressPhoto{}
	}
	return complaintResponse{
		ID:                   c.ID,
		Title:                c.Title,
		Description:          c.Description,
		CitizenName:          c.CitizenName,
		CitizenPhone:         c.CitizenPhone,
		CitizenEmail:         c.CitizenEmail,
		Category:             c.Category,
		Priority:             c.Priority,
		Status:               c.Status,
		ColorCode:            vc.ColorCode,
		LocationAddress:      c.LocationAddress,
		Coordinates:          c.Coordinates,
		CitizenImage:         c.CitizenImage,
		AssignedEmployeeID:   c.AssignedEmployeeID,
		AssignedEmployeeName: c.AssignedEmployeeName,
		ProgressPhotos:       photos,
		CreatedAt:            c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
