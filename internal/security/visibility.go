package security

import (
	"log/slog"

	"github.com/yourorg/civictrack/internal/domain"
)

// VisibilityPolicy decides which complaints an employee may see. The
// policy is pure: it depends only on the employee's identity/department
// and the complaint's assignment and category.
type VisibilityPolicy struct {
	logger *slog.Logger
}

// NewVisibilityPolicy creates a visibility policy
func NewVisibilityPolicy(logger *slog.Logger) *VisibilityPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisibilityPolicy{logger: logger}
}

// CanSee reports whether a complaint is visible to an employee under the
// listing rules: admins see everything; everyone else sees complaints
// assigned to them, the unassigned pool, and their department's category.
func (p *VisibilityPolicy) CanSee(employee *domain.Employee, complaint *domain.Complaint) bool {
	if employee.IsAdmin() {
		return true
	}
	if complaint.AssignedEmployeeID == employee.EmployeeID {
		return true
	}
	if !complaint.Assigned() {
		return true
	}
	return complaint.Category == employee.Department
}

// Filter returns the subset of complaints visible to the employee,
// preserving input order.
func (p *VisibilityPolicy) Filter(employee *domain.Employee, complaints []*domain.Complaint) []*domain.Complaint {
	if employee.IsAdmin() {
		return complaints
	}
	visible := make([]*domain.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if p.CanSee(employee, c) {
			visible = append(visible, c)
		}
	}
	return visible
}

// DenyFetch logs a strict-mode fetch denial. Only called when
// STRICT_VISIBILITY_ON_FETCH is enabled.
func (p *VisibilityPolicy) DenyFetch(employee *domain.Employee, complaintID string) {
	p.logger.Warn("fetch denied by strict visibility",
		slog.String("employee_id", employee.EmployeeID),
		slog.String("department", employee.Department),
		slog.String("complaint_id", complaintID),
	)
}
