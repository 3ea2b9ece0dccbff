package domain

import "time"

// Employee represents a municipal department worker
type Employee struct {
	ID           string // Internal row UUID, never serialized outward
	EmployeeID   string // Human-assigned unique identifier (login name)
	Name         string
	Email        string
	Department   string // "sanitation", "electrical", "admin"
	ContactPhone string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	IsActive     bool
	CreatedAt    time.Time
	Stats        PerformanceStats
}

// PerformanceStats holds derived resolution metrics. The values are
// recomputed from the complaint set and are display-only: they must never
// be treated as authoritative state.
type PerformanceStats struct {
	TotalComplaintsAssigned int       `json:"total_complaints_assigned"`
	TotalComplaintsResolved int       `json:"total_complaints_resolved"`
	ResolutionRate          float64   `json:"resolution_rate"`
	LastActivity            time.Time `json:"last_activity"`
}

// IsAdmin reports whether the employee has the all-seeing admin role.
func (e *Employee) IsAdmin() bool {
	return e.Department == DepartmentAdmin
}

// Departments with special meaning. Non-admin departments double as
// complaint categories for the department-relevant visible pool.
const (
	DepartmentAdmin      = "admin"
	DepartmentSanitation = "sanitation"
	DepartmentElectrical = "electrical"
)

// EmployeeRepository defines data access for employees. Lookups key on
// the human-assigned EmployeeID, not the internal row UUID.
type EmployeeRepository interface {
	Create(employee *Employee) error
	GetByEmployeeID(employeeID string) (*Employee, error)
	UpdateStats(employeeID string, stats PerformanceStats) error
	ListActive() ([]*Employee, error)
	Deactivate(employeeID string) error
}
