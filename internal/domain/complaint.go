package domain

import "time"

// Complaint statuses
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Complaint priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Complaint represents a citizen-filed civic issue
type Complaint struct {
	ID                   string // Domain UUID exposed on the wire
	Title                string
	Description          string
	CitizenName          string
	CitizenPhone         string
	CitizenEmail         string // optional
	Category             string // "sanitation", "electrical", "general"
	Priority             string // "low", "medium", "high", "urgent"
	Status               string // "pending", "active", "resolved"
	LocationAddress      string
	Coordinates          *Coordinates // optional
	CitizenImage         string       // base64 encoded, optional
	AssignedEmployeeID   string       // empty when unassigned
	AssignedEmployeeName string
	ProgressPhotos       []ProgressPhoto
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Coordinates is an optional lat/lng pair attached to a complaint.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ProgressPhoto is one entry in a complaint's append-only photo history.
// Entries are never reordered or removed once appended.
type ProgressPhoto struct {
	Image      string    `json:"image"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	AddedBy    string    `json:"added_by"`
	EmployeeID string    `json:"employee_id"`
}

// Assigned reports whether the complaint is assigned to an employee.
func (c *Complaint) Assigned() bool {
	return c.AssignedEmployeeID != ""
}

// StatusColor maps a complaint status to its display color code. Unknown
// statuses fall back to gray so data drift degrades visibly instead of
// breaking clients.
func StatusColor(status string) string {
	switch status {
	case StatusPending:
		return "yellow"
	case StatusActive:
		return "orange"
	case StatusResolved:
		return "green"
	default:
		return "gray"
	}
}

// ComplaintPatch carries the fields of a partial update. Nil means the
// field is absent from the patch and left untouched. Assignment id and
// name are set together as a pair.
type ComplaintPatch struct {
	Status               *string
	AssignedEmployeeID   *string
	AssignedEmployeeName *string
}

// ComplaintRepository defines data access for complaints
type ComplaintRepository interface {
	Create(complaint *Complaint) error
	GetByID(id string) (*Complaint, error)
	ListAll() ([]*Complaint, error)
	ListVisibleTo(employeeID, department string) ([]*Complaint, error)
	// UpdateFields applies a field-level partial update in a single
	// statement and always refreshes updated_at, even for a no-op patch.
	UpdateFields(id string, patch ComplaintPatch) error
	// AppendProgressPhoto appends one entry to the photo history without
	// touching prior entries.
	AppendProgressPhoto(id string, photo ProgressPhoto) error
	CountAssigned(employeeID string) (int, error)
	CountResolved(employeeID string) (int, error)
}
