package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security"
	"github.com/yourorg/civictrack/pkg/config"
)

type memComplaintRepo struct {
	complaints []*domain.Complaint
	seq        int
}

func newMemComplaintRepo() *memComplaintRepo {
	return &memComplaintRepo{}
}

func (m *memComplaintRepo) Create(c *domain.Complaint) error {
	m.seq++
	if c.ID == "" {
		c.ID = fmt.Sprintf("c-%d", m.seq)
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.complaints = append(m.complaints, c)
	return nil
}

func (m *memComplaintRepo) GetByID(id string) (*domain.Complaint, error) {
	for _, c := range m.complaints {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domain.ErrComplaintNotFound
}

func (m *memComplaintRepo) ListAll() ([]*domain.Complaint, error) {
	return append([]*domain.Complaint{}, m.complaints...), nil
}

func (m *memComplaintRepo) ListVisibleTo(employeeID, department string) ([]*domain.Complaint, error) {
	out := []*domain.Complaint{}
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID || !c.Assigned() || c.Category == department {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComplaintRepo) UpdateFields(id string, patch domain.ComplaintPatch) error {
	for _, c := range m.complaints {
		if c.ID != id {
			continue
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		if patch.AssignedEmployeeID != nil {
			c.AssignedEmployeeID = *patch.AssignedEmployeeID
			c.AssignedEmployeeName = *patch.AssignedEmployeeName
		}
		c.UpdatedAt = time.Now()
		return nil
	}
	return domain.ErrComplaintNotFound
}

func (m *memComplaintRepo) AppendProgressPhoto(id string, photo domain.ProgressPhoto) error {
	for _, c := range m.complaints {
		if c.ID == id {
			c.ProgressPhotos = append(c.ProgressPhotos, photo)
			return nil
		}
	}
	return domain.ErrComplaintNotFound
}

func (m *memComplaintRepo) CountAssigned(employeeID string) (int, error) {
	n := 0
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID {
			n++
		}
	}
	return n, nil
}

func (m *memComplaintRepo) CountResolved(employeeID string) (int, error) {
	n := 0
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID && c.Status == domain.StatusResolved {
			n++
		}
	}
	return n, nil
}

func newTestComplaintService(repo *memComplaintRepo, cfg *config.Config) *ComplaintService {
	return NewComplaintService(repo, security.NewVisibilityPolicy(nil), nil, nil, cfg)
}

func seedComplaint(t *testing.T, s *ComplaintService, title, category string) *domain.Complaint {
	t.Helper()
	c, err := s.Create(context.Background(), CreateInput{
		Title:           title,
		Description:     "desc",
		CitizenName:     "Asha",
		CitizenPhone:    "555-0100",
		Category:        category,
		LocationAddress: "12 Market Rd",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return c
}

func TestCreateDefaults(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)

	c := seedComplaint(t, s, "Overflowing bin", "sanitation")
	if c.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.Priority != domain.PriorityMedium {
		t.Fatalf("expected default medium priority, got %s", c.Priority)
	}
	if c.Assigned() {
		t.Fatalf("new complaint must be unassigned")
	}
	if c.ProgressPhotos == nil || len(c.ProgressPhotos) != 0 {
		t.Fatalf("expected empty photo history, got %v", c.ProgressPhotos)
	}
}

func TestVisibilityFiltering(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()

	mine := seedComplaint(t, s, "Streetlight out", "electrical")
	unassigned := seedComplaint(t, s, "Overflowing bin", "sanitation")
	departmental := seedComplaint(t, s, "Blocked drain", "sanitation")
	foreign := seedComplaint(t, s, "Broken transformer", "electrical")

	assign := func(id, empID, name string) {
		t.Helper()
		admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}
		err := s.Update(ctx, admin, id, domain.ComplaintPatch{
			AssignedEmployeeID:   &empID,
			AssignedEmployeeName: &name,
		})
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
	}
	assign(mine.ID, "EMP001", "Ravi Kumar")
	assign(departmental.ID, "EMP002", "Sunita Devi")
	assign(foreign.ID, "EMP003", "Arun Singh")

	emp := &domain.Employee{EmployeeID: "EMP001", Department: domain.DepartmentSanitation}
	visible, err := s.ListVisible(ctx, emp)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	got := map[string]bool{}
	for _, vc := range visible {
		got[vc.ID] = true
	}
	// Assigned to self, even outside own department
	if !got[mine.ID] {
		t.Errorf("expected own assigned complaint visible")
	}
	// Unassigned pool
	if !got[unassigned.ID] {
		t.Errorf("expected unassigned complaint visible")
	}
	// Department category, even when assigned to someone else
	if !got[departmental.ID] {
		t.Errorf("expected department complaint visible")
	}
	// Other department, assigned elsewhere
	if got[foreign.ID] {
		t.Errorf("foreign complaint must not be visible")
	}

	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}
	all, err := s.ListVisible(ctx, admin)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("admin should see all 4, got %d", len(all))
	}
}

func TestColorCodes(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}

	c := seedComplaint(t, s, "Overflowing bin", "sanitation")

	expect := map[string]string{
		domain.StatusPending:  "yellow",
		domain.StatusActive:   "orange",
		domain.StatusResolved: "green",
	}
	for status, color := range expect {
		st := status
		if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &st}); err != nil {
			t.Fatalf("update to %s failed: %v", status, err)
		}
		vc, err := s.Get(ctx, admin, c.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if vc.ColorCode != color {
			t.Errorf("status %s: expected %s, got %s", status, color, vc.ColorCode)
		}
	}

	if got := domain.StatusColor("garbage"); got != "gray" {
		t.Errorf("unknown status should map to gray, got %s", got)
	}
}

func TestGetIsUnfilteredByDefault(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()

	c := seedComplaint(t, s, "Broken transformer", "electrical")
	id, name := "EMP003", "Arun Singh"
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{AssignedEmployeeID: &id, AssignedEmployeeName: &name}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	// Outside the sanitation employee's visible pool, yet fetchable by id
	outsider := &domain.Employee{EmployeeID: "EMP001", Department: domain.DepartmentSanitation}
	if _, err := s.Get(ctx, outsider, c.ID); err != nil {
		t.Fatalf("expected unfiltered fetch, got %v", err)
	}
}

func TestGetStrictVisibility(t *testing.T) {
	repo := newMemComplaintRepo()
	cfg := &config.Config{StrictVisibilityOnFetch: true}
	s := newTestComplaintService(repo, cfg)
	ctx := context.Background()

	c := seedComplaint(t, s, "Broken transformer", "electrical")
	id, name := "EMP003", "Arun Singh"
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{AssignedEmployeeID: &id, AssignedEmployeeName: &name}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	outsider := &domain.Employee{EmployeeID: "EMP001", Department: domain.DepartmentSanitation}
	if _, err := s.Get(ctx, outsider, c.ID); !errors.Is(err, domain.ErrComplaintNotFound) {
		t.Fatalf("expected not found under strict visibility, got %v", err)
	}

	// The assignee still sees it
	assignee := &domain.Employee{EmployeeID: "EMP003", Department: domain.DepartmentElectrical}
	if _, err := s.Get(ctx, assignee, c.ID); err != nil {
		t.Fatalf("assignee fetch failed: %v", err)
	}
}

func TestUpdatePatchSemantics(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}

	c := seedComplaint(t, s, "Overflowing bin", "sanitation")

	// Assignment without status leaves status untouched
	id, name := "EMP001", "Ravi Kumar"
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{AssignedEmployeeID: &id, AssignedEmployeeName: &name}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	got, _ := repo.GetByID(c.ID)
	if got.Status != domain.StatusPending {
		t.Errorf("status must be untouched, got %s", got.Status)
	}
	if got.AssignedEmployeeID != "EMP001" || got.AssignedEmployeeName != "Ravi Kumar" {
		t.Errorf("assignment not applied: %+v", got)
	}

	// Empty-string assignment returns the complaint to the unassigned pool
	blank := ""
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{AssignedEmployeeID: &blank, AssignedEmployeeName: &blank}); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}
	got, _ = repo.GetByID(c.ID)
	if got.Assigned() {
		t.Errorf("expected unassigned after blank patch, got %q", got.AssignedEmployeeID)
	}

	// Unknown complaint
	st := domain.StatusActive
	if err := s.Update(ctx, admin, "missing", domain.ComplaintPatch{Status: &st}); !errors.Is(err, domain.ErrComplaintNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStrictTransitions(t *testing.T) {
	t.Setenv("FLAG_STRICT_TRANSITIONS", "true")

	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}

	c := seedComplaint(t, s, "Overflowing bin", "sanitation")

	// pending -> resolved skips the active stage
	resolved := domain.StatusResolved
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &resolved}); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// pending -> active -> resolved walks the ladder
	active := domain.StatusActive
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &active}); err != nil {
		t.Fatalf("pending->active failed: %v", err)
	}
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &resolved}); err != nil {
		t.Fatalf("active->resolved failed: %v", err)
	}

	// resolved is terminal under the strict table
	pending := domain.StatusPending
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &pending}); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected terminal resolved, got %v", err)
	}

	// Same-status writes always pass
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &resolved}); err != nil {
		t.Fatalf("no-op status write failed: %v", err)
	}
}

func TestPermissiveTransitionsByDefault(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()
	admin := &domain.Employee{EmployeeID: "ADM", Department: domain.DepartmentAdmin}

	c := seedComplaint(t, s, "Overflowing bin", "sanitation")

	// Reopening a resolved complaint straight to pending is allowed
	resolved, pending := domain.StatusResolved, domain.StatusPending
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &resolved}); err != nil {
		t.Fatalf("pending->resolved failed: %v", err)
	}
	if err := s.Update(ctx, admin, c.ID, domain.ComplaintPatch{Status: &pending}); err != nil {
		t.Fatalf("resolved->pending failed: %v", err)
	}
}

func TestAppendProgressPhoto(t *testing.T) {
	repo := newMemComplaintRepo()
	s := newTestComplaintService(repo, nil)
	ctx := context.Background()

	c := seedComplaint(t, s, "Blocked drain", "sanitation")
	emp := &domain.Employee{EmployeeID: "EMP001", Name: "Ravi Kumar", Department: domain.DepartmentSanitation}

	if err := s.AppendProgressPhoto(ctx, emp, c.ID, "base64-one", "before"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.AppendProgressPhoto(ctx, emp, c.ID, "base64-two", ""); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, _ := repo.GetByID(c.ID)
	if len(got.ProgressPhotos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(got.ProgressPhotos))
	}
	first, second := got.ProgressPhotos[0], got.ProgressPhotos[1]
	if first.Image != "base64-one" || second.Image != "base64-two" {
		t.Errorf("photos out of order: %v", got.ProgressPhotos)
	}
	if first.AddedBy != "Ravi Kumar" || first.EmployeeID != "EMP001" {
		t.Errorf("photo not stamped with employee: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Errorf("photo missing timestamp")
	}

	if err := s.AppendProgressPhoto(ctx, emp, "missing", "img", ""); !errors.Is(err, domain.ErrComplaintNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
