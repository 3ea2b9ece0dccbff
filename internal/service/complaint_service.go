package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/infrastructure/redis"
	"github.com/yourorg/civictrack/internal/observability/metrics"
	"github.com/yourorg/civictrack/internal/reliability/circuitbreaker"
	"github.com/yourorg/civictrack/internal/security"
	"github.com/yourorg/civictrack/pkg/config"
)

const listCacheTTL = 15 * time.Second

// ComplaintService is the visibility and assignment engine. The decision
// logic is pure given an employee and the complaint set; the Redis list
// cache is advisory and falls through to the store when unavailable.
type ComplaintService struct {
	complaintRepo domain.ComplaintRepository
	visibility    *security.VisibilityPolicy
	cache         *redis.Client
	breaker       *circuitbreaker.CircuitBreaker
	logger        *slog.Logger
	config        *config.Config
}

// NewComplaintService creates a new complaint service. The cache client
// may be nil, in which case every listing hits the store.
func NewComplaintService(
	complaintRepo domain.ComplaintRepository,
	visibility *security.VisibilityPolicy,
	cacheClient *redis.Client,
	logger *slog.Logger,
	cfg *config.Config,
) *ComplaintService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ComplaintService{
		complaintRepo: complaintRepo,
		visibility:    visibility,
		cache:         cacheClient,
		breaker:       circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		logger:        logger,
		config:        cfg,
	}
}

// VisibleComplaint pairs a complaint with its derived display color.
type VisibleComplaint struct {
	*domain.Complaint
	ColorCode string
}

func annotate(complaints []*domain.Complaint) []VisibleComplaint {
	out := make([]VisibleComplaint, 0, len(complaints))
	for _, c := range complaints {
		out = append(out, VisibleComplaint{Complaint: c, ColorCode: domain.StatusColor(c.Status)})
	}
	return out
}

// ListVisible returns the complaints the employee may see, in creation
// order, each annotated with its color code. Admins see everything;
// other employees see assigned-to-self, unassigned, and
// department-category complaints.
func (s *ComplaintService) ListVisible(ctx context.Context, employee *domain.Employee) ([]VisibleComplaint, error) {
	cacheKey := "complaints:" + employee.EmployeeID
	if employee.IsAdmin() {
		cacheKey = "complaints:all"
	}

	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return annotate(cached), nil
	}

	var (
		complaints []*domain.Complaint
		err        error
	)
	if employee.IsAdmin() {
		complaints, err = s.complaintRepo.ListAll()
	} else {
		complaints, err = s.complaintRepo.ListVisibleTo(employee.EmployeeID, employee.Department)
	}
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, complaints)
	return annotate(complaints), nil
}

// Get fetches a complaint by id. The visibility filter is not applied
// unless STRICT_VISIBILITY_ON_FETCH is configured: by default any
// authenticated employee may fetch any complaint directly.
func (s *ComplaintService) Get(ctx context.Context, employee *domain.Employee, complaintID string) (*VisibleComplaint, error) {
	complaint, err := s.complaintRepo.GetByID(complaintID)
	if err != nil {
		return nil, err
	}

	if s.config != nil && s.config.StrictVisibilityOnFetch && !s.visibility.CanSee(employee, complaint) {
		s.visibility.DenyFetch(employee, complaintID)
		return nil, domain.ErrComplaintNotFound
	}

	return &VisibleComplaint{Complaint: complaint, ColorCode: domain.StatusColor(complaint.Status)}, nil
}

// CreateInput carries citizen-supplied complaint fields.
type CreateInput struct {
	Title           string
	Description     string
	CitizenName     string
	CitizenPhone    string
	CitizenEmail    string
	Category        string
	Priority        string
	LocationAddress string
	Coordinates     *domain.Coordinates
	CitizenImage    string
}

// Create files a new citizen complaint: pending, unassigned, empty photo
// history. Priority defaults to medium.
func (s *ComplaintService) Create(ctx context.Context, input CreateInput) (*domain.Complaint, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	complaint := &domain.Complaint{
		Title:           input.Title,
		Description:     input.Description,
		CitizenName:     input.CitizenName,
		CitizenPhone:    input.CitizenPhone,
		CitizenEmail:    input.CitizenEmail,
		Category:        input.Category,
		Priority:        priority,
		Status:          domain.StatusPending,
		LocationAddress: input.LocationAddress,
		Coordinates:     input.Coordinates,
		CitizenImage:    input.CitizenImage,
		ProgressPhotos:  []domain.ProgressPhoto{},
	}

	if err := s.complaintRepo.Create(complaint); err != nil {
		return nil, err
	}

	metrics.ObserveComplaintCreated(complaint.Category)
	s.invalidateListings(ctx)

	s.logger.Info("complaint created",
		slog.String("complaint_id", complaint.ID),
		slog.String("category", complaint.Category),
		slog.String("priority", complaint.Priority),
	)

	return complaint, nil
}

// Update applies a partial patch: status and/or the assignment pair.
// Absent fields stay untouched; updated_at refreshes even for a no-op
// patch. Status transitions are permissive unless the strict table is
// enabled.
func (s *ComplaintService) Update(ctx context.Context, employee *domain.Employee, complaintID string, patch domain.ComplaintPatch) error {
	current, err := s.complaintRepo.GetByID(complaintID)
	if err != nil {
		return err
	}

	if patch.Status != nil && !transitionAllowed(current.Status, *patch.Status) {
		return domain.ErrInvalidStatusTransition
	}

	if err := s.complaintRepo.UpdateFields(complaintID, patch); err != nil {
		return err
	}

	metrics.ObserveComplaintUpdate()
	s.invalidateListings(ctx)

	attrs := []any{
		slog.String("complaint_id", complaintID),
		slog.String("employee_id", employee.EmployeeID),
	}
	if patch.Status != nil {
		attrs = append(attrs, slog.String("status", *patch.Status))
	}
	if patch.AssignedEmployeeID != nil {
		attrs = append(attrs, slog.String("assigned_employee_id", *patch.AssignedEmployeeID))
	}
	s.logger.Info("complaint updated", attrs...)

	return nil
}

// AppendProgressPhoto appends one photo entry stamped with the acting
// employee and the current time. Prior entries are never shortened or
// reordered.
func (s *ComplaintService) AppendProgressPhoto(ctx context.Context, employee *domain.Employee, complaintID, image, note string) error {
	if _, err := s.complaintRepo.GetByID(complaintID); err != nil {
		return err
	}

	photo := domain.ProgressPhoto{
		Image:      image,
		Note:       note,
		Timestamp:  time.Now().UTC(),
		AddedBy:    employee.Name,
		EmployeeID: employee.EmployeeID,
	}

	if err := s.complaintRepo.AppendProgressPhoto(complaintID, photo); err != nil {
		return err
	}

	metrics.ObserveProgressPhoto()
	s.invalidateListings(ctx)

	s.logger.Info("progress photo added",
		slog.String("complaint_id", complaintID),
		slog.String("employee_id", employee.EmployeeID),
	)

	return nil
}

func (s *ComplaintService) cacheGet(ctx context.Context, key string) ([]*domain.Complaint, bool) {
	if s.cache == nil || !s.breaker.AllowRequest() {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if redis.IsMiss(err) {
			s.breaker.RecordSuccess()
			return nil, false
		}
		s.breaker.RecordFailure()
		s.logger.Warn("list cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	s.breaker.RecordSuccess()

	var complaints []*domain.Complaint
	if err := json.Unmarshal([]byte(data), &complaints); err != nil {
		return nil, false
	}
	return complaints, true
}

func (s *ComplaintService) cacheSet(ctx context.Context, key string, complaints []*domain.Complaint) {
	if s.cache == nil || !s.breaker.AllowRequest() {
		return
	}

	data, err := json.Marshal(complaints)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), listCacheTTL); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("list cache write failed", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}

func (s *ComplaintService) invalidateListings(ctx context.Context) {
	if s.cache == nil || !s.breaker.AllowRequest() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "complaints:*"); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("list cache invalidation failed", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}
