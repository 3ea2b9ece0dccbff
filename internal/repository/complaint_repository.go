package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/yourorg/civictrack/internal/domain"
)

// PostgresComplaintRepository implements domain.ComplaintRepository using PostgreSQL
type PostgresComplaintRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresComplaintRepository creates a new complaint repository
func NewPostgresComplaintRepository(db *sql.DB, logger *slog.Logger) *PostgresComplaintRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresComplaintRepository{
		db:     db,
		logger: logger,
	}
}

const complaintColumns = `id, title, description, citizen_name, citizen_phone, citizen_email, category, priority, status,
	location_address, location_lat, location_lng, citizen_image, assigned_employee_id, assigned_employee_name,
	progress_photos, created_at, updated_at`

// Create inserts a new complaint
func (r *PostgresComplaintRepository) Create(complaint *domain.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}

	photos, err := json.Marshal(complaint.ProgressPhotos)
	if err != nil {
		return fmt.Errorf("failed to marshal progress photos: %w", err)
	}
	if complaint.ProgressPhotos == nil {
		photos = []byte("[]")
	}

	var lat, lng sql.NullFloat64
	if complaint.Coordinates != nil {
		lat = sql.NullFloat64{Float64: complaint.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: complaint.Coordinates.Lng, Valid: true}
	}

	query := `
		INSERT INTO complaints (id, title, description, citizen_name, citizen_phone, citizen_email, category, priority, status,
			location_address, location_lat, location_lng, citizen_image, assigned_employee_id, assigned_employee_name, progress_photos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(
		query,
		complaint.ID,
		complaint.Title,
		complaint.Description,
		complaint.CitizenName,
		complaint.CitizenPhone,
		nullString(complaint.CitizenEmail),
		complaint.Category,
		complaint.Priority,
		complaint.Status,
		complaint.LocationAddress,
		lat,
		lng,
		nullString(complaint.CitizenImage),
		nullString(complaint.AssignedEmployeeID),
		nullString(complaint.AssignedEmployeeName),
		photos,
	).Scan(&complaint.CreatedAt, &complaint.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create complaint",
			slog.String("complaint_id", complaint.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create complaint: %w", err)
	}

	return nil
}

// GetByID retrieves a complaint by its domain id
func (r *PostgresComplaintRepository) GetByID(id string) (*domain.Complaint, error) {
	row := r.db.QueryRow(`SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	complaint, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrComplaintNotFound
		}
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return complaint, nil
}

// ListAll returns every complaint in creation order. Admin listing.
func (r *PostgresComplaintRepository) ListAll() ([]*domain.Complaint, error) {
	rows, err := r.db.Query(`SELECT ` + complaintColumns + ` FROM complaints ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	return collectComplaints(rows)
}

// ListVisibleTo returns complaints visible to a non-admin employee:
// assigned to them, unassigned, or matching their department's category.
// Creation order keeps repeated calls stable absent mutation.
func (r *PostgresComplaintRepository) ListVisibleTo(employeeID, department string) ([]*domain.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE assigned_employee_id = $1
		   OR assigned_employee_id IS NULL
		   OR category = $2
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, employeeID, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	return collectComplaints(rows)
}

// UpdateFields applies a partial update as a single field-level UPDATE so
// concurrent patches to different fields do not clobber each other.
// updated_at is refreshed unconditionally, even for an empty patch.
func (r *PostgresComplaintRepository) UpdateFields(id string, patch domain.ComplaintPatch) error {
	set := []string{"updated_at = now()"}
	args := []interface{}{id}
	next := 2

	if patch.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", next))
		args = append(args, *patch.Status)
		next++
	}
	if patch.AssignedEmployeeID != nil {
		// An empty id unassigns; NULL keeps the complaint in the
		// unassigned pool for visibility queries.
		set = append(set, fmt.Sprintf("assigned_employee_id = $%d", next))
		args = append(args, nullString(*patch.AssignedEmployeeID))
		next++
		name := ""
		if patch.AssignedEmployeeName != nil {
			name = *patch.AssignedEmployeeName
		}
		set = append(set, fmt.Sprintf("assigned_employee_name = $%d", next))
		args = append(args, nullString(name))
		next++
	}

	query := fmt.Sprintf(`UPDATE complaints SET %s WHERE id = $1`, strings.Join(set, ", "))

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("failed to update complaint",
			slog.String("complaint_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update complaint: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrComplaintNotFound
	}

	return nil
}

// AppendProgressPhoto appends a single entry to the jsonb photo history
// in one statement, so prior entries are never rewritten or reordered.
func (r *PostgresComplaintRepository) AppendProgressPhoto(id string, photo domain.ProgressPhoto) error {
	entry, err := json.Marshal([]domain.ProgressPhoto{photo})
	if err != nil {
		return fmt.Errorf("failed to marshal progress photo: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE complaints SET progress_photos = progress_photos || $2::jsonb, updated_at = now() WHERE id = $1`,
		id,
		entry,
	)
	if err != nil {
		r.logger.Error("failed to append progress photo",
			slog.String("complaint_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to append progress photo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrComplaintNotFound
	}

	return nil
}

// CountAssigned counts complaints assigned to an employee
func (r *PostgresComplaintRepository) CountAssigned(employeeID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM complaints WHERE assigned_employee_id = $1`,
		employeeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assigned complaints: %w", err)
	}
	return count, nil
}

// CountResolved counts resolved complaints assigned to an employee
func (r *PostgresComplaintRepository) CountResolved(employeeID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM complaints WHERE assigned_employee_id = $1 AND status = $2`,
		employeeID,
		domain.StatusResolved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count resolved complaints: %w", err)
	}
	return count, nil
}

func scanComplaint(row *sql.Row) (*domain.Complaint, error) {
	complaint := &domain.Complaint{}
	var (
		citizenEmail, citizenImage, assignedID, assignedName sql.NullString
		lat, lng                                             sql.NullFloat64
		photos                                               []byte
	)

	err := row.Scan(
		&complaint.ID,
		&complaint.Title,
		&complaint.Description,
		&complaint.CitizenName,
		&complaint.CitizenPhone,
		&citizenEmail,
		&complaint.Category,
		&complaint.Priority,
		&complaint.Status,
		&complaint.LocationAddress,
		&lat,
		&lng,
		&citizenImage,
		&assignedID,
		&assignedName,
		&photos,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return finishComplaint(complaint, citizenEmail, citizenImage, assignedID, assignedName, lat, lng, photos)
}

func collectComplaints(rows *sql.Rows) ([]*domain.Complaint, error) {
	var complaints []*domain.Complaint
	for rows.Next() {
		complaint := &domain.Complaint{}
		var (
			citizenEmail, citizenImage, assignedID, assignedName sql.NullString
			lat, lng                                             sql.NullFloat64
			photos                                               []byte
		)

		err := rows.Scan(
			&complaint.ID,
			&complaint.Title,
			&complaint.Description,
			&complaint.CitizenName,
			&complaint.CitizenPhone,
			&citizenEmail,
			&complaint.Category,
			&complaint.Priority,
			&complaint.Status,
			&complaint.LocationAddress,
			&lat,
			&lng,
			&citizenImage,
			&assignedID,
			&assignedName,
			&photos,
			&complaint.CreatedAt,
			&complaint.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}

		complaint, err = finishComplaint(complaint, citizenEmail, citizenImage, assignedID, assignedName, lat, lng, photos)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, complaint)
	}

	return complaints, rows.Err()
}

func finishComplaint(
	complaint *domain.Complaint,
	citizenEmail, citizenImage, assignedID, assignedName sql.NullString,
	lat, lng sql.NullFloat64,
	photos []byte,
) (*domain.Complaint, error) {
	complaint.CitizenEmail = citizenEmail.String
	complaint.CitizenImage = citizenImage.String
	complaint.AssignedEmployeeID = assignedID.String
	complaint.AssignedEmployeeName = assignedName.String

	if lat.Valid && lng.Valid {
		complaint.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}

	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &complaint.ProgressPhotos); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress photos: %w", err)
		}
	}

	return complaint, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
