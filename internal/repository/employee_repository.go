package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/civictrack/internal/domain"
)

// PostgresEmployeeRepository implements domain.EmployeeRepository using PostgreSQL
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEmployeeRepository{
		db:     db,
		logger: logger,
	}
}

const uniqueViolation = "23505"

// Create inserts a new employee. A duplicate employee_id surfaces as
// domain.ErrDuplicateEmployeeID and leaves the original record unchanged.
func (r *PostgresEmployeeRepository) Create(employee *domain.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}

	stats, err := json.Marshal(employee.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	query := `
		INSERT INTO employees (id, employee_id, name, email, department, contact_phone, password_hash, is_active, performance_stats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = r.db.QueryRow(
		query,
		employee.ID,
		employee.EmployeeID,
		employee.Name,
		employee.Email,
		employee.Department,
		employee.ContactPhone,
		employee.PasswordHash,
		employee.IsActive,
		stats,
	).Scan(&employee.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateEmployeeID
		}
		r.logger.Error("failed to create employee",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

// GetByEmployeeID retrieves an employee by the human-assigned identifier
func (r *PostgresEmployeeRepository) GetByEmployeeID(employeeID string) (*domain.Employee, error) {
	employee := &domain.Employee{}
	var stats []byte

	query := `
		SELECT id, employee_id, name, email, department, contact_phone, password_hash, is_active, created_at, performance_stats
		FROM employees
		WHERE employee_id = $1
	`

	err := r.db.QueryRow(query, employeeID).Scan(
		&employee.ID,
		&employee.EmployeeID,
		&employee.Name,
		&employee.Email,
		&employee.Department,
		&employee.ContactPhone,
		&employee.PasswordHash,
		&employee.IsActive,
		&employee.CreatedAt,
		&stats,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		r.logger.Error("failed to get employee",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &employee.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
	}

	return employee, nil
}

// UpdateStats writes recomputed performance stats back onto the record.
// Only the Statistics Aggregator calls this.
func (r *PostgresEmployeeRepository) UpdateStats(employeeID string, stats domain.PerformanceStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE employees SET performance_stats = $1 WHERE employee_id = $2`,
		data,
		employeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrEmployeeNotFound
	}

	return nil
}

// ListActive returns all active employees in creation order
func (r *PostgresEmployeeRepository) ListActive() ([]*domain.Employee, error) {
	query := `
		SELECT id, employee_id, name, email, department, contact_phone, password_hash, is_active, created_at, performance_stats
		FROM employees
		WHERE is_active = true
		ORDER BY created_at
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list employees", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*domain.Employee
	for rows.Next() {
		employee := &domain.Employee{}
		var stats []byte
		err := rows.Scan(
			&employee.ID,
			&employee.EmployeeID,
			&employee.Name,
			&employee.Email,
			&employee.Department,
			&employee.ContactPhone,
			&employee.PasswordHash,
			&employee.IsActive,
			&employee.CreatedAt,
			&stats,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		if len(stats) > 0 {
			if err := json.Unmarshal(stats, &employee.Stats); err != nil {
				return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
			}
		}
		employees = append(employees, employee)
	}

	return employees, rows.Err()
}

// Deactivate revokes access without deleting the record. Already-issued
// tokens keep working until expiry; new resolutions fail.
func (r *PostgresEmployeeRepository) Deactivate(employeeID string) error {
	result, err := r.db.Exec(
		`UPDATE employees SET is_active = false WHERE employee_id = $1`,
		employeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrEmployeeNotFound
	}

	return nil
}
