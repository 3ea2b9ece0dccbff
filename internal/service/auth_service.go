package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security/auth"
	"github.com/yourorg/civictrack/pkg/cache"
)

// employeeCacheTTL bounds how stale a resolved employee record can be.
// Deactivation takes effect for new resolutions within this window plus
// one request.
const employeeCacheTTL = 30 * time.Second

// AuthService issues and resolves bearer tokens
type AuthService struct {
	employeeRepo domain.EmployeeRepository
	tokens       *auth.TokenManager
	cache        *cache.Cache
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	employeeRepo domain.EmployeeRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		employeeRepo: employeeRepo,
		tokens:       tokens,
		cache:        cache.New(),
		logger:       logger,
	}
}

// LoginResult is the successful login payload
type LoginResult struct {
	Token    string
	Employee *domain.Employee
}

// Login verifies credentials and issues a signed token embedding the
// employee_id with an absolute expiry. No session state is persisted: any
// replica can validate the token. A store outage surfaces as
// ErrStoreUnavailable rather than falling back to any built-in
// credential.
func (s *AuthService) Login(ctx context.Context, employeeID, password string) (*LoginResult, error) {
	if employeeID == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	employee, err := s.employeeRepo.GetByEmployeeID(employeeID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			s.logger.Info("login attempt with unknown employee id",
				slog.String("employee_id", employeeID),
			)
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error("employee lookup failed during login",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrStoreUnavailable
	}

	// bcrypt comparison is constant-time
	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password",
			slog.String("employee_id", employeeID),
		)
		return nil, domain.ErrInvalidCredentials
	}

	if !employee.IsActive {
		return nil, domain.ErrAccountDeactivated
	}

	token, err := s.tokens.GenerateToken(employee.EmployeeID)
	if err != nil {
		s.logger.Error("failed to sign token",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("employee logged in",
		slog.String("employee_id", employee.EmployeeID),
		slog.String("department", employee.Department),
	)

	return &LoginResult{Token: token, Employee: employee}, nil
}

// Resolve verifies a token and returns the live employee record. Pure
// verification plus one read; no write occurs.
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (*domain.Employee, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.EmployeeByID(ctx, claims.EmployeeID)
}

// EmployeeByID fetches a live employee record for an already-validated
// identity, with a short-lived cache in front of the store. The cache
// holds a value copy and every call returns its own copy, so callers may
// mutate the result (the profile path writes recomputed stats onto it)
// without racing against concurrent requests for the same employee.
func (s *AuthService) EmployeeByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	key := "employee:" + employeeID
	if v, ok := s.cache.Get(key); ok {
		cached := v.(domain.Employee)
		return &cached, nil
	}

	employee, err := s.employeeRepo.GetByEmployeeID(employeeID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, domain.ErrStoreUnavailable
	}
	if !employee.IsActive {
		return nil, domain.ErrAccountDeactivated
	}

	s.cache.Set(key, *employee, employeeCacheTTL)
	return employee, nil
}

// InvalidateEmployee drops a cached employee record, used after stats
// write-backs so the profile endpoint returns fresh numbers.
func (s *AuthService) InvalidateEmployee(employeeID string) {
	s.cache.Delete("employee:" + employeeID)
}

// RegisterEmployee creates a new employee with a freshly hashed password
// and zeroed performance stats.
func (s *AuthService) RegisterEmployee(ctx context.Context, employee *domain.Employee, password string) error {
	if employee.EmployeeID == "" || employee.Name == "" || password == "" {
		return validationError("employee_id, name, and password are required")
	}
	if len(password) < 8 {
		return validationError("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return errors.New("failed to register employee")
	}

	employee.PasswordHash = string(hash)
	employee.IsActive = true
	employee.Stats = domain.PerformanceStats{LastActivity: time.Now().UTC()}

	if err := s.employeeRepo.Create(employee); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmployeeID) {
			return domain.ErrDuplicateEmployeeID
		}
		s.logger.Error("failed to create employee",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		return errors.New("failed to register employee")
	}

	s.logger.Info("employee registered",
		slog.String("employee_id", employee.EmployeeID),
		slog.String("department", employee.Department),
	)
	return nil
}

// DeactivateEmployee soft-deletes an account. Already-issued tokens keep
// working until the cache entry and token expire; new resolutions fail
// with ErrAccountDeactivated.
func (s *AuthService) DeactivateEmployee(ctx context.Context, employeeID string) error {
	if err := s.employeeRepo.Deactivate(employeeID); err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return domain.ErrEmployeeNotFound
		}
		s.logger.Error("failed to deactivate employee",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
		return domain.ErrStoreUnavailable
	}

	s.cache.Delete("employee:" + employeeID)
	s.logger.Info("employee deactivated", slog.String("employee_id", employeeID))
	return nil
}
