package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/security"
	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/security/auth"
	"github.com/yourorg/civictrack/internal/security/middleware"
	"github.com/yourorg/civictrack/internal/service"
	"github.com/yourorg/civictrack/pkg/config"
)

type fakeEmployeeRepo struct {
	byEmployeeID map[string]*domain.Employee
}

func (m *fakeEmployeeRepo) Create(e *domain.Employee) error {
	if _, ok := m.byEmployeeID[e.EmployeeID]; ok {
		return domain.ErrDuplicateEmployeeID
	}
	e.ID = "row-" + e.EmployeeID
	e.CreatedAt = time.Now()
	m.byEmployeeID[e.EmployeeID] = e
	return nil
}

func (m *fakeEmployeeRepo) GetByEmployeeID(employeeID string) (*domain.Employee, error) {
	if e, ok := m.byEmployeeID[employeeID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrEmployeeNotFound
}

func (m *fakeEmployeeRepo) UpdateStats(employeeID string, stats domain.PerformanceStats) error {
	e, ok := m.byEmployeeID[employeeID]
	if !ok {
		return domain.ErrEmployeeNotFound
	}
	e.Stats = stats
	return nil
}

func (m *fakeEmployeeRepo) ListActive() ([]*domain.Employee, error) {
	out := []*domain.Employee{}
	for _, e := range m.byEmployeeID {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *fakeEmployeeRepo) Deactivate(employeeID string) error {
	e, ok := m.byEmployeeID[employeeID]
	if !ok {
		return domain.ErrEmployeeNotFound
	}
	e.IsActive = false
	return nil
}

type fakeComplaintRepo struct {
	complaints []*domain.Complaint
	seq        int
}

func (m *fakeComplaintRepo) Create(c *domain.Complaint) error {
	m.seq++
	c.ID = fmt.Sprintf("c-%d", m.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.complaints = append(m.complaints, c)
	return nil
}

func (m *fakeComplaintRepo) GetByID(id string) (*domain.Complaint, error) {
	for _, c := range m.complaints {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domain.ErrComplaintNotFound
}

func (m *fakeComplaintRepo) ListAll() ([]*domain.Complaint, error) {
	return append([]*domain.Complaint{}, m.complaints...), nil
}

func (m *fakeComplaintRepo) ListVisibleTo(employeeID, department string) ([]*domain.Complaint, error) {
	out := []*domain.Complaint{}
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID || !c.Assigned() || c.Category == department {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *fakeComplaintRepo) UpdateFields(id string, patch domain.ComplaintPatch) error {
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

func (m *fakeComplaintRepo) AppendProgressPhoto(id string, photo domain.ProgressPhoto) error {
	for _, c := range m.complaints {
		if c.ID == id {
			c.ProgressPhotos = append(c.ProgressPhotos, photo)
			return nil
		}
	}
	return domain.ErrComplaintNotFound
}

func (m *fakeComplaintRepo) CountAssigned(employeeID string) (int, error) {
	n := 0
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID {
			n++
		}
	}
	return n, nil
}

func (m *fakeComplaintRepo) CountResolved(employeeID string) (int, error) {
	n := 0
	for _, c := range m.complaints {
		if c.AssignedEmployeeID == employeeID && c.Status == domain.StatusResolved {
			n++
		}
	}
	return n, nil
}

type testAPI struct {
	handler      http.Handler
	employeeRepo *fakeEmployeeRepo
	repo         *fakeComplaintRepo
	authService  *service.AuthService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	employeeRepo := &fakeEmployeeRepo{byEmployeeID: map[string]*domain.Employee{}}
	complaintRepo := &fakeComplaintRepo{}
	tokenManager := auth.NewTokenManager("test-secret", "civictrack", time.Hour)
	auditLogger := audit.NewLogger(nil)

	authService := service.NewAuthService(employeeRepo, tokenManager, nil)
	complaintService := service.NewComplaintService(complaintRepo, security.NewVisibilityPolicy(nil), nil, nil, &config.Config{})
	statsService := service.NewStatsService(employeeRepo, complaintRepo, nil)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", NewLoginHandler(authService, auditLogger, nil))
	mux.Handle("POST /api/employees", NewEmployeeCreateHandler(authService, nil))
	mux.Handle("DELETE /api/employees/{id}", NewEmployeeDeactivateHandler(authService, auditLogger, nil))
	mux.Handle("GET /api/complaints", NewComplaintListHandler(complaintService, authService, nil))
	mux.Handle("POST /api/complaints", NewComplaintCreateHandler(complaintService, nil))
	mux.Handle("GET /api/complaints/{id}", NewComplaintGetHandler(complaintService, authService, nil))
	mux.Handle("PUT /api/complaints/{id}", NewComplaintUpdateHandler(complaintService, authService, auditLogger, nil))
	mux.Handle("POST /api/complaints/{id}/progress-photo", NewProgressPhotoHandler(complaintService, authService, auditLogger, nil))
	mux.Handle("GET /api/profile", NewProfileHandler(authService, statsService, nil))
	mux.Handle("GET /api/health", NewHealthHandler())

	return &testAPI{
		handler:      middleware.JWTMiddleware(tokenManager, nil)(mux),
		employeeRepo: employeeRepo,
		repo:         complaintRepo,
		authService:  authService,
	}
}

func (api *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func (api *testAPI) register(t *testing.T, employeeID, department string) {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/employees", "", map[string]string{
		"employee_id": employeeID,
		"name":        "Test " + employeeID,
		"department":  department,
		"password":    "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (api *testAPI) login(t *testing.T, employeeID string) string {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"employee_id": employeeID,
		"password":    "longenough",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	token, _ := resp["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "EMP001", "sanitation")

	rec := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "longenough",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp["token_type"])
	require.NotEmpty(t, resp["access_token"])

	emp, ok := resp["employee"].(map[string]interface{})
	require.True(t, ok, "employee missing from login response")
	require.Equal(t, "EMP001", emp["employee_id"])
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "$2a$")

	// Wrong password
	rec = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmployeeDuplicate(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "EMP001", "sanitation")

	rec := api.do(t, http.MethodPost, "/api/employees", "", map[string]string{
		"employee_id": "EMP001",
		"name":        "Duplicate",
		"password":    "longenough",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEmployeeDeactivation(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ADMIN1", "admin")
	api.register(t, "EMP002", "sanitation")
	adminToken := api.login(t, "ADMIN1")
	workerToken := api.login(t, "EMP002")

	rec := api.do(t, http.MethodDelete, "/api/employees/ADMIN1", workerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code, "non-admin should not deactivate")

	rec = api.do(t, http.MethodDelete, "/api/employees/ADMIN1", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, "self-deactivation should be rejected")

	rec = api.do(t, http.MethodDelete, "/api/employees/NOPE", adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/employees/EMP002", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, api.employeeRepo.byEmployeeID["EMP002"].IsActive)

	rec = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"employee_id": "EMP002",
		"password":    "longenough",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/profile", workerToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "deactivated employee token should stop resolving")
}

func TestTokenForDeletedEmployeeIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "EMP001", "sanitation")
	token := api.login(t, "EMP001")

	// Hard-delete the row out from under a valid token. The missing
	// record must read as an auth failure, not a missing resource.
	delete(api.employeeRepo.byEmployeeID, "EMP001")

	rec := api.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestComplaintIntakeIsPublic(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/complaints", "", map[string]interface{}{
		"title":            "Overflowing bin",
		"description":      "Bin at corner overflowing for days",
		"citizen_name":     "Asha",
		"citizen_phone":    "555-0100",
		"category":         "sanitation",
		"location_address": "12 Market Rd",
		"coordinates":      map[string]float64{"lat": 12.97, "lng": 77.59},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["complaint_id"])

	// Missing required fields
	rec = api.do(t, http.MethodPost, "/api/complaints", "", map[string]string{"title": "only title"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/complaints", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestComplaintLifecycle(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "EMP001", "sanitation")
	token := api.login(t, "EMP001")

	rec := api.do(t, http.MethodPost, "/api/complaints", "", map[string]string{
		"title":            "Blocked drain",
		"description":      "Drain clogged near the school",
		"citizen_name":     "Asha",
		"citizen_phone":    "555-0100",
		"category":         "sanitation",
		"location_address": "12 Market Rd",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	complaintID := created["complaint_id"]

	// Listed with a color code
	rec = api.do(t, http.MethodGet, "/api/complaints", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "pending", listed[0]["status"])
	require.Equal(t, "yellow", listed[0]["color_code"])

	// Self-assign and activate
	rec = api.do(t, http.MethodPut, "/api/complaints/"+complaintID, token, map[string]string{
		"status":                 "active",
		"assigned_employee_id":   "EMP001",
		"assigned_employee_name": "Test EMP001",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/complaints/"+complaintID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	require.Equal(t, "active", fetched["status"])
	require.Equal(t, "orange", fetched["color_code"])
	require.Equal(t, "EMP001", fetched["assigned_employee_id"])

	// Progress photo
	rec = api.do(t, http.MethodPost, "/api/complaints/"+complaintID+"/progress-photo", token, map[string]string{
		"image": "base64-data",
		"note":  "cleared debris",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := api.repo.GetByID(complaintID)
	require.NoError(t, err)
	require.Len(t, stored.ProgressPhotos, 1)
	require.Equal(t, "EMP001", stored.ProgressPhotos[0].EmployeeID)

	// Resolve, then check the profile reflects it
	rec = api.do(t, http.MethodPut, "/api/complaints/"+complaintID, token, map[string]string{
		"status": "resolved",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	stats, ok := profile["performance_stats"].(map[string]interface{})
	require.True(t, ok, "performance_stats missing")
	require.EqualValues(t, 1, stats["total_complaints_assigned"])
	require.EqualValues(t, 1, stats["total_complaints_resolved"])
	require.EqualValues(t, 100.0, stats["resolution_rate"])
}

func TestUpdateValidation(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "EMP001", "sanitation")
	token := api.login(t, "EMP001")

	rec := api.do(t, http.MethodPost, "/api/complaints", "", map[string]string{
		"title":            "Blocked drain",
		"description":      "Drain clogged",
		"citizen_name":     "Asha",
		"citizen_phone":    "555-0100",
		"category":         "sanitation",
		"location_address": "12 Market Rd",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	complaintID := created["complaint_id"]

	// Unknown status value
	rec = api.do(t, http.MethodPut, "/api/complaints/"+complaintID, token, map[string]string{
		"status": "closed",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Assignment id without the name half of the pair
	rec = api.do(t, http.MethodPut, "/api/complaints/"+complaintID, token, map[string]string{
		"assigned_employee_id": "EMP001",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown complaint
	rec = api.do(t, http.MethodPut, "/api/complaints/missing", token, map[string]string{
		"status": "active",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp["status"])
	require.NotEmpty(t, resp["timestamp"])
}
