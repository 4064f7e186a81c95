package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/internal/repository"
	"github.com/evxlab/certificate-api/pkg/dates"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
)

type memoryStudentStore struct {
	mu       sync.Mutex
	seq      int
	students map[string]models.Student
	calls    int
	findErr  error
}

func newMemoryStudentStore() *memoryStudentStore {
	return &memoryStudentStore{students: map[string]models.Student{}}
}

func (m *memoryStudentStore) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memoryStudentStore) FindByID(_ context.Context, id string) (*models.Student, error) {
	m.touch()
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memoryStudentStore) FindByCollegeRegdNo(_ context.Context, regdNo string) (*models.Student, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.CollegeRegdNo == regdNo {
			out := s
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStudentStore) FindByCertificateNo(_ context.Context, certificateNo string) (*models.Student, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.CertificateNo == models.NormalizeCertificateNo(certificateNo) {
			out := s
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStudentStore) ExistsByCertificateNo(_ context.Context, certificateNo, excludeID string) (bool, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflict(repository.FieldCertificateNo, models.NormalizeCertificateNo(certificateNo), excludeID), nil
}

func (m *memoryStudentStore) ExistsByCollegeRegdNo(_ context.Context, regdNo, excludeID string) (bool, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflict(repository.FieldCollegeRegdNo, regdNo, excludeID), nil
}

func (m *memoryStudentStore) Create(_ context.Context, student *models.Student) error {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unique(student, ""); err != nil {
		return err
	}
	m.seq++
	student.ID = fmt.Sprintf("%024x", m.seq)
	m.students[student.ID] = *student
	return nil
}

func (m *memoryStudentStore) Update(_ context.Context, student *models.Student) error {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[student.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := m.unique(student, student.ID); err != nil {
		return err
	}
	m.students[student.ID] = *student
	return nil
}

func (m *memoryStudentStore) conflict(field, value, excludeID string) bool {
	for id, s := range m.students {
		if id == excludeID {
			continue
		}
		if field == repository.FieldCertificateNo && s.CertificateNo == value {
			return true
		}
		if field == repository.FieldCollegeRegdNo && s.CollegeRegdNo == value {
			return true
		}
	}
	return false
}

func (m *memoryStudentStore) unique(student *models.Student, excludeID string) error {
	if m.conflict(repository.FieldCertificateNo, student.CertificateNo, excludeID) {
		return &repository.DuplicateKeyError{Field: repository.FieldCertificateNo, Err: errors.New("E11000")}
	}
	if m.conflict(repository.FieldCollegeRegdNo, student.CollegeRegdNo, excludeID) {
		return &repository.DuplicateKeyError{Field: repository.FieldCollegeRegdNo, Err: errors.New("E11000")}
	}
	return nil
}

type memoryDenylist struct {
	revoked map[string]time.Duration
}

func (d *memoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if d.revoked == nil {
		d.revoked = map[string]time.Duration{}
	}
	d.revoked[jti] = ttl
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := d.revoked[jti]
	return ok, nil
}

func newTestAuthService(store *memoryStudentStore, cfg AuthConfig) *AuthService {
	if cfg.MasterUsername == "" {
		cfg.MasterUsername = "admin"
		cfg.MasterPassword = "s3cret"
	}
	return NewAuthService(AuthServiceParams{
		Students: store,
		Tokens:   NewTokenService(testSecret, time.Hour),
		Dates:    dates.NewParser(time.UTC),
		Metrics:  NewMetricsService(),
		Config:   cfg,
	})
}

func validCreateRequest(regdNo string) models.CreateStudentRequest {
	return models.CreateStudentRequest{
		Name:             "Asha",
		Gender:           "female",
		CourseName:       "Electric Vehicle Technology",
		CourseDuration:   "One month",
		Stream:           "Diploma 2nd Year 4th Semester Electrical Engineering",
		FromDate:         "01/01/2024",
		ToDate:           "31/01/2024",
		DateOfCompletion: "31/01/2024",
		CollegeRegdNo:    regdNo,
	}
}

func requireAppError(t *testing.T, err error, status int) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func TestAuthServiceMasterLogin(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	session, err := svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, int((time.Hour).Seconds()), session.MaxAge)

	claims := svc.tokens.Decode(session.Token)
	require.NotNil(t, claims)
	assert.Equal(t, "admin", claims.MasterID)
	assert.Empty(t, claims.StudentID)
}

func TestAuthServiceMasterLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	session, err := svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin", Password: "nope"})
	appErr := requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid credentials", appErr.Message)
	assert.Nil(t, session)

	_, err = svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestAuthServiceMasterLoginWithHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{MasterUsername: "ops", MasterPasswordHash: string(hash)})

	_, err = svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "ops", Password: "hashed-pass"})
	require.NoError(t, err)

	_, err = svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "ops", Password: "s3cret"})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAuthServiceMasterLoginMissingSecret(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})
	svc.tokens = NewTokenService("", time.Hour)

	_, err := svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin", Password: "s3cret"})
	appErr := requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "authentication failed", appErr.Message)
}

func TestAuthServiceCreateStudentGeneratesCertificateNo(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})

	student, session, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)
	assert.Regexp(t, certificateNoPattern, student.CertificateNo)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), student.ToDate)

	claims, err := svc.ValidateSession(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, student.ID, claims.StudentID)
}

func TestAuthServiceCreateStudentKeepsSuppliedCertificateNo(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	req := validCreateRequest("R1")
	req.CertificateNo = "  evxlab/23-24/d0001abcdef12 "
	student, _, err := svc.CreateStudent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "EVXLAB/23-24/D0001ABCDEF12", student.CertificateNo)
}

func TestAuthServiceCreateStudentRequiredFields(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})

	req := validCreateRequest("  ")
	_, _, err := svc.CreateStudent(context.Background(), req)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Name, college registration number, and course name are required", appErr.Message)
	assert.Zero(t, store.calls)
}

func TestAuthServiceCreateStudentSchemaValidation(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	req := validCreateRequest("R1")
	req.Gender = "other"
	req.Stream = ""
	_, _, err := svc.CreateStudent(context.Background(), req)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Validation error", appErr.Message)
	assert.Contains(t, appErr.Details, "stream is required")
	assert.Contains(t, appErr.Details, "gender must be one of: male, female")
}

func TestAuthServiceCreateStudentInvalidDate(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	req := validCreateRequest("R1")
	req.ToDate = "not a date"
	_, _, err := svc.CreateStudent(context.Background(), req)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, []string{"toDate is not a valid date"}, appErr.Details)
}

func TestAuthServiceCreateStudentDuplicateRegdNo(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})

	_, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	_, _, err = svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "Student with this college registration number already exists", appErr.Message)
	assert.Len(t, store.students, 1)
}

func TestAuthServiceCreateStudentConcurrentDuplicates(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.CreateStudent(context.Background(), validCreateRequest("R-RACE"))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireAppError(t, err, http.StatusConflict)
		conflicts++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, store.students, 1)
}

func TestAuthServiceCreateStudentDuplicateCertificateNoFromStore(t *testing.T) {
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})

	first := validCreateRequest("R1")
	first.CertificateNo = "EVXLAB/23-24/D0001ABCDEF12"
	_, _, err := svc.CreateStudent(context.Background(), first)
	require.NoError(t, err)

	second := validCreateRequest("R2")
	second.CertificateNo = "evxlab/23-24/d0001abcdef12"
	_, _, err = svc.CreateStudent(context.Background(), second)
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "certificateNo already exists", appErr.Message)
}

func TestAuthServiceStudentLogin(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	created, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	session, student, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{CollegeRegdNo: " R1 "})
	require.NoError(t, err)
	assert.Equal(t, created.ID, student.ID)
	assert.Equal(t, created.ID, svc.tokens.Decode(session.Token).StudentID)

	_, _, err = svc.StudentLogin(context.Background(), models.StudentLoginRequest{CollegeRegdNo: "R404"})
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "STUDENT_NOT_FOUND", appErr.Code)

	_, _, err = svc.StudentLogin(context.Background(), models.StudentLoginRequest{})
	appErr = requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "College registration number is required", appErr.Message)
}

func strPtr(v string) *string { return &v }

func TestAuthServiceEditStudent(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	created, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	claims := &models.SessionClaims{StudentID: created.ID}
	updated, err := svc.EditStudent(context.Background(), claims, models.EditStudentRequest{
		Name:   strPtr("  Asha Rao "),
		ToDate: strPtr("2024-02-15"),
		// Empty dates keep the stored value.
		FromDate: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", updated.Name)
	assert.Equal(t, created.FromDate, updated.FromDate)
	assert.Equal(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), updated.ToDate)
	assert.Equal(t, created.CertificateNo, updated.CertificateNo)
	assert.Equal(t, "Asha Rao", store.students[created.ID].Name)
}

func TestAuthServiceEditStudentConflictLeavesBothUnchanged(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	first, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)
	second, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R2"))
	require.NoError(t, err)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: second.ID}, models.EditStudentRequest{
		CertificateNo: strPtr(strings.ToLower(first.CertificateNo)),
		Name:          strPtr("Changed"),
	})
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "Student with this certificate number already exists", appErr.Message)
	assert.Equal(t, *first, store.students[first.ID])
	assert.Equal(t, *second, store.students[second.ID])

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: second.ID}, models.EditStudentRequest{
		CollegeRegdNo: strPtr("R1"),
	})
	requireAppError(t, err, http.StatusConflict)
}

func TestAuthServiceEditStudentOwnValuesAreNotConflicts(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	created, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: created.ID}, models.EditStudentRequest{
		CertificateNo: strPtr(created.CertificateNo),
		CollegeRegdNo: strPtr("R1"),
	})
	assert.NoError(t, err)
}

func TestAuthServiceEditStudentErrors(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	created, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{MasterID: "admin"}, models.EditStudentRequest{})
	appErr := requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid token", appErr.Message)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: "ffffffffffffffffffffffff"}, models.EditStudentRequest{})
	requireAppError(t, err, http.StatusNotFound)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: created.ID}, models.EditStudentRequest{Name: strPtr("")})
	appErr = requireAppError(t, err, http.StatusBadRequest)
	assert.Contains(t, appErr.Details, "name is required")
	assert.Equal(t, "Asha", store.students[created.ID].Name)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: created.ID}, models.EditStudentRequest{DateOfCompletion: strPtr("31/31/31/31")})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestAuthServiceEditStudentInvalidatesCache(t *testing.T) {
	store := newMemoryStudentStore()
	cacheRepo := newMemoryCacheRepo()
	svc := newTestAuthService(store, AuthConfig{})
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	created, _, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	_, err = svc.EditStudent(context.Background(), &models.SessionClaims{StudentID: created.ID}, models.EditStudentRequest{Name: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, []string{certificateCacheKey(created.ID)}, cacheRepo.deleted)
}

func TestAuthServiceMe(t *testing.T) {
	store := newMemoryStudentStore()
	svc := newTestAuthService(store, AuthConfig{})
	created, session, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)

	student, err := svc.Me(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, created, student)

	_, err = svc.Me(context.Background(), "")
	appErr := requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "No token provided", appErr.Message)

	_, err = svc.Me(context.Background(), "garbage")
	appErr = requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid token", appErr.Message)

	master, err := svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)
	_, err = svc.Me(context.Background(), master.Token)
	requireAppError(t, err, http.StatusNotFound)
}

func TestAuthServiceLogoutRevokesWhenEnabled(t *testing.T) {
	store := newMemoryStudentStore()
	denylist := &memoryDenylist{}
	svc := newTestAuthService(store, AuthConfig{RevocationEnabled: true})
	svc.denylist = denylist

	_, session, err := svc.CreateStudent(context.Background(), validCreateRequest("R1"))
	require.NoError(t, err)
	_, err = svc.ValidateSession(context.Background(), session.Token)
	require.NoError(t, err)

	svc.Logout(context.Background(), session.Token)
	require.Len(t, denylist.revoked, 1)
	for _, ttl := range denylist.revoked {
		assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 60)
	}

	_, err = svc.ValidateSession(context.Background(), session.Token)
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAuthServiceLogoutIsStatelessByDefault(t *testing.T) {
	denylist := &memoryDenylist{}
	svc := newTestAuthService(newMemoryStudentStore(), AuthConfig{})
	svc.denylist = denylist

	session, err := svc.MasterLogin(context.Background(), models.MasterLoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	svc.Logout(context.Background(), session.Token)
	assert.Empty(t, denylist.revoked)
	_, err = svc.ValidateSession(context.Background(), session.Token)
	assert.NoError(t, err)
}
