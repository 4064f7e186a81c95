package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evxlab/certificate-api/internal/middleware"
	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/pkg/config"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
	"github.com/evxlab/certificate-api/pkg/response"
)

type authServiceMock struct {
	session     *models.Session
	student     *models.Student
	err         error
	lastMaster  models.MasterLoginRequest
	lastCreate  models.CreateStudentRequest
	lastClaims  *models.SessionClaims
	lastToken   string
	logoutCalls int
}

func (m *authServiceMock) MasterLogin(_ context.Context, req models.MasterLoginRequest) (*models.Session, error) {
	m.lastMaster = req
	return m.session, m.err
}

func (m *authServiceMock) StudentLogin(_ context.Context, _ models.StudentLoginRequest) (*models.Session, *models.Student, error) {
	return m.session, m.student, m.err
}

func (m *authServiceMock) CreateStudent(_ context.Context, req models.CreateStudentRequest) (*models.Student, *models.Session, error) {
	m.lastCreate = req
	return m.student, m.session, m.err
}

func (m *authServiceMock) EditStudent(_ context.Context, claims *models.SessionClaims, _ models.EditStudentRequest) (*models.Student, error) {
	m.lastClaims = claims
	return m.student, m.err
}

func (m *authServiceMock) Logout(_ context.Context, token string) {
	m.logoutCalls++
	m.lastToken = token
}

func (m *authServiceMock) Me(_ context.Context, token string) (*models.Student, error) {
	m.lastToken = token
	return m.student, m.err
}

var testCookie = config.CookieConfig{Name: "token", Secure: true}

func newJSONContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestAuthHandlerMasterLoginSetsCookie(t *testing.T) {
	svc := &authServiceMock{session: &models.Session{Token: "signed", MaxAge: 3600}}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/master-login", `{"username":"admin","password":"s3cret"}`)

	handler.MasterLogin(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", svc.lastMaster.Username)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Master login successful", env.Message)

	cookie := findCookie(w, "token")
	require.NotNil(t, cookie)
	assert.Equal(t, "signed", cookie.Value)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}

func TestAuthHandlerMasterLoginFailureSetsNoCookie(t *testing.T) {
	svc := &authServiceMock{err: appErrors.ErrInvalidCredentials}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/master-login", `{"username":"admin","password":"nope"}`)

	handler.MasterLogin(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, findCookie(w, "token"))
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestAuthHandlerMalformedBody(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/create-student", `{"name":"Asha"`)

	handler.CreateStudent(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastCreate.Name)
}

func TestAuthHandlerEmptyBodyReachesService(t *testing.T) {
	svc := &authServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "Username and password are required")}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/master-login", "")

	handler.MasterLogin(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username and password are required", decodeEnvelope(t, w).Message)
}

func TestAuthHandlerCreateStudent(t *testing.T) {
	svc := &authServiceMock{
		student: &models.Student{ID: "s-1", CertificateNo: "EVXLAB/24-25/D1234ABCDEF12", Name: "Asha"},
		session: &models.Session{Token: "student-token", MaxAge: 60},
	}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/create-student", `{"name":"Asha","courseName":"EV","collegeRegdNo":"R1"}`)

	handler.CreateStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R1", svc.lastCreate.CollegeRegdNo)
	assert.Equal(t, "Student created and logged in successfully", decodeEnvelope(t, w).Message)
	cookie := findCookie(w, "token")
	require.NotNil(t, cookie)
	assert.Equal(t, "student-token", cookie.Value)
	assert.Contains(t, w.Body.String(), `"certificateNo":"EVXLAB/24-25/D1234ABCDEF12"`)
}

func TestAuthHandlerCreateStudentConflict(t *testing.T) {
	svc := &authServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "Student with this college registration number already exists")}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/create-student", `{"name":"Asha","courseName":"EV","collegeRegdNo":"R1"}`)

	handler.CreateStudent(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, findCookie(w, "token"))
}

func TestAuthHandlerEditStudentPassesSessionClaims(t *testing.T) {
	svc := &authServiceMock{student: &models.Student{ID: "s-1", Name: "Asha Rao"}}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/edit-student", `{"name":"Asha Rao"}`)
	claims := &models.SessionClaims{StudentID: "s-1"}
	c.Set(middleware.ContextSessionKey, claims)

	handler.EditStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, claims, svc.lastClaims)
	assert.Equal(t, "Student updated successfully", decodeEnvelope(t, w).Message)
}

func TestAuthHandlerLogoutClearsCookie(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodPost, "/auth/logout", "")
	c.Request.AddCookie(&http.Cookie{Name: "token", Value: "old-token"})

	handler.Logout(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.logoutCalls)
	assert.Equal(t, "old-token", svc.lastToken)
	assert.Equal(t, "Logout successful", decodeEnvelope(t, w).Message)
	cookie := findCookie(w, "token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthHandlerMeReadsCookie(t *testing.T) {
	svc := &authServiceMock{student: &models.Student{ID: "s-1"}}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodGet, "/auth/me", "")
	c.Request.AddCookie(&http.Cookie{Name: "token", Value: "abc"})

	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.lastToken)
	assert.Contains(t, w.Body.String(), `"id":"s-1"`)
}

func TestAuthHandlerMeWithoutCookie(t *testing.T) {
	svc := &authServiceMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "No token provided")}
	handler := NewAuthHandler(svc, testCookie)
	c, w := newJSONContext(http.MethodGet, "/auth/me", "")

	handler.Me(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.lastToken)
}
