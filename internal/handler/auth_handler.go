package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/evxlab/certificate-api/internal/middleware"
	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/pkg/config"
	"github.com/evxlab/certificate-api/pkg/response"
)

type authService interface {
	MasterLogin(ctx context.Context, req models.MasterLoginRequest) (*models.Session, error)
	StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.Session, *models.Student, error)
	CreateStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, *models.Session, error)
	EditStudent(ctx context.Context, claims *models.SessionClaims, req models.EditStudentRequest) (*models.Student, error)
	Logout(ctx context.Context, token string)
	Me(ctx context.Context, token string) (*models.Student, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  config.CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

// MasterLogin godoc
// @Summary Operator login
// @Description Authenticate with the configured master credentials
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.MasterLoginRequest true "Master credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/master-login [post]
func (h *AuthHandler) MasterLogin(c *gin.Context) {
	var req models.MasterLoginRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	session, err := h.service.MasterLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	setSessionCookie(c, h.cookie, session.Token, session.MaxAge)
	response.OK(c, "Master login successful", models.MasterLoginResponse{Token: session.Token})
}

// Login godoc
// @Summary Student login
// @Description Open a session for a student by college registration number
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Registration number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	session, student, err := h.service.StudentLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	setSessionCookie(c, h.cookie, session.Token, session.MaxAge)
	response.OK(c, "Student details fetched successfully", models.StudentPayload{Student: student})
}

// Logout godoc
// @Summary Logout current session
// @Description Clear the session cookie and revoke the token when revocation is enabled
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	h.service.Logout(c.Request.Context(), token)
	clearSessionCookie(c, h.cookie)
	response.OK(c, "Logout successful", nil)
}

// CreateStudent godoc
// @Summary Register a student
// @Description Create a student record and bind the session cookie to it
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student registration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/create-student [post]
func (h *AuthHandler) CreateStudent(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	student, session, err := h.service.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	setSessionCookie(c, h.cookie, session.Token, session.MaxAge)
	response.OK(c, "Student created and logged in successfully", models.StudentPayload{Student: student})
}

// EditStudent godoc
// @Summary Edit the current student
// @Description Apply a partial update to the student bound to the session
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.EditStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/edit-student [post]
func (h *AuthHandler) EditStudent(c *gin.Context) {
	var req models.EditStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	student, err := h.service.EditStudent(c.Request.Context(), middleware.SessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Student updated successfully", models.StudentPayload{Student: student})
}

// Me godoc
// @Summary Current student
// @Description Returns the student referenced by the session cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	student, err := h.service.Me(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", models.StudentPayload{Student: student})
}
