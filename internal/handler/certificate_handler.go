package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/pkg/response"
)

type certificateService interface {
	Verify(ctx context.Context, id string) (*models.Student, error)
	LookupByNumber(ctx context.Context, certificateNo string) (*models.Student, error)
	RenderPDF(ctx context.Context, id string) ([]byte, *models.Student, error)
	Options() models.FormOptions
}

// CertificateHandler serves the public verification endpoints.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs a certificate handler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Verify godoc
// @Summary Verify a certificate
// @Description Returns the certificate holder's record by id
// @Tags Certificates
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificate/verify/{id} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	student, err := h.service.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", models.StudentPayload{Student: student})
}

// PDF godoc
// @Summary Download a certificate
// @Description Renders the certificate as a PDF with a verification QR code
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /certificate/verify/{id}/pdf [get]
func (h *CertificateHandler) PDF(c *gin.Context) {
	out, student, err := h.service.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := strings.NewReplacer("/", "-", " ", "-").Replace(student.CertificateNo) + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", out)
}

// Lookup godoc
// @Summary Look up a certificate by number
// @Tags Certificates
// @Produce json
// @Param certificateNo query string true "Certificate number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificate/lookup [get]
func (h *CertificateHandler) Lookup(c *gin.Context) {
	student, err := h.service.LookupByNumber(c.Request.Context(), c.Query("certificateNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", models.StudentPayload{Student: student})
}

// Options godoc
// @Summary Registration form options
// @Description Recommended courses, durations, streams and genders
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificate/options [get]
func (h *CertificateHandler) Options(c *gin.Context) {
	response.OK(c, "", h.service.Options())
}
