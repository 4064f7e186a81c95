package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evxlab/certificate-api/internal/models"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
)

type certificateServiceMock struct {
	student    *models.Student
	pdf        []byte
	err        error
	lastID     string
	lastNumber string
}

func (m *certificateServiceMock) Verify(_ context.Context, id string) (*models.Student, error) {
	m.lastID = id
	return m.student, m.err
}

func (m *certificateServiceMock) LookupByNumber(_ context.Context, certificateNo string) (*models.Student, error) {
	m.lastNumber = certificateNo
	return m.student, m.err
}

func (m *certificateServiceMock) RenderPDF(_ context.Context, id string) ([]byte, *models.Student, error) {
	m.lastID = id
	return m.pdf, m.student, m.err
}

func (m *certificateServiceMock) Options() models.FormOptions {
	return models.DefaultFormOptions()
}

func TestCertificateHandlerVerify(t *testing.T) {
	svc := &certificateServiceMock{student: &models.Student{ID: "s-1", CertificateNo: "EVXLAB/24-25/D1"}}
	handler := NewCertificateHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/certificate/verify/s-1", "")
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}

	handler.Verify(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", svc.lastID)
	assert.Contains(t, w.Body.String(), `"certificateNo":"EVXLAB/24-25/D1"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCertificateHandlerVerifyNotFound(t *testing.T) {
	svc := &certificateServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "Certificate not found")}
	handler := NewCertificateHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/certificate/verify/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.Verify(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Certificate not found", decodeEnvelope(t, w).Message)
}

func TestCertificateHandlerPDF(t *testing.T) {
	svc := &certificateServiceMock{
		student: &models.Student{ID: "s-1", CertificateNo: "EVXLAB/24-25/D1"},
		pdf:     []byte("%PDF-1.3 test"),
	}
	handler := NewCertificateHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/certificate/verify/s-1/pdf", "")
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}

	handler.PDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="EVXLAB-24-25-D1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 test", w.Body.String())
}

func TestCertificateHandlerLookupPassesQuery(t *testing.T) {
	svc := &certificateServiceMock{student: &models.Student{ID: "s-1"}}
	handler := NewCertificateHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/certificate/lookup?certificateNo=EVXLAB%2F24-25%2FD1", "")

	handler.Lookup(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVXLAB/24-25/D1", svc.lastNumber)
}

func TestCertificateHandlerOptions(t *testing.T) {
	handler := NewCertificateHandler(&certificateServiceMock{})
	c, w := newJSONContext(http.MethodGet, "/certificate/options", "")

	handler.Options(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Electric Vehicle Technology")
}
