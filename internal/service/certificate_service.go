package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/internal/repository"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
	"github.com/evxlab/certificate-api/pkg/export"
	"github.com/evxlab/certificate-api/pkg/middleware/requestid"
)

const msgCertificateNotFound = "Certificate not found"

type certificateReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCertificateNo(ctx context.Context, certificateNo string) (*models.Student, error)
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

// CertificateServiceConfig tunes verification output.
type CertificateServiceConfig struct {
	VerifyBaseURL string
	CacheTTL      time.Duration
}

// CertificateService answers public verification requests.
type CertificateService struct {
	students certificateReader
	renderer certificateRenderer
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	cfg      CertificateServiceConfig
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(students certificateReader, renderer certificateRenderer, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg CertificateServiceConfig) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewCertificatePDF("")
	}
	cfg.VerifyBaseURL = strings.TrimRight(cfg.VerifyBaseURL, "/")
	return &CertificateService{students: students, renderer: renderer, cache: cache, metrics: metrics, logger: logger, now: time.Now, cfg: cfg}
}

// Verify returns the full record for a student id. Malformed and unknown
// ids are both reported as not found.
func (s *CertificateService) Verify(ctx context.Context, id string) (*models.Student, error) {
	id = strings.TrimSpace(id)
	var cached models.Student
	if s.cache.Get(ctx, certificateCacheKey(id), &cached) {
		s.metrics.RecordVerification(true)
		return &cached, nil
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, err, id)
	}
	s.metrics.RecordVerification(true)
	s.cacheVerified(ctx, student)
	return student, nil
}

// cacheVerified stores student and drops the entry again when an edit
// landed between the read and the write.
func (s *CertificateService) cacheVerified(ctx context.Context, student *models.Student) {
	if !s.cache.Enabled() {
		return
	}
	key := certificateCacheKey(student.ID)
	s.cache.Set(ctx, key, student, s.cfg.CacheTTL)

	current, err := s.students.FindByID(ctx, student.ID)
	if err != nil || !sameStudent(current, student) {
		s.cache.Invalidate(ctx, key)
	}
}

func sameStudent(a, b *models.Student) bool {
	return a.ID == b.ID &&
		a.CertificateNo == b.CertificateNo &&
		a.Name == b.Name &&
		a.Gender == b.Gender &&
		a.CourseName == b.CourseName &&
		a.CourseDuration == b.CourseDuration &&
		a.Stream == b.Stream &&
		a.FromDate.Equal(b.FromDate) &&
		a.ToDate.Equal(b.ToDate) &&
		a.DateOfCompletion.Equal(b.DateOfCompletion) &&
		a.CollegeRegdNo == b.CollegeRegdNo &&
		a.CollegeName == b.CollegeName
}

// LookupByNumber finds a certificate by its number, ignoring case.
func (s *CertificateService) LookupByNumber(ctx context.Context, certificateNo string) (*models.Student, error) {
	certificateNo = models.NormalizeCertificateNo(certificateNo)
	if certificateNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Certificate number is required")
	}
	student, err := s.students.FindByCertificateNo(ctx, certificateNo)
	if err != nil {
		return nil, s.lookupError(ctx, err, certificateNo)
	}
	s.metrics.RecordVerification(true)
	return student, nil
}

// RenderPDF renders the certificate for a student id.
func (s *CertificateService) RenderPDF(ctx context.Context, id string) ([]byte, *models.Student, error) {
	student, err := s.Verify(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.renderer.Render(s.certificateData(student))
	if err != nil {
		s.log(ctx).Error("render certificate failed", zap.String("student_id", student.ID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return out, student, nil
}

// VerificationURL is the public link encoded in the certificate QR code.
func (s *CertificateService) VerificationURL(id string) string {
	if s.cfg.VerifyBaseURL == "" {
		return ""
	}
	return s.cfg.VerifyBaseURL + "/" + id
}

// Options lists the recommended registration form values.
func (s *CertificateService) Options() models.FormOptions {
	return models.DefaultFormOptions()
}

func (s *CertificateService) certificateData(student *models.Student) export.CertificateData {
	return export.CertificateData{
		CertificateNo:    student.CertificateNo,
		Name:             student.Name,
		Gender:           student.Gender,
		CourseName:       student.CourseName,
		CourseDuration:   student.CourseDuration,
		Stream:           student.Stream,
		CollegeName:      student.CollegeName,
		CollegeRegdNo:    student.CollegeRegdNo,
		FromDate:         student.FromDate,
		ToDate:           student.ToDate,
		DateOfCompletion: student.DateOfCompletion,
		IssueDate:        s.now(),
		VerificationURL:  s.VerificationURL(student.ID),
	}
}

func (s *CertificateService) lookupError(ctx context.Context, err error, ref string) error {
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.RecordVerification(false)
		return appErrors.Clone(appErrors.ErrNotFound, msgCertificateNotFound)
	}
	s.log(ctx).Error("certificate lookup failed", zap.String("ref", ref), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

func (s *CertificateService) log(ctx context.Context) *zap.Logger {
	if id := requestid.FromContext(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func certificateCacheKey(id string) string {
	return "verify:" + id
}
