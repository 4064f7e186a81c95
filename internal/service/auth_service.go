package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/evxlab/certificate-api/internal/models"
	"github.com/evxlab/certificate-api/internal/repository"
	"github.com/evxlab/certificate-api/pkg/dates"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
	"github.com/evxlab/certificate-api/pkg/middleware/requestid"
)

const (
	msgCreateRequired     = "Name, college registration number, and course name are required"
	msgRegdNoRequired     = "College registration number is required"
	msgMasterRequired     = "Username and password are required"
	msgRegdNoTaken        = "Student with this college registration number already exists"
	msgCertificateNoTaken = "Student with this certificate number already exists"
	msgInvalidToken       = "Invalid token"
	msgNoToken            = "No token provided"
	msgAuthFailed         = "authentication failed"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCollegeRegdNo(ctx context.Context, collegeRegdNo string) (*models.Student, error)
	ExistsByCertificateNo(ctx context.Context, certificateNo, excludeID string) (bool, error)
	ExistsByCollegeRegdNo(ctx context.Context, collegeRegdNo, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type sessionDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig defines the operator credentials and session policy.
type AuthConfig struct {
	MasterUsername     string
	MasterPassword     string
	MasterPasswordHash string
	RevocationEnabled  bool
}

// AuthServiceParams groups constructor dependencies.
type AuthServiceParams struct {
	Students  studentStore
	Tokens    *TokenService
	Numbers   *CertificateNumberGenerator
	Dates     *dates.Parser
	Denylist  sessionDenylist
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    AuthConfig
}

// AuthService implements the login flows and the student record lifecycle.
type AuthService struct {
	students  studentStore
	tokens    *TokenService
	numbers   *CertificateNumberGenerator
	dates     *dates.Parser
	denylist  sessionDenylist
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService with sane defaults.
func NewAuthService(params AuthServiceParams) *AuthService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	numbers := params.Numbers
	if numbers == nil {
		numbers = NewCertificateNumberGenerator(DefaultCertificatePrefix, time.UTC)
	}
	parser := params.Dates
	if parser == nil {
		parser = dates.NewParser(time.UTC)
	}
	return &AuthService{
		students:  params.Students,
		tokens:    params.Tokens,
		numbers:   numbers,
		dates:     parser,
		denylist:  params.Denylist,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		config:    params.Config,
	}
}

// MasterLogin authenticates the operator against the configured pair.
func (s *AuthService) MasterLogin(ctx context.Context, req models.MasterLoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgMasterRequired)
	}

	if !s.masterCredentialsMatch(req.Username, req.Password) {
		s.metrics.RecordAuthAttempt(AuthKindMaster, false)
		s.log(ctx).Warn("master login rejected")
		return nil, appErrors.ErrInvalidCredentials
	}

	session, err := s.issue(ctx, models.SessionSubject{MasterID: s.config.MasterUsername})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuthAttempt(AuthKindMaster, true)
	return session, nil
}

// StudentLogin opens a session for an existing student.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.Session, *models.Student, error) {
	regdNo := strings.TrimSpace(req.CollegeRegdNo)
	if regdNo == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, msgRegdNoRequired)
	}

	student, err := s.students.FindByCollegeRegdNo(ctx, regdNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordAuthAttempt(AuthKindStudent, false)
			return nil, nil, appErrors.ErrStudentNotFound
		}
		return nil, nil, s.internal(ctx, err, "find student by registration number")
	}

	session, err := s.issue(ctx, models.SessionSubject{StudentID: student.ID})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordAuthAttempt(AuthKindStudent, true)
	return session, student, nil
}

// CreateStudent registers a student and opens a session bound to the new record.
func (s *AuthService) CreateStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, *models.Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CollegeRegdNo = strings.TrimSpace(req.CollegeRegdNo)
	req.CourseName = strings.TrimSpace(req.CourseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, msgCreateRequired)
	}

	taken, err := s.students.ExistsByCollegeRegdNo(ctx, req.CollegeRegdNo, "")
	if err != nil {
		return nil, nil, s.internal(ctx, err, "check registration number")
	}
	if taken {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, msgRegdNoTaken)
	}

	certificateNo := strings.TrimSpace(req.CertificateNo)
	if certificateNo == "" {
		certificateNo = s.numbers.Generate()
	}

	student := &models.Student{
		CertificateNo:  certificateNo,
		Name:           req.Name,
		Gender:         strings.TrimSpace(req.Gender),
		CourseName:     req.CourseName,
		CourseDuration: req.CourseDuration,
		Stream:         req.Stream,
		CollegeRegdNo:  req.CollegeRegdNo,
		CollegeName:    req.CollegeName,
	}

	var details []string
	details = s.parseDate(&student.FromDate, "fromDate", req.FromDate, details)
	details = s.parseDate(&student.ToDate, "toDate", req.ToDate, details)
	details = s.parseDate(&student.DateOfCompletion, "dateOfCompletion", req.DateOfCompletion, details)
	if len(details) > 0 {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "", details)
	}

	student.Normalize()
	if err := s.validateStudent(student); err != nil {
		return nil, nil, err
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, nil, s.writeError(ctx, err, "create student")
	}
	s.metrics.RecordCertificateIssued()
	s.log(ctx).Info("student created",
		zap.String("student_id", student.ID),
		zap.String("certificate_no", student.CertificateNo))

	session, err := s.issue(ctx, models.SessionSubject{StudentID: student.ID})
	if err != nil {
		return nil, nil, err
	}
	return student, session, nil
}

// EditStudent applies a partial update to the student bound to the session.
func (s *AuthService) EditStudent(ctx context.Context, claims *models.SessionClaims, req models.EditStudentRequest) (*models.Student, error) {
	if claims == nil || claims.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, msgInvalidToken)
	}

	student, err := s.students.FindByID(ctx, claims.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, s.internal(ctx, err, "find student")
	}

	if req.CertificateNo != nil {
		next := models.NormalizeCertificateNo(*req.CertificateNo)
		if next != "" && next != student.CertificateNo {
			taken, err := s.students.ExistsByCertificateNo(ctx, next, student.ID)
			if err != nil {
				return nil, s.internal(ctx, err, "check certificate number")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, msgCertificateNoTaken)
			}
		}
	}
	if req.CollegeRegdNo != nil {
		next := strings.TrimSpace(*req.CollegeRegdNo)
		if next != "" && next != student.CollegeRegdNo {
			taken, err := s.students.ExistsByCollegeRegdNo(ctx, next, student.ID)
			if err != nil {
				return nil, s.internal(ctx, err, "check registration number")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, msgRegdNoTaken)
			}
		}
	}

	updated := *student
	assign(&updated.CertificateNo, req.CertificateNo)
	assign(&updated.Name, req.Name)
	assign(&updated.Gender, req.Gender)
	assign(&updated.CourseName, req.CourseName)
	assign(&updated.CourseDuration, req.CourseDuration)
	assign(&updated.Stream, req.Stream)
	assign(&updated.CollegeRegdNo, req.CollegeRegdNo)
	assign(&updated.CollegeName, req.CollegeName)

	var details []string
	if req.FromDate != nil && strings.TrimSpace(*req.FromDate) != "" {
		details = s.parseDate(&updated.FromDate, "fromDate", *req.FromDate, details)
	}
	if req.ToDate != nil && strings.TrimSpace(*req.ToDate) != "" {
		details = s.parseDate(&updated.ToDate, "toDate", *req.ToDate, details)
	}
	if req.DateOfCompletion != nil && strings.TrimSpace(*req.DateOfCompletion) != "" {
		details = s.parseDate(&updated.DateOfCompletion, "dateOfCompletion", *req.DateOfCompletion, details)
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "", details)
	}

	updated.Normalize()
	if err := s.validateStudent(&updated); err != nil {
		return nil, err
	}

	if err := s.students.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "Failed to update student")
		}
		return nil, s.writeError(ctx, err, "update student")
	}
	s.cache.Invalidate(ctx, certificateCacheKey(updated.ID))
	s.log(ctx).Info("student updated", zap.String("student_id", updated.ID))
	return &updated, nil
}

// Logout revokes the token when revocation is enabled. Clearing the cookie
// is the caller's job and happens regardless.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" || !s.config.RevocationEnabled || s.denylist == nil {
		return
	}
	claims := s.tokens.Decode(token)
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log(ctx).Warn("session revocation failed", zap.String("jti", claims.ID), zap.Error(err))
	}
}

// Me returns the student referenced by the session token.
func (s *AuthService) Me(ctx context.Context, token string) (*models.Student, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, msgNoToken)
	}
	claims, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.StudentID == "" {
		return nil, appErrors.ErrStudentNotFound
	}
	student, err := s.students.FindByID(ctx, claims.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, s.internal(ctx, err, "find student")
	}
	return student, nil
}

// ValidateSession verifies the token and, when revocation is enabled,
// rejects denylisted token ids. Denylist lookup failures reject the token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.SessionClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrTokenConfiguration) {
			s.log(ctx).Error("session verification unavailable", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msgAuthFailed)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msgInvalidToken)
	}

	if s.config.RevocationEnabled && s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log(ctx).Error("session denylist lookup failed", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msgInvalidToken)
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, msgInvalidToken)
		}
	}
	return claims, nil
}

func (s *AuthService) masterCredentialsMatch(username, password string) bool {
	if s.config.MasterUsername == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.MasterUsername)) == 1
	var passOK bool
	if s.config.MasterPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(s.config.MasterPasswordHash), []byte(password)) == nil
	} else {
		passOK = s.config.MasterPassword != "" &&
			subtle.ConstantTimeCompare([]byte(password), []byte(s.config.MasterPassword)) == 1
	}
	return userOK && passOK
}

func (s *AuthService) issue(ctx context.Context, subject models.SessionSubject) (*models.Session, error) {
	token, _, err := s.tokens.Issue(subject)
	if err != nil {
		if errors.Is(err, ErrTokenConfiguration) {
			s.log(ctx).Error("session signing unavailable", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msgAuthFailed)
		}
		return nil, s.internal(ctx, err, "issue session token")
	}
	return &models.Session{Token: token, MaxAge: int(s.tokens.TTL().Seconds())}, nil
}

func (s *AuthService) parseDate(dst *time.Time, field, raw string, details []string) []string {
	parsed, err := s.dates.Parse(raw)
	if err != nil {
		return append(details, fmt.Sprintf("%s is not a valid date", field))
	}
	*dst = parsed
	return details
}

func (s *AuthService) validateStudent(student *models.Student) error {
	err := s.validator.Struct(student)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fieldMessage(fe))
	}
	return appErrors.WithDetails(appErrors.ErrValidation, "", details)
}

// writeError maps store write failures. A duplicate key that slipped past the
// pre-check is reported as a conflict on the named field.
func (s *AuthService) writeError(ctx context.Context, err error, op string) error {
	var dup *repository.DuplicateKeyError
	if errors.As(err, &dup) {
		field := dup.Field
		if field == "" {
			field = "Record"
		}
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, field+" already exists")
	}
	return s.internal(ctx, err, op)
}

func (s *AuthService) internal(ctx context.Context, err error, op string) error {
	s.log(ctx).Error(op+" failed", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

func (s *AuthService) log(ctx context.Context) *zap.Logger {
	if id := requestid.FromContext(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	if name != "" {
		name = strings.ToLower(name[:1]) + name[1:]
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
