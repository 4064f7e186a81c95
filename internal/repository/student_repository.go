package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evxlab/certificate-api/internal/models"
)

// ErrNotFound is returned when no student matches, including malformed ids.
var ErrNotFound = errors.New("student not found")

// ErrDuplicate is wrapped by DuplicateKeyError when the driver has no
// native error to carry.
var ErrDuplicate = errors.New("duplicate key")

// Unique fields on the student record.
const (
	FieldCertificateNo = "certificateNo"
	FieldCollegeRegdNo = "collegeRegdNo"
)

// DuplicateKeyError reports a unique index violation raised by the store.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("duplicate key: %v", e.Err)
	}
	return fmt.Sprintf("duplicate %s: %v", e.Field, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// StudentStore is implemented by every storage driver.
type StudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCollegeRegdNo(ctx context.Context, collegeRegdNo string) (*models.Student, error)
	FindByCertificateNo(ctx context.Context, certificateNo string) (*models.Student, error)
	ExistsByCertificateNo(ctx context.Context, certificateNo, excludeID string) (bool, error)
	ExistsByCollegeRegdNo(ctx context.Context, collegeRegdNo, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

// duplicateField guesses the offending field from a driver message that
// names the violated index or constraint.
func duplicateField(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "certificateno"), strings.Contains(lower, "certificate_no"):
		return FieldCertificateNo
	case strings.Contains(lower, "collegeregdno"), strings.Contains(lower, "college_regd_no"):
		return FieldCollegeRegdNo
	default:
		return ""
	}
}
