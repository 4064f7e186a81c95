package repository

import (
	"context"
	"time"

	"github.com/evxlab/certificate-api/internal/models"
)

// QueryObserver receives the duration of every store call.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ObservedStudentStore times each call on the wrapped store.
type ObservedStudentStore struct {
	next     StudentStore
	observer QueryObserver
}

// NewObservedStudentStore wraps next. A nil observer returns next unchanged.
func NewObservedStudentStore(next StudentStore, observer QueryObserver) StudentStore {
	if observer == nil {
		return next
	}
	return &ObservedStudentStore{next: next, observer: observer}
}

func (s *ObservedStudentStore) observe(label string, start time.Time) {
	s.observer.ObserveDBQuery(label, time.Since(start))
}

func (s *ObservedStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	defer s.observe("students.find_by_id", time.Now())
	return s.next.FindByID(ctx, id)
}

func (s *ObservedStudentStore) FindByCollegeRegdNo(ctx context.Context, collegeRegdNo string) (*models.Student, error) {
	defer s.observe("students.find_by_college_regd_no", time.Now())
	return s.next.FindByCollegeRegdNo(ctx, collegeRegdNo)
}

func (s *ObservedStudentStore) FindByCertificateNo(ctx context.Context, certificateNo string) (*models.Student, error) {
	defer s.observe("students.find_by_certificate_no", time.Now())
	return s.next.FindByCertificateNo(ctx, certificateNo)
}

func (s *ObservedStudentStore) ExistsByCertificateNo(ctx context.Context, certificateNo, excludeID string) (bool, error) {
	defer s.observe("students.exists_by_certificate_no", time.Now())
	return s.next.ExistsByCertificateNo(ctx, certificateNo, excludeID)
}

func (s *ObservedStudentStore) ExistsByCollegeRegdNo(ctx context.Context, collegeRegdNo, excludeID string) (bool, error) {
	defer s.observe("students.exists_by_college_regd_no", time.Now())
	return s.next.ExistsByCollegeRegdNo(ctx, collegeRegdNo, excludeID)
}

func (s *ObservedStudentStore) Create(ctx context.Context, student *models.Student) error {
	defer s.observe("students.create", time.Now())
	return s.next.Create(ctx, student)
}

func (s *ObservedStudentStore) Update(ctx context.Context, student *models.Student) error {
	defer s.observe("students.update", time.Now())
	return s.next.Update(ctx, student)
}

func (s *ObservedStudentStore) EnsureIndexes(ctx context.Context) error {
	return s.next.EnsureIndexes(ctx)
}

func (s *ObservedStudentStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
