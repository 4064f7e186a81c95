package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/evxlab/certificate-api/internal/models"
)

// StudentMemoryRepository keeps students in process memory. It enforces
// the same uniqueness rules as the database drivers and is meant for local
// development and tests.
type StudentMemoryRepository struct {
	mu       sync.RWMutex
	students map[string]models.Student
}

// NewStudentMemoryRepository constructs an empty in-memory store.
func NewStudentMemoryRepository() *StudentMemoryRepository {
	return &StudentMemoryRepository{students: make(map[string]models.Student)}
}

func (r *StudentMemoryRepository) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *StudentMemoryRepository) FindByCollegeRegdNo(_ context.Context, collegeRegdNo string) (*models.Student, error) {
	return r.findBy(func(s *models.Student) bool { return s.CollegeRegdNo == collegeRegdNo })
}

func (r *StudentMemoryRepository) FindByCertificateNo(_ context.Context, certificateNo string) (*models.Student, error) {
	certificateNo = models.NormalizeCertificateNo(certificateNo)
	return r.findBy(func(s *models.Student) bool { return s.CertificateNo == certificateNo })
}

func (r *StudentMemoryRepository) ExistsByCertificateNo(_ context.Context, certificateNo, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taken(FieldCertificateNo, models.NormalizeCertificateNo(certificateNo), excludeID), nil
}

func (r *StudentMemoryRepository) ExistsByCollegeRegdNo(_ context.Context, collegeRegdNo, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taken(FieldCollegeRegdNo, collegeRegdNo, excludeID), nil
}

func (r *StudentMemoryRepository) Create(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(student, ""); err != nil {
		return err
	}
	student.ID = uuid.NewString()
	r.students[student.ID] = *student
	return nil
}

func (r *StudentMemoryRepository) Update(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[student.ID]; !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(student, student.ID); err != nil {
		return err
	}
	r.students[student.ID] = *student
	return nil
}

func (r *StudentMemoryRepository) EnsureIndexes(context.Context) error { return nil }

func (r *StudentMemoryRepository) Ping(context.Context) error { return nil }

// Len returns the number of stored students.
func (r *StudentMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students)
}

func (r *StudentMemoryRepository) findBy(match func(*models.Student) bool) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.students {
		s := s
		if match(&s) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *StudentMemoryRepository) taken(field, value, excludeID string) bool {
	for id, s := range r.students {
		if id == excludeID {
			continue
		}
		switch field {
		case FieldCertificateNo:
			if s.CertificateNo == value {
				return true
			}
		case FieldCollegeRegdNo:
			if s.CollegeRegdNo == value {
				return true
			}
		}
	}
	return false
}

func (r *StudentMemoryRepository) checkUnique(student *models.Student, excludeID string) error {
	if r.taken(FieldCertificateNo, student.CertificateNo, excludeID) {
		return &DuplicateKeyError{Field: FieldCertificateNo, Err: ErrDuplicate}
	}
	if r.taken(FieldCollegeRegdNo, student.CollegeRegdNo, excludeID) {
		return &DuplicateKeyError{Field: FieldCollegeRegdNo, Err: ErrDuplicate}
	}
	return nil
}
