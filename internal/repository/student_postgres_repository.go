package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/evxlab/certificate-api/internal/models"
)

const studentColumns = `id, certificate_no, name, gender, course_name, course_duration, stream,
        from_date, to_date, date_of_completion, college_regd_no, college_name`

const studentSchema = `CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    certificate_no TEXT NOT NULL,
    name TEXT NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('male', 'female')),
    course_name TEXT NOT NULL,
    course_duration TEXT NOT NULL,
    stream TEXT NOT NULL,
    from_date TIMESTAMPTZ NOT NULL,
    to_date TIMESTAMPTZ NOT NULL,
    date_of_completion TIMESTAMPTZ NOT NULL,
    college_regd_no TEXT NOT NULL,
    college_name TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS students_certificate_no_key ON students (certificate_no);
CREATE UNIQUE INDEX IF NOT EXISTS students_college_regd_no_key ON students (college_regd_no);`

// pq's SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// StudentPostgresRepository stores students in PostgreSQL.
type StudentPostgresRepository struct {
	db *sqlx.DB
}

// NewStudentPostgresRepository constructs a StudentPostgresRepository.
func NewStudentPostgresRepository(db *sqlx.DB) *StudentPostgresRepository {
	return &StudentPostgresRepository{db: db}
}

// FindByID fetches a student by UUID.
func (r *StudentPostgresRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.get(ctx, "SELECT "+studentColumns+" FROM students WHERE id = $1", id)
}

// FindByCollegeRegdNo fetches a student by exact registration number.
func (r *StudentPostgresRepository) FindByCollegeRegdNo(ctx context.Context, collegeRegdNo string) (*models.Student, error) {
	return r.get(ctx, "SELECT "+studentColumns+" FROM students WHERE college_regd_no = $1", collegeRegdNo)
}

// FindByCertificateNo fetches a student by normalised certificate number.
func (r *StudentPostgresRepository) FindByCertificateNo(ctx context.Context, certificateNo string) (*models.Student, error) {
	return r.get(ctx, "SELECT "+studentColumns+" FROM students WHERE certificate_no = $1", models.NormalizeCertificateNo(certificateNo))
}

// ExistsByCertificateNo checks for another student holding the certificate number.
func (r *StudentPostgresRepository) ExistsByCertificateNo(ctx context.Context, certificateNo, excludeID string) (bool, error) {
	return r.exists(ctx, "certificate_no", models.NormalizeCertificateNo(certificateNo), excludeID)
}

// ExistsByCollegeRegdNo checks for another student holding the registration number.
func (r *StudentPostgresRepository) ExistsByCollegeRegdNo(ctx context.Context, collegeRegdNo, excludeID string) (bool, error) {
	return r.exists(ctx, "college_regd_no", collegeRegdNo, excludeID)
}

// Create inserts a new student record.
func (r *StudentPostgresRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	const query = `INSERT INTO students (id, certificate_no, name, gender, course_name, course_duration, stream, from_date, to_date, date_of_completion, college_regd_no, college_name)
        VALUES (:id, :certificate_no, :name, :gender, :course_name, :course_duration, :stream, :from_date, :to_date, :date_of_completion, :college_regd_no, :college_name)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		student.ID = ""
		return translatePostgresError(err, "create student")
	}
	return nil
}

// Update overwrites the mutable columns of an existing student.
func (r *StudentPostgresRepository) Update(ctx context.Context, student *models.Student) error {
	if _, err := uuid.Parse(student.ID); err != nil {
		return ErrNotFound
	}
	const query = `UPDATE students SET certificate_no = :certificate_no, name = :name, gender = :gender, course_name = :course_name,
        course_duration = :course_duration, stream = :stream, from_date = :from_date, to_date = :to_date,
        date_of_completion = :date_of_completion, college_regd_no = :college_regd_no, college_name = :college_name WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return translatePostgresError(err, "update student")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the students table and its unique indexes.
func (r *StudentPostgresRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, studentSchema); err != nil {
		return fmt.Errorf("ensure student schema: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *StudentPostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *StudentPostgresRepository) get(ctx context.Context, query string, arg interface{}) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

func (r *StudentPostgresRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM students WHERE %s = $1", column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return true, nil
}

func translatePostgresError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &DuplicateKeyError{Field: duplicateField(pqErr.Constraint), Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
