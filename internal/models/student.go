package models

import (
	"strings"
	"time"
)

// Gender values accepted on a certificate.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Student is the certificate holder and the only persisted entity.
type Student struct {
	ID               string    `db:"id" json:"id"`
	CertificateNo    string    `db:"certificate_no" json:"certificateNo" validate:"required"`
	Name             string    `db:"name" json:"name" validate:"required"`
	Gender           string    `db:"gender" json:"gender" validate:"required,oneof=male female"`
	CourseName       string    `db:"course_name" json:"courseName" validate:"required"`
	CourseDuration   string    `db:"course_duration" json:"courseDuration" validate:"required"`
	Stream           string    `db:"stream" json:"stream" validate:"required"`
	FromDate         time.Time `db:"from_date" json:"fromDate" validate:"required"`
	ToDate           time.Time `db:"to_date" json:"toDate" validate:"required"`
	DateOfCompletion time.Time `db:"date_of_completion" json:"dateOfCompletion" validate:"required"`
	CollegeRegdNo    string    `db:"college_regd_no" json:"collegeRegdNo" validate:"required"`
	CollegeName      string    `db:"college_name" json:"collegeName,omitempty"`
}

// Normalize applies the stored representation: text fields are trimmed and
// the certificate number is upper-cased.
func (s *Student) Normalize() {
	s.CertificateNo = NormalizeCertificateNo(s.CertificateNo)
	s.Name = strings.TrimSpace(s.Name)
	s.CourseName = strings.TrimSpace(s.CourseName)
	s.CourseDuration = strings.TrimSpace(s.CourseDuration)
	s.Stream = strings.TrimSpace(s.Stream)
	s.CollegeRegdNo = strings.TrimSpace(s.CollegeRegdNo)
	s.CollegeName = strings.TrimSpace(s.CollegeName)
}

// NormalizeCertificateNo returns the canonical form used for storage and lookups.
func NormalizeCertificateNo(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// CreateStudentRequest is the registration form. Dates are raw strings
// parsed by the service.
type CreateStudentRequest struct {
	CertificateNo    string `json:"certificateNo"`
	Name             string `json:"name" validate:"required"`
	Gender           string `json:"gender"`
	CourseName       string `json:"courseName" validate:"required"`
	CourseDuration   string `json:"courseDuration"`
	Stream           string `json:"stream"`
	FromDate         string `json:"fromDate"`
	ToDate           string `json:"toDate"`
	DateOfCompletion string `json:"dateOfCompletion"`
	CollegeRegdNo    string `json:"collegeRegdNo" validate:"required"`
	CollegeName      string `json:"collegeName"`
}

// EditStudentRequest carries a partial update; nil fields are left untouched.
type EditStudentRequest struct {
	CertificateNo    *string `json:"certificateNo"`
	Name             *string `json:"name"`
	Gender           *string `json:"gender"`
	CourseName       *string `json:"courseName"`
	CourseDuration   *string `json:"courseDuration"`
	Stream           *string `json:"stream"`
	FromDate         *string `json:"fromDate"`
	ToDate           *string `json:"toDate"`
	DateOfCompletion *string `json:"dateOfCompletion"`
	CollegeRegdNo    *string `json:"collegeRegdNo"`
	CollegeName      *string `json:"collegeName"`
}

// StudentPayload wraps a student in API responses.
type StudentPayload struct {
	Student *Student `json:"student"`
}

// Recommended form values. They are offered to clients but not enforced.
var (
	CourseOptions = []string{
		"Electric Vehicle Technology",
	}

	DurationOptions = []string{
		"One month",
		"Two months",
		"Three months",
		"Six months",
		"One year",
	}

	StreamOptions = []string{
		"B. Tech 2nd Year 4th Semester Electrical Engineering",
		"B. Tech 2nd Year 4th Semester Mechanical Engineering",
		"B. Tech 2nd Year 4th Semester Computer Science Engineering",
		"B. Tech 3rd Year 5th Semester Electrical Engineering",
		"B. Tech 3rd Year 5th Semester Mechanical Engineering",
		"B. Tech 3rd Year 5th Semester Computer Science Engineering",
		"Diploma 2nd Year 4th Semester Electrical Engineering",
		"Diploma 2nd Year 4th Semester Mechanical Engineering",
		"Diploma 2nd Year 4th Semester Computer Science Engineering",
	}
)

// FormOptions lists the recommended values for the registration form.
type FormOptions struct {
	Courses   []string `json:"courses"`
	Durations []string `json:"durations"`
	Streams   []string `json:"streams"`
	Genders   []string `json:"genders"`
}

// DefaultFormOptions returns copies of the recommended option sets.
func DefaultFormOptions() FormOptions {
	return FormOptions{
		Courses:   append([]string(nil), CourseOptions...),
		Durations: append([]string(nil), DurationOptions...),
		Streams:   append([]string(nil), StreamOptions...),
		Genders:   []string{GenderMale, GenderFemale},
	}
}
