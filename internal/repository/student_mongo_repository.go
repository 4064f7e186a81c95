package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/evxlab/certificate-api/internal/models"
)

const studentCollection = "students"

type studentDocument struct {
	ID               primitive.ObjectID `bson:"_id"`
	CertificateNo    string             `bson:"certificateNo"`
	Name             string             `bson:"name"`
	Gender           string             `bson:"gender"`
	CourseName       string             `bson:"courseName"`
	CourseDuration   string             `bson:"courseDuration"`
	Stream           string             `bson:"stream"`
	FromDate         time.Time          `bson:"fromDate"`
	ToDate           time.Time          `bson:"toDate"`
	DateOfCompletion time.Time          `bson:"dateOfCompletion"`
	CollegeRegdNo    string             `bson:"collegeRegdNo"`
	CollegeName      string             `bson:"collegeName,omitempty"`
}

func (d *studentDocument) toModel() *models.Student {
	return &models.Student{
		ID:               d.ID.Hex(),
		CertificateNo:    d.CertificateNo,
		Name:             d.Name,
		Gender:           d.Gender,
		CourseName:       d.CourseName,
		CourseDuration:   d.CourseDuration,
		Stream:           d.Stream,
		FromDate:         d.FromDate,
		ToDate:           d.ToDate,
		DateOfCompletion: d.DateOfCompletion,
		CollegeRegdNo:    d.CollegeRegdNo,
		CollegeName:      d.CollegeName,
	}
}

// mutableFields excludes _id, which never changes after insert.
func mutableFields(s *models.Student) bson.M {
	return bson.M{
		"certificateNo":    s.CertificateNo,
		"name":             s.Name,
		"gender":           s.Gender,
		"courseName":       s.CourseName,
		"courseDuration":   s.CourseDuration,
		"stream":           s.Stream,
		"fromDate":         s.FromDate,
		"toDate":           s.ToDate,
		"dateOfCompletion": s.DateOfCompletion,
		"collegeRegdNo":    s.CollegeRegdNo,
		"collegeName":      s.CollegeName,
	}
}

// StudentMongoRepository stores students in a MongoDB collection.
type StudentMongoRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewStudentMongoRepository constructs a StudentMongoRepository.
func NewStudentMongoRepository(db *mongo.Database) *StudentMongoRepository {
	return &StudentMongoRepository{db: db, coll: db.Collection(studentCollection)}
}

// FindByID fetches a student by its ObjectID hex string.
func (r *StudentMongoRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByCollegeRegdNo fetches a student by exact registration number.
func (r *StudentMongoRepository) FindByCollegeRegdNo(ctx context.Context, collegeRegdNo string) (*models.Student, error) {
	return r.findOne(ctx, bson.M{"collegeRegdNo": collegeRegdNo})
}

// FindByCertificateNo fetches a student by normalised certificate number.
func (r *StudentMongoRepository) FindByCertificateNo(ctx context.Context, certificateNo string) (*models.Student, error) {
	return r.findOne(ctx, bson.M{"certificateNo": models.NormalizeCertificateNo(certificateNo)})
}

// ExistsByCertificateNo checks for another student holding the certificate number.
func (r *StudentMongoRepository) ExistsByCertificateNo(ctx context.Context, certificateNo, excludeID string) (bool, error) {
	return r.exists(ctx, "certificateNo", models.NormalizeCertificateNo(certificateNo), excludeID)
}

// ExistsByCollegeRegdNo checks for another student holding the registration number.
func (r *StudentMongoRepository) ExistsByCollegeRegdNo(ctx context.Context, collegeRegdNo, excludeID string) (bool, error) {
	return r.exists(ctx, "collegeRegdNo", collegeRegdNo, excludeID)
}

// Create inserts a new student and assigns its id.
func (r *StudentMongoRepository) Create(ctx context.Context, student *models.Student) error {
	student.FromDate = storedTime(student.FromDate)
	student.ToDate = storedTime(student.ToDate)
	student.DateOfCompletion = storedTime(student.DateOfCompletion)
	doc := studentDocument{
		ID:               primitive.NewObjectID(),
		CertificateNo:    student.CertificateNo,
		Name:             student.Name,
		Gender:           student.Gender,
		CourseName:       student.CourseName,
		CourseDuration:   student.CourseDuration,
		Stream:           student.Stream,
		FromDate:         student.FromDate,
		ToDate:           student.ToDate,
		DateOfCompletion: student.DateOfCompletion,
		CollegeRegdNo:    student.CollegeRegdNo,
		CollegeName:      student.CollegeName,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err, "create student")
	}
	student.ID = doc.ID.Hex()
	return nil
}

// Update merges the student's fields into the stored document and
// refreshes student from the result.
func (r *StudentMongoRepository) Update(ctx context.Context, student *models.Student) error {
	oid, err := primitive.ObjectIDFromHex(student.ID)
	if err != nil {
		return ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc studentDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": mutableFields(student)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return translateMongoError(err, "update student")
	}
	*student = *doc.toModel()
	return nil
}

// EnsureIndexes creates the unique indexes backing the uniqueness rules.
func (r *StudentMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "certificateNo", Value: 1}}, Options: options.Index().SetUnique(true).SetName("certificateNo_unique")},
		{Keys: bson.D{{Key: "collegeRegdNo", Value: 1}}, Options: options.Index().SetUnique(true).SetName("collegeRegdNo_unique")},
	})
	if err != nil {
		return fmt.Errorf("ensure student indexes: %w", err)
	}
	return nil
}

// Ping checks connectivity to the primary.
func (r *StudentMongoRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *StudentMongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Student, error) {
	var doc studentDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return doc.toModel(), nil
}

func (r *StudentMongoRepository) exists(ctx context.Context, field, value, excludeID string) (bool, error) {
	filter := bson.M{field: value}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := r.coll.FindOne(ctx, filter, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", field, err)
	}
	return true, nil
}

// storedTime matches what BSON datetimes round-trip to: UTC, millisecond precision.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func translateMongoError(err error, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return &DuplicateKeyError{Field: duplicateField(err.Error()), Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
