package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudentAndCourse returns the enrollment linking a student to a course.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, completion_percentage, created_at, updated_at
        FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByStudent returns a student's enrollments resolved with their course
// summaries, most recently created first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT c.id AS course_id, c.title, c.thumbnail, c.category,
        c.tutor_id, u.name AS tutor_name, u.email AS tutor_email,
        e.completion_percentage, e.updated_at
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = c.tutor_id
        WHERE e.student_id = $1
        ORDER BY e.created_at DESC`
	var courses []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return courses, nil
}

// ListByCourse returns enrollments for a course with student identities,
// used by tutors reviewing their roster.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.completion_percentage, e.created_at, e.updated_at,
        u.name AS student_name, u.email AS student_email
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY e.created_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return details, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, student_id, course_id, completion_percentage, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :completion_percentage, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress records a new completion percentage.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, completion float64, updatedAt time.Time) error {
	const query = `UPDATE enrollments SET completion_percentage = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, completion, updatedAt); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}
