package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, id string, completion float64, updatedAt time.Time) error
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService manages the link between students and courses.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
}

// ListEnrolledCourses returns the student's courses with progress, most
// recent enrollment first.
func (s *EnrollmentService) ListEnrolledCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	courses, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if courses == nil {
		courses = []models.EnrolledCourse{}
	}
	return courses, nil
}

// Enroll links a student to a published course. Enrolling twice returns the
// existing enrollment unchanged.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	existing, err := s.repo.FindByStudentAndCourse(ctx, studentID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		ID:                   uuid.NewString(),
		StudentID:            studentID,
		CourseID:             courseID,
		CompletionPercentage: 0,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.invalidateDashboard(ctx, studentID)
	s.logger.Info("student enrolled", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return enrollment, nil
}

// UpdateProgress records the student's new completion percentage for a course
// they are enrolled in.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, studentID, courseID string, req models.UpdateProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "completion percentage must be between 0 and 100")
	}

	enrollment, err := s.repo.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateProgress(ctx, enrollment.ID, req.CompletionPercentage, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}

	enrollment.CompletionPercentage = req.CompletionPercentage
	enrollment.UpdatedAt = now

	s.invalidateDashboard(ctx, studentID)
	return enrollment, nil
}

func (s *EnrollmentService) invalidateDashboard(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:%s*", studentID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
