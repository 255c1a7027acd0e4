package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	enrolled    []models.EnrolledCourse
	created     *models.Enrollment
	updatedID   string
	updatedTo   float64
}

func (m *mockEnrollmentRepo) key(studentID, courseID string) string {
	return studentID + "/" + courseID
}

func (m *mockEnrollmentRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	e, ok := m.enrollments[m.key(studentID, courseID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	return m.enrolled, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]*models.Enrollment)
	}
	m.enrollments[m.key(enrollment.StudentID, enrollment.CourseID)] = enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, id string, completion float64, updatedAt time.Time) error {
	m.updatedID = id
	m.updatedTo = completion
	return nil
}

type mockEnrollmentCourses struct {
	course *models.Course
}

func (m *mockEnrollmentCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

func newTestEnrollmentService(repo *mockEnrollmentRepo, courses *mockEnrollmentCourses) *EnrollmentService {
	return NewEnrollmentService(repo, courses, nil, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockEnrollmentCourses{course: &models.Course{ID: "c1", Published: true}}
	svc := newTestEnrollmentService(repo, courses)

	enrollment, err := svc.Enroll(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, float64(0), enrollment.CompletionPercentage)
	require.NotNil(t, repo.created)
}

func TestEnrollmentServiceEnrollTwiceReturnsExisting(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockEnrollmentCourses{course: &models.Course{ID: "c1", Published: true}}
	svc := newTestEnrollmentService(repo, courses)

	first, err := svc.Enroll(context.Background(), "s1", "c1")
	require.NoError(t, err)

	repo.created = nil
	second, err := svc.Enroll(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceEnrollUnpublishedCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockEnrollmentCourses{course: &models.Course{ID: "c1", Published: false}}
	svc := newTestEnrollmentService(repo, courses)

	_, err := svc.Enroll(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateProgress(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"s1/c1": {ID: "e1", StudentID: "s1", CourseID: "c1", CompletionPercentage: 20},
	}}
	svc := newTestEnrollmentService(repo, &mockEnrollmentCourses{})

	enrollment, err := svc.UpdateProgress(context.Background(), "s1", "c1", models.UpdateProgressRequest{CompletionPercentage: 75})
	require.NoError(t, err)
	assert.Equal(t, float64(75), enrollment.CompletionPercentage)
	assert.Equal(t, "e1", repo.updatedID)
	assert.Equal(t, float64(75), repo.updatedTo)
}

func TestEnrollmentServiceUpdateProgressOutOfRange(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"s1/c1": {ID: "e1", StudentID: "s1", CourseID: "c1"},
	}}
	svc := newTestEnrollmentService(repo, &mockEnrollmentCourses{})

	_, err := svc.UpdateProgress(context.Background(), "s1", "c1", models.UpdateProgressRequest{CompletionPercentage: 120})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateProgressNotEnrolled(t *testing.T) {
	svc := newTestEnrollmentService(&mockEnrollmentRepo{}, &mockEnrollmentCourses{})

	_, err := svc.UpdateProgress(context.Background(), "s1", "c1", models.UpdateProgressRequest{CompletionPercentage: 50})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
