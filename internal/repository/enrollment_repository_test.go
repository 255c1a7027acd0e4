package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

func TestEnrollmentFindByStudentAndCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "completion_percentage", "created_at", "updated_at"}).
		AddRow("e1", "s1", "c1", 42.5, now, now)
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_id = \$2`).
		WithArgs("s1", "c1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByStudentAndCourse(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, enrollment.CompletionPercentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"course_id", "title", "thumbnail", "category", "tutor_id", "tutor_name", "tutor_email", "completion_percentage", "updated_at"}).
		AddRow("c1", "Intro To Go", "", "programming", "t1", "Asha", "asha@example.com", 40.0, now).
		AddRow("c2", "Advanced Go", "", "programming", "t2", "Vikram", "vikram@example.com", 60.0, now)
	mock.ExpectQuery(`FROM enrollments e`).
		WithArgs("s1").
		WillReturnRows(rows)

	courses, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Asha", courses[0].TutorName)
	assert.Equal(t, 60.0, courses[1].Progress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListByCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "completion_percentage", "created_at", "updated_at", "student_name", "student_email"}).
		AddRow("e1", "s1", "c1", 42.5, now, now, "Ravi", "ravi@example.com")
	mock.ExpectQuery(`FROM enrollments e`).
		WithArgs("c1").
		WillReturnRows(rows)

	details, err := repo.ListByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "ravi@example.com", details[0].StudentEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentUpdateProgress(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE enrollments SET completion_percentage = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("e1", 75.0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProgress(context.Background(), "e1", 75, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
