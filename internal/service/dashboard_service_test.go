package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

type mockDashboardEnrollments struct {
	courses []models.EnrolledCourse
	err     error
}

func (m *mockDashboardEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	return m.courses, m.err
}

type mockDashboardCourses struct {
	structures []models.CourseStructure
	requested  []string
}

func (m *mockDashboardCourses) Structures(ctx context.Context, courseIDs []string) ([]models.CourseStructure, error) {
	m.requested = courseIDs
	return m.structures, nil
}

type mockDashboardPayments struct {
	summaries []models.PaymentSummary
	limit     int
}

func (m *mockDashboardPayments) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.PaymentSummary, error) {
	m.limit = limit
	return m.summaries, nil
}

func newTestDashboardService(enrollments *mockDashboardEnrollments, courses *mockDashboardCourses, payments *mockDashboardPayments) *DashboardService {
	return NewDashboardService(enrollments, courses, payments, nil, zap.NewNop(), DashboardConfig{
		CacheTTL:       time.Minute,
		RecentPayments: 5,
	})
}

func TestDashboardStatsNoEnrollments(t *testing.T) {
	svc := newTestDashboardService(&mockDashboardEnrollments{}, &mockDashboardCourses{}, &mockDashboardPayments{})

	res, cached, err := svc.Stats(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 0, res.Stats.EnrolledCourses)
	assert.Equal(t, 0, res.Stats.TotalTutorials)
	assert.Equal(t, 0, res.Stats.TotalTimeMinutes)
	assert.Equal(t, 0, res.Stats.OverallProgress)
	assert.Empty(t, res.ActiveCourses)
	assert.Empty(t, res.RecentPayments)
	assert.Empty(t, res.CoursePerformance)
}

func TestDashboardStatsAggregation(t *testing.T) {
	enrollments := &mockDashboardEnrollments{courses: []models.EnrolledCourse{
		{CourseID: "c1", Title: "Advanced Data Structures And Algorithms", TutorID: "t1", TutorName: "Asha", TutorEmail: "asha@example.com", Progress: 40},
		{CourseID: "c2", Title: "Intro To Go", TutorID: "t2", TutorName: "Vikram", TutorEmail: "vikram@example.com", Progress: 60},
	}}
	courses := &mockDashboardCourses{structures: []models.CourseStructure{
		{CourseID: "c1", LectureCount: 12, DurationMinutes: 300},
		{CourseID: "c2", LectureCount: 8, DurationMinutes: 120},
	}}
	payments := &mockDashboardPayments{summaries: []models.PaymentSummary{
		{ID: "p1", Amount: 499, Status: models.PaymentStatusCompleted, CourseTitle: "Intro To Go"},
	}}

	svc := newTestDashboardService(enrollments, courses, payments)

	res, cached, err := svc.Stats(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, 2, res.Stats.EnrolledCourses)
	assert.Equal(t, 20, res.Stats.TotalTutorials)
	assert.Equal(t, 420, res.Stats.TotalTimeMinutes)
	assert.Equal(t, 50, res.Stats.OverallProgress)

	assert.ElementsMatch(t, []string{"c1", "c2"}, courses.requested)
	assert.Equal(t, 5, payments.limit)

	require.Len(t, res.ActiveCourses, 2)
	assert.Equal(t, 12, res.ActiveCourses[0].LectureCount)
	assert.Equal(t, 300, res.ActiveCourses[0].Duration)
	assert.Equal(t, "Asha", res.ActiveCourses[0].Tutor.Name)

	require.Len(t, res.CoursePerformance, 2)
	assert.Equal(t, "Advanced Data Structures", res.CoursePerformance[0].ShortName)
	assert.Equal(t, "Intro To Go", res.CoursePerformance[1].ShortName)

	require.Len(t, res.RecentPayments, 1)
	assert.Equal(t, "p1", res.RecentPayments[0].ID)
}

func TestDashboardStatsRoundsMeanProgress(t *testing.T) {
	enrollments := &mockDashboardEnrollments{courses: []models.EnrolledCourse{
		{CourseID: "c1", Title: "One", Progress: 33},
		{CourseID: "c2", Title: "Two", Progress: 33},
		{CourseID: "c3", Title: "Three", Progress: 34},
	}}
	svc := newTestDashboardService(enrollments, &mockDashboardCourses{}, &mockDashboardPayments{})

	res, _, err := svc.Stats(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 33, res.Stats.OverallProgress)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Intro To Go", shortName("Intro To Go"))
	assert.Equal(t, "Full Stack Web", shortName("Full Stack Web Development Bootcamp"))
	assert.Equal(t, "Go", shortName("Go"))
	assert.Equal(t, "", shortName(""))
}
