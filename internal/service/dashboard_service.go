package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/dto"
	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
)

type dashboardEnrollmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error)
}

type dashboardCourseRepository interface {
	Structures(ctx context.Context, courseIDs []string) ([]models.CourseStructure, error)
}

type dashboardPaymentRepository interface {
	RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.PaymentSummary, error)
}

// DashboardConfig tunes the aggregation.
type DashboardConfig struct {
	CacheTTL       time.Duration
	RecentPayments int
}

// DashboardService assembles the student dashboard from enrollments, course
// structures and payment history in a single pass.
type DashboardService struct {
	enrollments dashboardEnrollmentRepository
	courses     dashboardCourseRepository
	payments    dashboardPaymentRepository
	cache       *CacheService
	logger      *zap.Logger
	config      DashboardConfig
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(enrollments dashboardEnrollmentRepository, courses dashboardCourseRepository, payments dashboardPaymentRepository, cache *CacheService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RecentPayments <= 0 {
		config.RecentPayments = 5
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		enrollments: enrollments,
		courses:     courses,
		payments:    payments,
		cache:       cache,
		logger:      logger,
		config:      config,
	}
}

// Stats returns the dashboard payload for the student. The second return
// value reports whether the payload came from cache.
func (s *DashboardService) Stats(ctx context.Context, studentID string) (*dto.DashboardStatsResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:%s", studentID)
	if s.cache != nil {
		var cached dto.DashboardStatsResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	enrolled, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	courseIDs := make([]string, 0, len(enrolled))
	for _, course := range enrolled {
		courseIDs = append(courseIDs, course.CourseID)
	}

	structures := map[string]models.CourseStructure{}
	if len(courseIDs) > 0 {
		rows, err := s.courses.Structures(ctx, courseIDs)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course structures")
		}
		for _, row := range rows {
			structures[row.CourseID] = row
		}
	}

	response := &dto.DashboardStatsResponse{
		ActiveCourses:     make([]dto.ActiveCourse, 0, len(enrolled)),
		RecentPayments:    []models.PaymentSummary{},
		CoursePerformance: make([]dto.CoursePerformance, 0, len(enrolled)),
	}

	var totalLectures, totalMinutes int
	var progressSum float64
	for _, course := range enrolled {
		structure := structures[course.CourseID]
		totalLectures += structure.LectureCount
		totalMinutes += structure.DurationMinutes
		progressSum += course.Progress

		response.ActiveCourses = append(response.ActiveCourses, dto.ActiveCourse{
			ID:        course.CourseID,
			Title:     course.Title,
			Thumbnail: course.Thumbnail,
			Category:  course.Category,
			Tutor: dto.TutorSummary{
				ID:    course.TutorID,
				Name:  course.TutorName,
				Email: course.TutorEmail,
			},
			Progress:     course.Progress,
			LectureCount: structure.LectureCount,
			Duration:     structure.DurationMinutes,
			LastAccessed: course.LastAccessed,
		})

		response.CoursePerformance = append(response.CoursePerformance, dto.CoursePerformance{
			CourseName: course.Title,
			Progress:   course.Progress,
			ShortName:  shortName(course.Title),
		})
	}

	overall := 0
	if len(enrolled) > 0 {
		overall = int(math.Round(progressSum / float64(len(enrolled))))
	}

	response.Stats = dto.DashboardStats{
		EnrolledCourses:  len(enrolled),
		TotalTutorials:   totalLectures,
		TotalTimeMinutes: totalMinutes,
		OverallProgress:  overall,
	}

	payments, err := s.payments.RecentByStudent(ctx, studentID, s.config.RecentPayments)
	if err != nil {
		s.logger.Warn("failed to load recent payments", zap.String("student_id", studentID), zap.Error(err))
	} else if payments != nil {
		response.RecentPayments = payments
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	return response, false, nil
}

// shortName abbreviates a course title to its first three words.
func shortName(title string) string {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
