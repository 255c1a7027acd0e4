package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/middleware"
	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
)

type dashEnrollmentsStub struct {
	courses []models.EnrolledCourse
}

func (s *dashEnrollmentsStub) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	return s.courses, nil
}

type dashCoursesStub struct {
	structures []models.CourseStructure
}

func (s *dashCoursesStub) Structures(ctx context.Context, courseIDs []string) ([]models.CourseStructure, error) {
	return s.structures, nil
}

type dashPaymentsStub struct{}

func (dashPaymentsStub) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.PaymentSummary, error) {
	return nil, nil
}

func TestDashboardHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewDashboardService(
		&dashEnrollmentsStub{courses: []models.EnrolledCourse{
			{CourseID: "c1", Title: "Intro To Go", Progress: 40},
			{CourseID: "c2", Title: "Advanced Go Concurrency Patterns", Progress: 60},
		}},
		&dashCoursesStub{structures: []models.CourseStructure{
			{CourseID: "c1", LectureCount: 10, DurationMinutes: 200},
			{CourseID: "c2", LectureCount: 5, DurationMinutes: 100},
		}},
		dashPaymentsStub{},
		nil,
		zap.NewNop(),
		service.DashboardConfig{CacheTTL: time.Minute, RecentPayments: 5},
	)
	h := NewDashboardHandler(svc)

	router := gin.New()
	router.GET("/api/dashboard/stats", func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	}, h.Stats)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Stats struct {
				EnrolledCourses  int `json:"enrolledCourses"`
				TotalTutorials   int `json:"totalTutorials"`
				TotalTimeMinutes int `json:"totalTimeMinutes"`
				OverallProgress  int `json:"overallProgress"`
			} `json:"stats"`
			CoursePerformance []struct {
				ShortName string `json:"shortName"`
			} `json:"coursePerformance"`
		} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, 2, envelope.Data.Stats.EnrolledCourses)
	assert.Equal(t, 15, envelope.Data.Stats.TotalTutorials)
	assert.Equal(t, 300, envelope.Data.Stats.TotalTimeMinutes)
	assert.Equal(t, 50, envelope.Data.Stats.OverallProgress)
	require.Len(t, envelope.Data.CoursePerformance, 2)
	assert.Equal(t, "Advanced Go Concurrency", envelope.Data.CoursePerformance[1].ShortName)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestDashboardHandlerStatsRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewDashboardService(&dashEnrollmentsStub{}, &dashCoursesStub{}, dashPaymentsStub{}, nil, zap.NewNop(), service.DashboardConfig{})
	h := NewDashboardHandler(svc)

	router := gin.New()
	router.GET("/api/dashboard/stats", h.Stats)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
