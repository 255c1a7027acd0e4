package dto

import (
	"time"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

// DashboardStats aggregates a student's learning activity.
type DashboardStats struct {
	EnrolledCourses  int `json:"enrolledCourses"`
	TotalTutorials   int `json:"totalTutorials"`
	TotalTimeMinutes int `json:"totalTimeMinutes"`
	OverallProgress  int `json:"overallProgress"`
}

// TutorSummary is the minimal tutor identity shown on course cards.
type TutorSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ActiveCourse is an enrolled course resolved with its content totals.
type ActiveCourse struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Thumbnail    string       `json:"thumbnail,omitempty"`
	Category     string       `json:"category,omitempty"`
	Tutor        TutorSummary `json:"tutor"`
	Progress     float64      `json:"progress"`
	LectureCount int          `json:"lectureCount"`
	Duration     int          `json:"duration"`
	LastAccessed time.Time    `json:"lastAccessed"`
}

// CoursePerformance is one point of the progress graph series. ShortName is
// the first three words of the title.
type CoursePerformance struct {
	CourseName string  `json:"courseName"`
	Progress   float64 `json:"progress"`
	ShortName  string  `json:"shortName"`
}

// DashboardStatsResponse is the full student dashboard payload.
type DashboardStatsResponse struct {
	Stats             DashboardStats          `json:"stats"`
	ActiveCourses     []ActiveCourse          `json:"activeCourses"`
	RecentPayments    []models.PaymentSummary `json:"recentPayments"`
	CoursePerformance []CoursePerformance     `json:"coursePerformance"`
}
