package models

import "time"

// Course is a tutor-owned offering students enroll into.
type Course struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	Title     string    `db:"title" json:"title"`
	Thumbnail string    `db:"thumbnail" json:"thumbnail,omitempty"`
	Category  string    `db:"category" json:"category,omitempty"`
	Published bool      `db:"published" json:"published"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Section groups lectures inside a course.
type Section struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	Title    string `db:"title" json:"title"`
	Position int    `db:"position" json:"position"`
}

// Lecture is a single unit of course content. Duration is minutes, never
// negative.
type Lecture struct {
	ID              string `db:"id" json:"id"`
	SectionID       string `db:"section_id" json:"section_id"`
	Title           string `db:"title" json:"title"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
	VideoURL        string `db:"video_url" json:"video_url,omitempty"`
	Position        int    `db:"position" json:"position"`
}

// SectionDetail carries a section with its ordered lectures.
type SectionDetail struct {
	Section
	Lectures []Lecture `json:"lectures"`
}

// CourseDetail enriches Course with tutor info and full content structure.
type CourseDetail struct {
	Course
	TutorName  string          `db:"tutor_name" json:"tutor_name"`
	TutorEmail string          `db:"tutor_email" json:"tutor_email"`
	Sections   []SectionDetail `json:"sections"`
}

// CourseStructure is the aggregate shape used by the dashboard: lecture count
// and total duration per course.
type CourseStructure struct {
	CourseID        string `db:"course_id" json:"course_id"`
	LectureCount    int    `db:"lecture_count" json:"lecture_count"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
}

// CourseFilter captures listing criteria for the public catalogue.
type CourseFilter struct {
	Category  string
	Search    string
	TutorID   string
	Published *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateCourseRequest payload for tutors creating a course.
type CreateCourseRequest struct {
	Title     string `json:"title" validate:"required"`
	Thumbnail string `json:"thumbnail"`
	Category  string `json:"category" validate:"required"`
}

// UpdateCourseRequest payload for tutors editing a course.
type UpdateCourseRequest struct {
	Title     *string `json:"title,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
	Category  *string `json:"category,omitempty"`
}

// AddLectureRequest appends a lecture to a course section.
type AddLectureRequest struct {
	SectionID       string `json:"section_id"`
	SectionTitle    string `json:"section_title"`
	Title           string `json:"title" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
	VideoURL        string `json:"video_url"`
}

// UpdateLectureRequest edits an existing lecture.
type UpdateLectureRequest struct {
	Title           *string `json:"title,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	VideoURL        *string `json:"video_url,omitempty"`
}
