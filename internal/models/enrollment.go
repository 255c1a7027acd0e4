package models

import "time"

// Enrollment links a student to a course and carries their progress.
// Completion stays within [0,100].
type Enrollment struct {
	ID                   string    `db:"id" json:"id"`
	StudentID            string    `db:"student_id" json:"student_id"`
	CourseID             string    `db:"course_id" json:"course_id"`
	CompletionPercentage float64   `db:"completion_percentage" json:"completion_percentage"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student identity, used by tutors
// reviewing their course roster.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// EnrolledCourse is an enrollment resolved with its course summary, the shape
// students see on their dashboard and course list.
type EnrolledCourse struct {
	CourseID     string    `db:"course_id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Thumbnail    string    `db:"thumbnail" json:"thumbnail,omitempty"`
	Category     string    `db:"category" json:"category,omitempty"`
	TutorID      string    `db:"tutor_id" json:"tutor_id"`
	TutorName    string    `db:"tutor_name" json:"tutor_name"`
	TutorEmail   string    `db:"tutor_email" json:"tutor_email"`
	Progress     float64   `db:"completion_percentage" json:"progress"`
	LastAccessed time.Time `db:"updated_at" json:"last_accessed"`
}

// UpdateProgressRequest records a student's new completion percentage.
type UpdateProgressRequest struct {
	CompletionPercentage float64 `json:"completion_percentage" validate:"min=0,max=100"`
}
