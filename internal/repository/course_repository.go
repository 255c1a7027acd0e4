package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

// CourseRepository handles persistence of courses, sections and lectures.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by the provided criteria with a total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"category":   true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, tutor_id, title, thumbnail, category, published, created_at, updated_at %s%s ORDER BY %s %s LIMIT %d OFFSET %d", base, clause, sortBy, sortOrder, pageSize, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, tutor_id, title, thumbnail, category, published, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindDetailByID returns a course with tutor identity and its full
// section/lecture structure.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.tutor_id, c.title, c.thumbnail, c.category, c.published, c.created_at, c.updated_at,
        u.name AS tutor_name, u.email AS tutor_email
        FROM courses c
        JOIN users u ON u.id = c.tutor_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}

	sections, err := r.SectionsWithLectures(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Sections = sections
	return &detail, nil
}

// SectionsWithLectures loads the ordered content structure of a course.
func (r *CourseRepository) SectionsWithLectures(ctx context.Context, courseID string) ([]models.SectionDetail, error) {
	const sectionQuery = `SELECT id, course_id, title, position FROM course_sections WHERE course_id = $1 ORDER BY position ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, sectionQuery, courseID); err != nil {
		return nil, fmt.Errorf("list course sections: %w", err)
	}
	if len(sections) == 0 {
		return []models.SectionDetail{}, nil
	}

	const lectureQuery = `SELECT l.id, l.section_id, l.title, l.duration_minutes, l.video_url, l.position
        FROM lectures l
        JOIN course_sections s ON s.id = l.section_id
        WHERE s.course_id = $1
        ORDER BY s.position ASC, l.position ASC`
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, lectureQuery, courseID); err != nil {
		return nil, fmt.Errorf("list course lectures: %w", err)
	}

	bySection := make(map[string][]models.Lecture, len(sections))
	for _, lecture := range lectures {
		bySection[lecture.SectionID] = append(bySection[lecture.SectionID], lecture)
	}

	details := make([]models.SectionDetail, 0, len(sections))
	for _, section := range sections {
		lectures := bySection[section.ID]
		if lectures == nil {
			lectures = []models.Lecture{}
		}
		details = append(details, models.SectionDetail{Section: section, Lectures: lectures})
	}
	return details, nil
}

// Structures returns lecture counts and duration sums for the given courses.
func (r *CourseRepository) Structures(ctx context.Context, courseIDs []string) ([]models.CourseStructure, error) {
	if len(courseIDs) == 0 {
		return []models.CourseStructure{}, nil
	}
	placeholders := make([]string, len(courseIDs))
	args := make([]interface{}, len(courseIDs))
	for i, id := range courseIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT c.id AS course_id,
        COUNT(l.id) AS lecture_count,
        COALESCE(SUM(l.duration_minutes), 0) AS duration_minutes
        FROM courses c
        LEFT JOIN course_sections s ON s.course_id = c.id
        LEFT JOIN lectures l ON l.section_id = s.id
        WHERE c.id IN (%s)
        GROUP BY c.id`, strings.Join(placeholders, ","))

	var structures []models.CourseStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate course structures: %w", err)
	}
	return structures, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, tutor_id, title, thumbnail, category, published, created_at, updated_at)
        VALUES (:id, :tutor_id, :title, :thumbnail, :category, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, thumbnail = :thumbnail, category = :category, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// SetPublished toggles catalogue visibility.
func (r *CourseRepository) SetPublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE courses SET published = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, published, time.Now().UTC()); err != nil {
		return fmt.Errorf("set course published: %w", err)
	}
	return nil
}

// Delete removes a course and its content structure.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CreateSection appends a section to a course.
func (r *CourseRepository) CreateSection(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	const query = `INSERT INTO course_sections (id, course_id, title, position)
        VALUES (:id, :course_id, :title, :position)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// FindSectionByID returns a section by identifier.
func (r *CourseRepository) FindSectionByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, title, position FROM course_sections WHERE id = $1 LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return &section, nil
}

// NextSectionPosition returns the next free position within a course.
func (r *CourseRepository) NextSectionPosition(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) + 1 FROM course_sections WHERE course_id = $1`
	var position int
	if err := r.db.GetContext(ctx, &position, query, courseID); err != nil {
		return 0, fmt.Errorf("next section position: %w", err)
	}
	return position, nil
}

// CreateLecture appends a lecture to a section.
func (r *CourseRepository) CreateLecture(ctx context.Context, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	const query = `INSERT INTO lectures (id, section_id, title, duration_minutes, video_url, position)
        VALUES (:id, :section_id, :title, :duration_minutes, :video_url, :position)`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// FindLectureByID returns a lecture together with its owning course ID.
func (r *CourseRepository) FindLectureByID(ctx context.Context, id string) (*models.Lecture, string, error) {
	const query = `SELECT l.id, l.section_id, l.title, l.duration_minutes, l.video_url, l.position, s.course_id
        FROM lectures l
        JOIN course_sections s ON s.id = l.section_id
        WHERE l.id = $1`
	var row struct {
		models.Lecture
		CourseID string `db:"course_id"`
	}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("find lecture by id: %w", err)
	}
	return &row.Lecture, row.CourseID, nil
}

// UpdateLecture persists mutable lecture fields.
func (r *CourseRepository) UpdateLecture(ctx context.Context, lecture *models.Lecture) error {
	const query = `UPDATE lectures SET title = :title, duration_minutes = :duration_minutes, video_url = :video_url WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// DeleteLecture removes a lecture.
func (r *CourseRepository) DeleteLecture(ctx context.Context, id string) error {
	const query = `DELETE FROM lectures WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lecture: %w", err)
	}
	return nil
}

// NextLecturePosition returns the next free position within a section.
func (r *CourseRepository) NextLecturePosition(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) + 1 FROM lectures WHERE section_id = $1`
	var position int
	if err := r.db.GetContext(ctx, &position, query, sectionID); err != nil {
		return 0, fmt.Errorf("next lecture position: %w", err)
	}
	return position, nil
}
