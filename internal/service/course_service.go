package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/export"
	"github.com/tutorlane/tutorlane-api/pkg/storage"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
	CreateSection(ctx context.Context, section *models.Section) error
	FindSectionByID(ctx context.Context, id string) (*models.Section, error)
	NextSectionPosition(ctx context.Context, courseID string) (int, error)
	CreateLecture(ctx context.Context, lecture *models.Lecture) error
	FindLectureByID(ctx context.Context, id string) (*models.Lecture, string, error)
	UpdateLecture(ctx context.Context, lecture *models.Lecture) error
	DeleteLecture(ctx context.Context, id string) error
	NextLecturePosition(ctx context.Context, sectionID string) (int, error)
}

type courseEnrollmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type exportStore interface {
	Save(key string, data []byte) (string, error)
}

// RosterExport is a rendered enrollment roster ready to stream to the client.
type RosterExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// RosterExportLink points at a persisted roster export via a signed,
// time-boxed download token.
type RosterExportLink struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CourseService provides catalogue and content management use cases.
type CourseService struct {
	repo        courseRepository
	enrollments courseEnrollmentRepository
	cache       *CacheService
	files       exportStore
	signer      *storage.SignedURLSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService instance. files and signer may
// be nil, which disables persisted export links.
func NewCourseService(repo courseRepository, enrollments courseEnrollmentRepository, cache *CacheService, files exportStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{
		repo:        repo,
		enrollments: enrollments,
		cache:       cache,
		files:       files,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// ListCourses returns the published catalogue page for the given filter.
func (s *CourseService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	published := true
	filter.Published = &published

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListTutorCourses returns every course owned by the tutor, drafts included.
func (s *CourseService) ListTutorCourses(ctx context.Context, tutorID string, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	filter.TutorID = tutorID
	filter.Published = nil

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutor courses")
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetCourse returns the full course detail including sections and lectures.
// Unpublished drafts are visible only to the owning tutor; for everyone else
// they do not exist.
func (s *CourseService) GetCourse(ctx context.Context, id, viewerID string) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !detail.Published && detail.TutorID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return detail, nil
}

// CreateCourse creates an unpublished course owned by the tutor.
func (s *CourseService) CreateCourse(ctx context.Context, tutorID string, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		ID:        uuid.NewString(),
		TutorID:   tutorID,
		Title:     strings.TrimSpace(req.Title),
		Thumbnail: req.Thumbnail,
		Category:  req.Category,
		Published: false,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("tutor_id", tutorID))
	return course, nil
}

// UpdateCourse applies partial edits to a course the tutor owns.
func (s *CourseService) UpdateCourse(ctx context.Context, tutorID, courseID string, req models.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, tutorID, courseID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
		course.Title = title
	}
	if req.Thumbnail != nil {
		course.Thumbnail = *req.Thumbnail
	}
	if req.Category != nil {
		course.Category = *req.Category
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// SetPublished flips course visibility in the public catalogue.
func (s *CourseService) SetPublished(ctx context.Context, tutorID, courseID string, published bool) error {
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return err
	}
	if err := s.repo.SetPublished(ctx, courseID, published); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change course visibility")
	}
	return nil
}

// DeleteCourse removes a course the tutor owns along with its content.
func (s *CourseService) DeleteCourse(ctx context.Context, tutorID, courseID string) error {
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateDashboards(ctx)
	return nil
}

// AddLecture appends a lecture to a section of the tutor's course. When no
// section ID is given a new section is created from the provided title.
func (s *CourseService) AddLecture(ctx context.Context, tutorID, courseID string, req models.AddLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return nil, err
	}

	sectionID := req.SectionID
	if sectionID == "" {
		title := strings.TrimSpace(req.SectionTitle)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "either section_id or section_title is required")
		}
		position, err := s.repo.NextSectionPosition(ctx, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine section position")
		}
		section := &models.Section{ID: uuid.NewString(), CourseID: courseID, Title: title, Position: position}
		if err := s.repo.CreateSection(ctx, section); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
		}
		sectionID = section.ID
	} else {
		section, err := s.repo.FindSectionByID(ctx, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.CourseID != courseID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to course")
		}
	}

	position, err := s.repo.NextLecturePosition(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine lecture position")
	}

	lecture := &models.Lecture{
		ID:              uuid.NewString(),
		SectionID:       sectionID,
		Title:           strings.TrimSpace(req.Title),
		DurationMinutes: req.DurationMinutes,
		VideoURL:        req.VideoURL,
		Position:        position,
	}
	if err := s.repo.CreateLecture(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecture")
	}

	s.invalidateDashboards(ctx)
	return lecture, nil
}

// UpdateLecture edits a lecture belonging to the tutor's course.
func (s *CourseService) UpdateLecture(ctx context.Context, tutorID, lectureID string, req models.UpdateLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}

	lecture, courseID, err := s.findLecture(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
		lecture.Title = title
	}
	if req.DurationMinutes != nil {
		lecture.DurationMinutes = *req.DurationMinutes
	}
	if req.VideoURL != nil {
		lecture.VideoURL = *req.VideoURL
	}

	if err := s.repo.UpdateLecture(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture")
	}

	s.invalidateDashboards(ctx)
	return lecture, nil
}

// DeleteLecture removes a lecture from the tutor's course.
func (s *CourseService) DeleteLecture(ctx context.Context, tutorID, lectureID string) error {
	_, courseID, err := s.findLecture(ctx, lectureID)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return err
	}
	if err := s.repo.DeleteLecture(ctx, lectureID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecture")
	}
	s.invalidateDashboards(ctx)
	return nil
}

// Roster returns the enrolled students for a course the tutor owns.
func (s *CourseService) Roster(ctx context.Context, tutorID, courseID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.ownedCourse(ctx, tutorID, courseID); err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// ExportRoster renders the roster as CSV or PDF for download.
func (s *CourseService) ExportRoster(ctx context.Context, tutorID, courseID, format string) (*RosterExport, error) {
	course, err := s.ownedCourse(ctx, tutorID, courseID)
	if err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, map[string]string{
			"Student":      entry.StudentName,
			"Email":        entry.StudentEmail,
			"Progress (%)": fmt.Sprintf("%.1f", entry.CompletionPercentage),
			"Enrolled At":  entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Progress (%)", "Enrolled At"},
		Rows:    rows,
	}

	stamp := time.Now().UTC().Format("20060102")
	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &RosterExport{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("roster-%s-%s.csv", courseID, stamp)}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Enrollment Roster: %s", course.Title))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &RosterExport{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("roster-%s-%s.pdf", courseID, stamp)}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// ExportRosterLink persists a rendered roster and returns a signed download
// token so the file can be fetched without resending credentials.
func (s *CourseService) ExportRosterLink(ctx context.Context, tutorID, courseID, format string) (*RosterExportLink, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}

	rendered, err := s.ExportRoster(ctx, tutorID, courseID, format)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey("exports", rendered.Filename)
	if _, err := s.files.Save(key, rendered.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist roster export")
	}

	token, expiresAt, err := s.signer.Generate(tutorID, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &RosterExportLink{
		DownloadURL: "/downloads/" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, tutorID, courseID string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TutorID != tutorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another tutor")
	}
	return course, nil
}

func (s *CourseService) findLecture(ctx context.Context, lectureID string) (*models.Lecture, string, error) {
	lecture, courseID, err := s.repo.FindLectureByID(ctx, lectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, courseID, nil
}

func (s *CourseService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
