package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/pkg/parser"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

// Boot views a client can land on
const (
	ViewClient  = "client"
	ViewLanding = "landing"
)

// TaskTypeImport is the task type of batch course imports
const TaskTypeImport = "course_import"

// BootResult tells the client where to start for a given courseId parameter
type BootResult struct {
	View       string         `json:"view"`
	Course     *models.Course `json:"course,omitempty"`
	StripParam bool           `json:"stripParam"` // drop the unresolvable parameter from the URL
}

// ImportResult is the outcome of a batch import task
type ImportResult struct {
	Imported []string `json:"imported"` // course ids
	Errors   []string `json:"errors,omitempty"`
}

// CourseService handles the course collection
type CourseService struct {
	Store         *storage.CourseStore
	Parser        *parser.CourseParser // nil when imports are disabled
	Tasks         *task.Manager
	PublicBaseURL string

	log         *logger.Logger
	newCourseID util.IDFunc
	newStepID   util.IDFunc
	newBlockID  util.IDFunc
}

// NewCourseService creates service with dependencies
func NewCourseService(store *storage.CourseStore, p *parser.CourseParser, tasks *task.Manager, publicBaseURL string, log *logger.Logger) *CourseService {
	return &CourseService{
		Store:         store,
		Parser:        p,
		Tasks:         tasks,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log.With("component", "CourseService"),
		newCourseID:   util.Prefixed(util.PrefixCourse),
		newStepID:     util.Prefixed(util.PrefixStep),
		newBlockID:    util.Prefixed(util.PrefixBlock),
	}
}

// ListCourses returns the whole collection
func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}
	return courses, nil
}

// GetCourse finds one course by id
func (s *CourseService) GetCourse(ctx context.Context, id string) (models.Course, error) {
	c, ok, err := s.Store.Find(ctx, id)
	if err != nil {
		return models.Course{}, fmt.Errorf("failed to load course: %w", err)
	}
	if !ok {
		return models.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
	}
	return c, nil
}

// SaveCourse replaces the course with the same id or appends it
func (s *CourseService) SaveCourse(ctx context.Context, course models.Course) (bool, error) {
	if strings.TrimSpace(course.ID) == "" {
		return false, fmt.Errorf("%w: course id is required", ErrInvalidInput)
	}
	created, err := s.Store.Upsert(ctx, course)
	if err != nil {
		return false, fmt.Errorf("failed to save course: %w", err)
	}
	s.log.Info("Course saved", "course_id", course.ID, "steps", len(course.Steps), "created", created)
	return created, nil
}

// DeleteCourse removes a course. Link steps pointing at it become dead links.
func (s *CourseService) DeleteCourse(ctx context.Context, id string) error {
	removed, err := s.Store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrCourseNotFound, id)
	}
	s.log.Info("Course deleted", "course_id", id)
	return nil
}

// ShareLink is the URL that boots a client straight into the course player
func (s *CourseService) ShareLink(ctx context.Context, id string) (string, error) {
	if _, err := s.GetCourse(ctx, id); err != nil {
		return "", err
	}
	return s.PublicBaseURL + "?courseId=" + url.QueryEscape(id), nil
}

// Boot resolves the courseId navigation parameter
func (s *CourseService) Boot(ctx context.Context, courseID string) (BootResult, error) {
	if strings.TrimSpace(courseID) == "" {
		return BootResult{View: ViewLanding}, nil
	}
	c, ok, err := s.Store.Find(ctx, courseID)
	if err != nil {
		return BootResult{}, fmt.Errorf("failed to load courses: %w", err)
	}
	if !ok {
		s.log.Debug("Shared course not found, falling back to landing", "course_id", courseID)
		return BootResult{View: ViewLanding, StripParam: true}, nil
	}
	return BootResult{View: ViewClient, Course: &c}, nil
}

// ScanImports lists the exports available in the import directory
func (s *CourseService) ScanImports() ([]parser.FileInfo, error) {
	if s.Parser == nil {
		return nil, fmt.Errorf("%w: imports are not configured", ErrInvalidInput)
	}
	if err := s.Parser.ValidateBasePath(); err != nil {
		return nil, err
	}
	return s.Parser.ListExports()
}

// ImportCourses starts a background task importing the given exports and returns its id
func (s *CourseService) ImportCourses(ctx context.Context, paths []string) (string, error) {
	if s.Parser == nil {
		return "", fmt.Errorf("%w: imports are not configured", ErrInvalidInput)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: no exports selected", ErrInvalidInput)
	}

	taskID := s.Tasks.CreateTask(TaskTypeImport)
	s.log.Info("Starting batch import", "task_id", taskID, "exports", len(paths))
	s.Tasks.Run(context.WithoutCancel(ctx), taskID, func(ctx context.Context) (interface{}, error) {
		return s.importAll(ctx, taskID, paths), nil
	})
	return taskID, nil
}

func (s *CourseService) importAll(ctx context.Context, taskID string, paths []string) ImportResult {
	result := ImportResult{Imported: []string{}}
	for i, path := range paths {
		s.Tasks.UpdateTaskProgress(taskID, float32(i)/float32(len(paths))*100, "Importing "+path)

		courses, err := s.Parser.Parse(path)
		if err != nil {
			s.log.Warn("Import failed", "path", path, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		for _, c := range courses {
			c = s.normalizeImported(c)
			if _, err := s.Store.Upsert(ctx, c); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			result.Imported = append(result.Imported, c.ID)
		}
	}
	s.log.Info("Batch import completed", "task_id", taskID, "imported", len(result.Imported), "failed", len(result.Errors))
	return result
}

// normalizeImported applies the same fallbacks a save from the editor would
func (s *CourseService) normalizeImported(c models.Course) models.Course {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = s.newCourseID()
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = models.DefaultCourseName
	}
	seen := make(map[string]bool, len(c.Steps))
	steps := make([]models.Step, 0, len(c.Steps))
	for _, step := range c.Steps {
		r := step.Record()
		if seen[r.ID] {
			r.ID = ""
		}
		fallback := ""
		if r.ID == "" {
			fallback = s.newStepID()
		}
		n := models.NormalizeStep(r, fallback, s.newBlockID)
		seen[n.ID] = true
		steps = append(steps, n)
	}
	c.Steps = steps
	return c
}
