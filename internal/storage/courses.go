package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
)

// CourseStore loads and saves the course collection and the global settings
type CourseStore struct {
	kv  kv.Store
	log *logger.Logger
	mu  sync.Mutex // serialises read-modify-write helpers within this process
}

func NewCourseStore(store kv.Store, log *logger.Logger) *CourseStore {
	return &CourseStore{kv: store, log: log.With("component", "CourseStore")}
}

// Load returns the persisted courses, or the seed course when nothing is stored.
// Malformed data is logged and replaced by the seed rather than returned as an error.
func (s *CourseStore) Load(ctx context.Context) ([]models.Course, error) {
	data, err := s.kv.Get(ctx, KeyCourses)
	if errors.Is(err, kv.ErrNotFound) {
		return []models.Course{SeedCourse()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	var courses []models.Course
	if err := json.Unmarshal(data, &courses); err != nil || courses == nil {
		s.log.Warn("Stored courses are malformed, falling back to seed course", "error", err)
		return []models.Course{SeedCourse()}, nil
	}
	return courses, nil
}

// Save overwrites the whole collection
func (s *CourseStore) Save(ctx context.Context, courses []models.Course) error {
	if courses == nil {
		courses = []models.Course{}
	}
	data, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("encode courses: %w", err)
	}
	if err := s.kv.Set(ctx, KeyCourses, data); err != nil {
		return fmt.Errorf("save courses: %w", err)
	}
	return nil
}

// Find looks a course up by id
func (s *CourseStore) Find(ctx context.Context, id string) (models.Course, bool, error) {
	courses, err := s.Load(ctx)
	if err != nil {
		return models.Course{}, false, err
	}
	c, ok := models.FindCourse(courses, id)
	return c, ok, nil
}

// Upsert replaces the course with the same id or appends it. Returns true when appended.
func (s *CourseStore) Upsert(ctx context.Context, course models.Course) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	created := true
	for i := range courses {
		if courses[i].ID == course.ID {
			courses[i] = course
			created = false
			break
		}
	}
	if created {
		courses = append(courses, course)
	}
	return created, s.Save(ctx, courses)
}

// Delete removes the course by id. Links pointing at it are left alone.
func (s *CourseStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(courses) {
		return false, nil
	}
	return true, s.Save(ctx, kept)
}

// LoadSettings returns the stored settings or the defaults when absent or malformed
func (s *CourseStore) LoadSettings(ctx context.Context) (models.GlobalSettings, error) {
	data, err := s.kv.Get(ctx, KeySettings)
	if errors.Is(err, kv.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.GlobalSettings{}, fmt.Errorf("load settings: %w", err)
	}

	var settings models.GlobalSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		s.log.Warn("Stored settings are malformed, using defaults", "error", err)
		return models.DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings overwrites the settings record
func (s *CourseStore) SaveSettings(ctx context.Context, settings models.GlobalSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, KeySettings, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
