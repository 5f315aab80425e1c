package editor

import (
	"strings"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

// Commit builds the course and closes the editor
func (e *Editor) Commit() (models.Course, error) {
	course, err := e.Build()
	if err != nil {
		return models.Course{}, err
	}
	e.MarkCommitted(course)
	return course, nil
}

// Build normalizes every draft step into a canonical Step and returns the course
// without closing the editor. Missing ids, titles and types get fallbacks, step
// ids are made unique and the course keeps its id when editing.
func (e *Editor) Build() (models.Course, error) {
	if e.committed {
		return models.Course{}, ErrCommitted
	}

	id := e.courseID
	if id == "" {
		id = e.newCourseID()
	}
	name := strings.TrimSpace(e.name)
	if name == "" {
		name = models.DefaultCourseName
	}

	steps := make([]models.Step, 0, len(e.draft))
	seen := make(map[string]bool, len(e.draft))
	for _, r := range e.draft {
		if seen[r.ID] {
			r.ID = ""
		}
		fallback := ""
		if r.ID == "" {
			fallback = e.newStepID()
		}
		s := models.NormalizeStep(r, fallback, e.newBlockID)
		seen[s.ID] = true
		steps = append(steps, s)
	}

	return models.Course{ID: id, Name: name, Steps: steps}, nil
}

// MarkCommitted closes the editor once course has been saved. Later mutations
// fail with ErrCommitted.
func (e *Editor) MarkCommitted(course models.Course) {
	e.committed = true
	e.courseID = course.ID
	e.selected = noSelection
}
