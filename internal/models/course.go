package models

// Course is an ordered sequence of steps. Order defines navigation.
type Course struct {
	ID    string `json:"id"`   // assigned at creation, immutable
	Name  string `json:"name"` // shown in lists and the player title
	Steps []Step `json:"steps"`
}

// Fallbacks applied when a draft is saved with missing fields
const (
	DefaultStepTitle  = "Untitled Step"
	DefaultStepType   = StepAction
	DefaultCourseName = "New Course"
)

// StepIndex returns the position of the step with the given id, or -1
func (c Course) StepIndex(stepID string) int {
	for i, s := range c.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

// Clone deep-copies the course so callers can hand it out as immutable
func (c Course) Clone() Course {
	out := Course{ID: c.ID, Name: c.Name}
	if c.Steps != nil {
		out.Steps = make([]Step, len(c.Steps))
		for i, s := range c.Steps {
			out.Steps[i] = StepFromRecord(s.Record())
		}
	}
	return out
}

// FindCourse looks a course up by id in a collection
func FindCourse(courses []Course, id string) (Course, bool) {
	for _, c := range courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

// NormalizeStep turns a partial record into a canonical step. Missing id, title and type
// get fallbacks, isCompleted is reset and blocks are repaired. Nothing here rejects a save.
func NormalizeStep(r StepRecord, fallbackID string, newBlockID func() string) Step {
	r = r.Clone()
	if r.ID == "" {
		r.ID = fallbackID
	}
	if r.Title == "" {
		r.Title = DefaultStepTitle
	}
	if !r.Type.Valid() {
		r.Type = DefaultStepType
	}
	r.IsCompleted = nil

	seen := make(map[string]bool, len(r.ContentBlocks))
	for i, b := range r.ContentBlocks {
		b = NormalizeBlock(b, newBlockID)
		if seen[b.ID] {
			b.ID = newBlockID()
		}
		seen[b.ID] = true
		r.ContentBlocks[i] = b
	}

	s := StepFromRecord(r)
	s.IsCompleted = false
	return s
}
