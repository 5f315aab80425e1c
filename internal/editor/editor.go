// Package editor holds the authoring-time state of one course draft: the step list being
// edited, the active selection, and the transition back to a saved Course.
package editor

import (
	"errors"
	"fmt"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

var (
	ErrNoStepSelected  = errors.New("no step selected")
	ErrIndexOutOfRange = errors.New("step index out of range")
	ErrBlockNotFound   = errors.New("content block not found")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidValue    = errors.New("invalid field value")
	ErrCommitted       = errors.New("editor already committed")
	ErrStepNotFound    = errors.New("step not found")
)

// Defaults for steps added by hand
const (
	NewStepTitle       = "New Step"
	NewStepDescription = "Description of the step"
	NewStepActionLabel = "Complete task"
)

const noSelection = -1

// Options supply the id generators. Zero values use prefixed uuids.
type Options struct {
	CourseID util.IDFunc
	StepID   util.IDFunc
	BlockID  util.IDFunc
}

// Editor is a single-owner state machine. It is not safe for concurrent use.
type Editor struct {
	courseID  string // empty while creating a new course
	name      string
	draft     []models.StepRecord
	selected  int
	committed bool

	newCourseID util.IDFunc
	newStepID   util.IDFunc
	newBlockID  util.IDFunc
}

// New opens an editor on a copy of initial, or on an empty draft when initial is nil.
// An empty draft starts with one default step selected, otherwise the first step is selected.
func New(initial *models.Course, opts Options) *Editor {
	e := &Editor{
		selected:    noSelection,
		newCourseID: opts.CourseID,
		newStepID:   opts.StepID,
		newBlockID:  opts.BlockID,
	}
	if e.newCourseID == nil {
		e.newCourseID = util.Prefixed(util.PrefixCourse)
	}
	if e.newStepID == nil {
		e.newStepID = util.Prefixed(util.PrefixStep)
	}
	if e.newBlockID == nil {
		e.newBlockID = util.Prefixed(util.PrefixBlock)
	}

	if initial != nil {
		e.courseID = initial.ID
		e.name = initial.Name
		for _, s := range initial.Steps {
			e.draft = append(e.draft, s.Record())
		}
		e.assignStepIDs()
	}

	if len(e.draft) == 0 {
		_, _ = e.AddStep()
	} else {
		e.selected = 0
	}
	return e
}

// CourseID is the id of the course being edited, empty for a new course
func (e *Editor) CourseID() string { return e.courseID }

// IsNew reports whether commit will mint a fresh course id
func (e *Editor) IsNew() bool { return e.courseID == "" }

func (e *Editor) Name() string { return e.name }

// SetName changes the course name (the topic field)
func (e *Editor) SetName(name string) error {
	if e.committed {
		return ErrCommitted
	}
	e.name = name
	return nil
}

// Steps returns a copy of the draft
func (e *Editor) Steps() []models.StepRecord {
	out := make([]models.StepRecord, len(e.draft))
	for i, r := range e.draft {
		out[i] = r.Clone()
	}
	return out
}

// Len is the number of draft steps
func (e *Editor) Len() int { return len(e.draft) }

// Selected returns the active index and whether a step is selected
func (e *Editor) Selected() (int, bool) {
	if e.selected == noSelection {
		return 0, false
	}
	return e.selected, true
}

// ActiveStep returns a copy of the selected draft step
func (e *Editor) ActiveStep() (models.StepRecord, bool) {
	if e.selected == noSelection {
		return models.StepRecord{}, false
	}
	return e.draft[e.selected].Clone(), true
}

// AddStep appends a default action step with one text block and selects it
func (e *Editor) AddStep() (int, error) {
	if e.committed {
		return 0, ErrCommitted
	}
	step := models.StepRecord{
		ID:          e.newStepID(),
		Title:       NewStepTitle,
		Description: NewStepDescription,
		Type:        models.StepAction,
		ActionLabel: NewStepActionLabel,
		ContentBlocks: []models.ContentBlock{
			models.NewBlock(e.newBlockID(), models.BlockText),
		},
	}
	e.draft = append(e.draft, step)
	e.selected = len(e.draft) - 1
	return e.selected, nil
}

// SelectStep makes index the active step
func (e *Editor) SelectStep(index int) error {
	if e.committed {
		return ErrCommitted
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.selected = index
	return nil
}

// ClearSelection returns to the no-step-selected state
func (e *Editor) ClearSelection() {
	e.selected = noSelection
}

// DeleteStep removes draft[index] and keeps the selection on the same logical step.
// Deleting the selected step clears the selection.
func (e *Editor) DeleteStep(index int) error {
	if e.committed {
		return ErrCommitted
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.draft = append(e.draft[:index], e.draft[index+1:]...)
	switch {
	case e.selected == index:
		e.selected = noSelection
	case e.selected != noSelection && e.selected > index:
		e.selected--
	}
	return nil
}

// ReorderStep moves draft[from] to position to and remaps the selection
func (e *Editor) ReorderStep(from, to int) error {
	if e.committed {
		return ErrCommitted
	}
	if err := e.checkIndex(from); err != nil {
		return err
	}
	if err := e.checkIndex(to); err != nil {
		return err
	}
	e.draft = Reorder(e.draft, from, to)
	if e.selected != noSelection {
		e.selected = RemapSelection(e.selected, from, to)
	}
	return nil
}

// ApplyGenerated replaces the whole draft with generated steps. The first step is
// selected when there is one.
func (e *Editor) ApplyGenerated(steps []models.StepRecord) error {
	if e.committed {
		return ErrCommitted
	}
	e.draft = make([]models.StepRecord, len(steps))
	for i, s := range steps {
		e.draft[i] = s.Clone()
	}
	e.assignStepIDs()
	if len(e.draft) > 0 {
		e.selected = 0
	} else {
		e.selected = noSelection
	}
	return nil
}

// LinkTargets lists the courses a link step may point at, excluding the one being edited
func (e *Editor) LinkTargets(all []models.Course) []models.Course {
	out := make([]models.Course, 0, len(all))
	for _, c := range all {
		if e.courseID != "" && c.ID == e.courseID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// assignStepIDs gives every draft step a unique id so background work can find
// its step again after the list is reordered.
func (e *Editor) assignStepIDs() {
	seen := make(map[string]bool, len(e.draft))
	for i := range e.draft {
		if e.draft[i].ID == "" || seen[e.draft[i].ID] {
			e.draft[i].ID = e.newStepID()
		}
		seen[e.draft[i].ID] = true
	}
}

func (e *Editor) indexOf(id string) (int, error) {
	for i := range e.draft {
		if e.draft[i].ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrStepNotFound, id)
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.draft) {
		return fmt.Errorf("%w: %d (have %d steps)", ErrIndexOutOfRange, index, len(e.draft))
	}
	return nil
}
