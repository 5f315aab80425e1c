package editor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

func testOptions() Options {
	return Options{
		CourseID: util.Sequence("course"),
		StepID:   util.Sequence("step"),
		BlockID:  util.Sequence("block"),
	}
}

func threeStepCourse() *models.Course {
	return &models.Course{
		ID:   "c1",
		Name: "Welcome",
		Steps: []models.Step{
			{ID: "a", Title: "A", Body: models.ActionBody{Label: "Done"}},
			{ID: "b", Title: "B", Body: models.VideoBody{MediaType: models.MediaYouTube, VideoURL: "xyz"}},
			{ID: "c", Title: "C", Body: models.SOPBody{Content: "# SOP"}},
		},
	}
}

func stepIDs(e *Editor) []string {
	var ids []string
	for _, s := range e.Steps() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestNewSelectsFirstStep(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	if idx, ok := e.Selected(); !ok || idx != 0 {
		t.Fatalf("Selected = %d, %v; want 0, true", idx, ok)
	}
	if e.IsNew() {
		t.Error("editing an existing course reported IsNew")
	}
}

func TestNewEmptyDraftAddsDefaultStep(t *testing.T) {
	e := New(nil, testOptions())
	if e.Len() != 1 {
		t.Fatalf("Len = %d, want 1", e.Len())
	}
	idx, ok := e.Selected()
	if !ok || idx != 0 {
		t.Fatalf("Selected = %d, %v; want 0, true", idx, ok)
	}
	step, _ := e.ActiveStep()
	if step.Type != models.StepAction || step.Title != NewStepTitle || step.ActionLabel != NewStepActionLabel {
		t.Errorf("default step = %+v", step)
	}
	if len(step.ContentBlocks) != 1 || step.ContentBlocks[0].Type != models.BlockText || step.ContentBlocks[0].Content != "" {
		t.Errorf("default step blocks = %+v, want one empty text block", step.ContentBlocks)
	}
}

func TestAddStepSelectsIt(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	idx, err := e.AddStep()
	if err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if idx != 3 || e.Len() != 4 {
		t.Fatalf("AddStep = %d with %d steps", idx, e.Len())
	}
	if sel, _ := e.Selected(); sel != 3 {
		t.Errorf("Selected = %d, want 3", sel)
	}
}

func TestSelectStepBounds(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	for _, idx := range []int{-1, 3, 10} {
		if err := e.SelectStep(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SelectStep(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if err := e.SelectStep(2); err != nil {
		t.Fatalf("SelectStep(2): %v", err)
	}
	if sel, _ := e.Selected(); sel != 2 {
		t.Errorf("Selected = %d, want 2", sel)
	}
}

func TestDeleteStep(t *testing.T) {
	t.Run("selected step clears selection", func(t *testing.T) {
		e := New(threeStepCourse(), testOptions())
		_ = e.SelectStep(1)
		if err := e.DeleteStep(1); err != nil {
			t.Fatalf("DeleteStep: %v", err)
		}
		if _, ok := e.Selected(); ok {
			t.Error("selection survived deleting the selected step")
		}
		if got := stepIDs(e); !reflect.DeepEqual(got, []string{"a", "c"}) {
			t.Errorf("steps = %v", got)
		}
	})

	t.Run("earlier step shifts selection down", func(t *testing.T) {
		e := New(threeStepCourse(), testOptions())
		_ = e.SelectStep(1)
		if err := e.DeleteStep(0); err != nil {
			t.Fatalf("DeleteStep: %v", err)
		}
		idx, ok := e.Selected()
		if !ok || idx != 0 {
			t.Fatalf("Selected = %d, %v; want 0, true", idx, ok)
		}
		if step, _ := e.ActiveStep(); step.ID != "b" {
			t.Errorf("active step = %s, want b", step.ID)
		}
	})

	t.Run("later step keeps selection", func(t *testing.T) {
		e := New(threeStepCourse(), testOptions())
		_ = e.SelectStep(1)
		_ = e.DeleteStep(2)
		if idx, _ := e.Selected(); idx != 1 {
			t.Errorf("Selected = %d, want 1", idx)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		e := New(threeStepCourse(), testOptions())
		if err := e.DeleteStep(3); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("DeleteStep(3) error = %v", err)
		}
	})
}

func TestReorderStepRemapsSelection(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		from, to int
		wantIDs  []string
		wantSel  int
	}{
		{"moved step is followed", 0, 0, 2, []string{"b", "c", "a"}, 2},
		{"selection between, moving down", 1, 0, 2, []string{"b", "c", "a"}, 0},
		{"selection between, moving up", 1, 2, 0, []string{"c", "a", "b"}, 2},
		{"selection at target, moving down", 1, 0, 1, []string{"b", "a", "c"}, 0},
		{"selection outside range", 2, 0, 1, []string{"b", "a", "c"}, 2},
		{"no-op move", 1, 1, 1, []string{"a", "b", "c"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(threeStepCourse(), testOptions())
			_ = e.SelectStep(tt.selected)
			if err := e.ReorderStep(tt.from, tt.to); err != nil {
				t.Fatalf("ReorderStep: %v", err)
			}
			if got := stepIDs(e); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("steps = %v, want %v", got, tt.wantIDs)
			}
			if sel, _ := e.Selected(); sel != tt.wantSel {
				t.Errorf("Selected = %d, want %d", sel, tt.wantSel)
			}
			before := []string{"a", "b", "c"}[tt.selected]
			if step, _ := e.ActiveStep(); step.ID != before {
				t.Errorf("selection moved from %s to %s", before, step.ID)
			}
		})
	}
}

func TestReorderRoundTrip(t *testing.T) {
	orig := []string{"a", "b", "c", "d", "e"}
	for from := range orig {
		for to := range orig {
			moved := Reorder(orig, from, to)
			if moved[to] != orig[from] {
				t.Fatalf("Reorder(%d,%d) = %v, element not at target", from, to, moved)
			}
			back := Reorder(moved, to, from)
			if !reflect.DeepEqual(back, orig) {
				t.Fatalf("round trip (%d,%d) = %v, want %v", from, to, back, orig)
			}
			for sel := range orig {
				if got := RemapSelection(sel, from, to); moved[got] != orig[sel] {
					t.Fatalf("RemapSelection(%d,%d,%d) = %d points at %s, want %s", sel, from, to, got, moved[got], orig[sel])
				}
			}
		}
	}
	if !reflect.DeepEqual(orig, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("Reorder mutated its input: %v", orig)
	}
}

func TestUpdateActiveStepFieldMergesShallowly(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	_ = e.SelectStep(1)

	if err := e.UpdateActiveStepField("videoUrl", "new-id"); err != nil {
		t.Fatalf("UpdateActiveStepField: %v", err)
	}
	if err := e.UpdateActiveStepField("type", "sop"); err != nil {
		t.Fatalf("UpdateActiveStepField(type): %v", err)
	}

	step, _ := e.ActiveStep()
	if step.Title != "B" || step.MediaType != models.MediaYouTube {
		t.Errorf("unrelated fields changed: %+v", step)
	}
	if step.VideoURL != "new-id" || step.Type != models.StepSOP {
		t.Errorf("merged fields = %+v", step)
	}

	// switching back restores the video fields that were carried along
	_ = e.UpdateActiveStepField("type", "video")
	step, _ = e.ActiveStep()
	if step.VideoURL != "new-id" {
		t.Errorf("videoUrl lost across type switch: %+v", step)
	}
}

func TestUpdateActiveStepFieldErrors(t *testing.T) {
	e := New(threeStepCourse(), testOptions())

	if err := e.UpdateActiveStepField("bogus", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v", err)
	}
	if err := e.UpdateActiveStepField("id", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("id field error = %v, ids are not editable", err)
	}
	if err := e.UpdateActiveStepField("title", 42); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("mistyped value error = %v", err)
	}
	if err := e.UpdateActiveStepField("type", "hologram"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad type error = %v", err)
	}

	e.ClearSelection()
	before := e.Steps()
	if err := e.UpdateActiveStepField("title", "x"); !errors.Is(err, ErrNoStepSelected) {
		t.Errorf("no selection error = %v", err)
	}
	if !reflect.DeepEqual(before, e.Steps()) {
		t.Error("draft changed without a selection")
	}
}

func TestDecodeStepPatch(t *testing.T) {
	patch, err := DecodeStepPatch([]byte(`{"title":"T","linkedCourseId":"c9"}`))
	if err != nil {
		t.Fatalf("DecodeStepPatch: %v", err)
	}
	if patch.Title == nil || *patch.Title != "T" || patch.LinkedCourseID == nil || patch.Description != nil {
		t.Fatalf("patch = %+v", patch)
	}
	if _, err := DecodeStepPatch([]byte(`{"nope":1}`)); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v", err)
	}
}

func TestInsertDescriptionText(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	_ = e.UpdateActiveStepField("description", "hello world")

	if err := e.InsertDescriptionText(5, 5, " **big**"); err != nil {
		t.Fatalf("InsertDescriptionText: %v", err)
	}
	step, _ := e.ActiveStep()
	if step.Description != "hello **big** world" {
		t.Errorf("Description = %q", step.Description)
	}

	_ = e.InsertDescriptionText(0, 100, "replaced")
	step, _ = e.ActiveStep()
	if step.Description != "replaced" {
		t.Errorf("Description = %q", step.Description)
	}
}

func TestBlockOperations(t *testing.T) {
	e := New(threeStepCourse(), testOptions())

	text, err := e.AddBlock(models.BlockText)
	if err != nil {
		t.Fatalf("AddBlock(text): %v", err)
	}
	if text.ID == "" || text.Content != "" {
		t.Errorf("text block = %+v", text)
	}

	alert, _ := e.AddBlock(models.BlockAlert)
	if alert.AlertVariant != models.AlertWarning || alert.Content == "" {
		t.Errorf("alert block = %+v", alert)
	}

	quiz, _ := e.AddBlock(models.BlockQuiz)
	if quiz.QuizQuestion == "" || len(quiz.QuizOptions) != 2 || quiz.CorrectIndex() != 0 {
		t.Errorf("quiz block = %+v", quiz)
	}
	if text.ID == alert.ID || alert.ID == quiz.ID {
		t.Error("block ids are not unique")
	}

	if err := e.UpdateBlockField(quiz.ID, "quizCorrectIndex", 1); err != nil {
		t.Fatalf("UpdateBlockField: %v", err)
	}
	if err := e.UpdateBlockField(alert.ID, "alertVariant", "danger"); err != nil {
		t.Fatalf("UpdateBlockField: %v", err)
	}
	if err := e.UpdateBlockField(alert.ID, "alertVariant", "loud"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad variant error = %v", err)
	}

	step, _ := e.ActiveStep()
	if len(step.ContentBlocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(step.ContentBlocks))
	}
	if got := step.ContentBlocks[2]; got.CorrectIndex() != 1 || got.QuizQuestion != quiz.QuizQuestion {
		t.Errorf("quiz after merge = %+v", got)
	}
	if got := step.ContentBlocks[1]; got.AlertVariant != models.AlertDanger || got.Content != alert.Content {
		t.Errorf("alert after merge = %+v", got)
	}

	if err := e.RemoveBlock(alert.ID); err != nil {
		t.Fatalf("RemoveBlock: %v", err)
	}
	if err := e.RemoveBlock(alert.ID); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("second RemoveBlock error = %v", err)
	}
	step, _ = e.ActiveStep()
	if len(step.ContentBlocks) != 2 || step.ContentBlocks[1].ID != quiz.ID {
		t.Errorf("blocks after remove = %+v", step.ContentBlocks)
	}

	e.ClearSelection()
	if _, err := e.AddBlock(models.BlockText); !errors.Is(err, ErrNoStepSelected) {
		t.Errorf("AddBlock without selection error = %v", err)
	}
}

func TestCommitExistingCourseKeepsID(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	_ = e.SetName("Renamed")

	course, err := e.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if course.ID != "c1" || course.Name != "Renamed" {
		t.Errorf("course = %s %q", course.ID, course.Name)
	}
	if len(course.Steps) != 3 {
		t.Fatalf("got %d steps", len(course.Steps))
	}
	if course.Steps[1].Type() != models.StepVideo {
		t.Errorf("step b type = %s", course.Steps[1].Type())
	}

	if _, err := e.Commit(); !errors.Is(err, ErrCommitted) {
		t.Errorf("second Commit error = %v", err)
	}
	if err := e.SelectStep(0); !errors.Is(err, ErrCommitted) {
		t.Errorf("SelectStep after commit error = %v", err)
	}
}

func TestBuildLeavesEditorOpen(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	course, err := e.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := e.SelectStep(1); err != nil {
		t.Fatalf("SelectStep after Build: %v", err)
	}

	e.MarkCommitted(course)
	if _, err := e.Build(); !errors.Is(err, ErrCommitted) {
		t.Errorf("Build after MarkCommitted error = %v", err)
	}
	if _, ok := e.Selected(); ok {
		t.Error("selection kept after MarkCommitted")
	}
}

func TestCommitNewCourseFillsDefaults(t *testing.T) {
	e := New(nil, testOptions())
	_ = e.UpdateActiveStepField("title", "")
	_, _ = e.AddStep()
	_ = e.UpdateActiveStepField("type", "link")
	_ = e.UpdateActiveStepField("linkedCourseId", "c7")

	course, err := e.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if course.ID != "course-1" || course.Name != models.DefaultCourseName {
		t.Errorf("course = %s %q, want course-1 %q", course.ID, course.Name, models.DefaultCourseName)
	}

	first := course.Steps[0]
	if first.ID == "" || first.Title != models.DefaultStepTitle || first.IsCompleted {
		t.Errorf("first step = %+v", first)
	}
	if body, ok := course.Steps[1].Body.(models.LinkBody); !ok || body.CourseID != "c7" {
		t.Errorf("second step body = %#v", course.Steps[1].Body)
	}
}

func TestCommitProducesUniqueStepIDs(t *testing.T) {
	generated := []models.StepRecord{
		{ID: "dup", Title: "One"},
		{ID: "dup", Title: "Two"},
		{Title: "Three"},
		{Title: "Four", Type: "nonsense"},
	}
	e := New(threeStepCourse(), testOptions())
	if err := e.ApplyGenerated(generated); err != nil {
		t.Fatalf("ApplyGenerated: %v", err)
	}
	if sel, ok := e.Selected(); !ok || sel != 0 {
		t.Fatalf("Selected after generate = %d, %v", sel, ok)
	}

	course, _ := e.Commit()
	seen := map[string]bool{}
	for _, s := range course.Steps {
		if s.ID == "" || seen[s.ID] {
			t.Fatalf("duplicate or empty step id %q in %v", s.ID, course.Steps)
		}
		seen[s.ID] = true
	}
	if course.Steps[3].Type() != models.StepAction {
		t.Errorf("unknown type not defaulted: %s", course.Steps[3].Type())
	}
}

func TestApplyGeneratedEmptyClearsSelection(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	_ = e.ApplyGenerated(nil)
	if _, ok := e.Selected(); ok || e.Len() != 0 {
		t.Fatalf("empty generation left selection or steps: len=%d", e.Len())
	}
}

func TestLinkTargetsExcludeSelf(t *testing.T) {
	all := []models.Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

	got := New(threeStepCourse(), testOptions()).LinkTargets(all)
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c3" {
		t.Errorf("LinkTargets = %+v", got)
	}
	if got := New(nil, testOptions()).LinkTargets(all); len(got) != 3 {
		t.Errorf("LinkTargets for new course = %+v", got)
	}
}

func TestUpdateStepByIDKeepsSelection(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	sop := "# Generated"
	if err := e.UpdateStep("c", StepPatch{SOPContent: &sop}); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if sel, _ := e.Selected(); sel != 0 {
		t.Errorf("selection moved to %d", sel)
	}
	if got := e.Steps()[2].SOPContent; got != sop {
		t.Errorf("SOPContent = %q", got)
	}
	if err := e.UpdateStep("missing", StepPatch{}); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("UpdateStep(missing) error = %v", err)
	}
}

func TestUpdateStepFollowsReorder(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	target, _ := e.ActiveStep()
	if err := e.ReorderStep(0, 2); err != nil {
		t.Fatalf("ReorderStep: %v", err)
	}

	img := "data:image/png;base64,AAAA"
	if err := e.UpdateStep(target.ID, StepPatch{ImageURL: &img}); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	steps := e.Steps()
	if steps[2].ID != "a" || steps[2].ImageURL != img {
		t.Errorf("moved step = %s %q, want a with the image", steps[2].ID, steps[2].ImageURL)
	}
	if steps[0].ImageURL != "" || steps[1].ImageURL != "" {
		t.Errorf("image landed on another step: %+v", steps)
	}
}

func TestUpdateStepAfterDeleteFails(t *testing.T) {
	e := New(threeStepCourse(), testOptions())
	if err := e.DeleteStep(1); err != nil {
		t.Fatalf("DeleteStep: %v", err)
	}
	title := "late"
	if err := e.UpdateStep("b", StepPatch{Title: &title}); !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("UpdateStep on deleted step error = %v", err)
	}
	for _, s := range e.Steps() {
		if s.Title == title {
			t.Errorf("deleted step's update applied to %s", s.ID)
		}
	}
}

func TestDraftStepsAlwaysHaveIDs(t *testing.T) {
	e := New(nil, testOptions())
	_, _ = e.AddStep()
	_ = e.ApplyGenerated([]models.StepRecord{{ID: "x"}, {ID: "x"}, {}})
	seen := map[string]bool{}
	for _, id := range stepIDs(e) {
		if id == "" || seen[id] {
			t.Fatalf("draft ids not unique: %v", stepIDs(e))
		}
		seen[id] = true
	}

	e = New(nil, testOptions())
	_, _ = e.AddStep()
	if ids := stepIDs(e); ids[0] == "" || ids[0] == ids[1] {
		t.Errorf("added steps share an id: %v", ids)
	}
}
