package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

// StepPatch is a shallow merge into a draft step. Nil fields are left alone.
type StepPatch struct {
	Title          *string                `json:"title,omitempty"`
	Description    *string                `json:"description,omitempty"`
	ContentBlocks  *[]models.ContentBlock `json:"contentBlocks,omitempty"`
	Type           *models.StepType       `json:"type,omitempty"`
	SOPContent     *string                `json:"sopContent,omitempty"`
	MediaType      *models.MediaType      `json:"mediaType,omitempty"`
	VideoURL       *string                `json:"videoUrl,omitempty"`
	ImageURL       *string                `json:"imageUrl,omitempty"`
	EmbedURL       *string                `json:"embedUrl,omitempty"`
	ActionLabel    *string                `json:"actionLabel,omitempty"`
	FileURL        *string                `json:"fileUrl,omitempty"`
	FileName       *string                `json:"fileName,omitempty"`
	LinkedCourseID *string                `json:"linkedCourseId,omitempty"`
}

func (p StepPatch) validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: step type %q", ErrInvalidValue, *p.Type)
	}
	return nil
}

// apply merges the set fields. Fields belonging to other step kinds are kept so a
// type switch back restores them.
func (p StepPatch) apply(r *models.StepRecord) {
	setString(&r.Title, p.Title)
	setString(&r.Description, p.Description)
	setString(&r.SOPContent, p.SOPContent)
	setString(&r.VideoURL, p.VideoURL)
	setString(&r.ImageURL, p.ImageURL)
	setString(&r.EmbedURL, p.EmbedURL)
	setString(&r.ActionLabel, p.ActionLabel)
	setString(&r.FileURL, p.FileURL)
	setString(&r.FileName, p.FileName)
	setString(&r.LinkedCourseID, p.LinkedCourseID)
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.MediaType != nil {
		r.MediaType = *p.MediaType
	}
	if p.ContentBlocks != nil {
		blocks := make([]models.ContentBlock, len(*p.ContentBlocks))
		for i, b := range *p.ContentBlocks {
			blocks[i] = b.Clone()
		}
		r.ContentBlocks = blocks
	}
}

// BlockPatch is a shallow merge into one content block
type BlockPatch struct {
	Type             *models.BlockType    `json:"type,omitempty"`
	Content          *string              `json:"content,omitempty"`
	AlertVariant     *models.AlertVariant `json:"alertVariant,omitempty"`
	QuizQuestion     *string              `json:"quizQuestion,omitempty"`
	QuizOptions      *[]string            `json:"quizOptions,omitempty"`
	QuizCorrectIndex *int                 `json:"quizCorrectIndex,omitempty"`
}

func (p BlockPatch) validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: block type %q", ErrInvalidValue, *p.Type)
	}
	if p.AlertVariant != nil && !p.AlertVariant.Valid() {
		return fmt.Errorf("%w: alert variant %q", ErrInvalidValue, *p.AlertVariant)
	}
	if p.QuizCorrectIndex != nil && *p.QuizCorrectIndex < 0 {
		return fmt.Errorf("%w: quiz correct index %d", ErrInvalidValue, *p.QuizCorrectIndex)
	}
	return nil
}

func (p BlockPatch) apply(b *models.ContentBlock) {
	if p.Type != nil {
		b.Type = *p.Type
	}
	setString(&b.Content, p.Content)
	setString(&b.QuizQuestion, p.QuizQuestion)
	if p.AlertVariant != nil {
		b.AlertVariant = *p.AlertVariant
	}
	if p.QuizOptions != nil {
		b.QuizOptions = append([]string{}, (*p.QuizOptions)...)
	}
	if p.QuizCorrectIndex != nil {
		b.QuizCorrectIndex = models.IntPtr(*p.QuizCorrectIndex)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// decodeField turns a single (field, value) pair into a patch of type T using the
// persisted JSON field names. Unknown fields and mistyped values are rejected.
func decodeField[T any](field string, value any) (T, error) {
	var patch T
	field = strings.TrimSpace(field)
	if field == "" {
		return patch, fmt.Errorf("%w: empty field name", ErrUnknownField)
	}
	raw, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return patch, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return decodePatch[T](raw)
}

func decodePatch[T any](raw []byte) (T, error) {
	var patch T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return patch, fmt.Errorf("%w: %s", ErrInvalidValue, typeErr.Field)
		}
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return patch, fmt.Errorf("%w: %s", ErrUnknownField, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return patch, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return patch, nil
}

// DecodeStepPatch parses a JSON object of step fields
func DecodeStepPatch(raw []byte) (StepPatch, error) {
	return decodePatch[StepPatch](raw)
}

// DecodeBlockPatch parses a JSON object of block fields
func DecodeBlockPatch(raw []byte) (BlockPatch, error) {
	return decodePatch[BlockPatch](raw)
}

// UpdateActiveStepField merges value into the active step at field, where field is the
// persisted JSON name such as "videoUrl". Without a selection nothing changes and
// ErrNoStepSelected is returned.
func (e *Editor) UpdateActiveStepField(field string, value any) error {
	patch, err := decodeField[StepPatch](field, value)
	if err != nil {
		return err
	}
	return e.UpdateActiveStep(patch)
}

// UpdateActiveStep merges patch into the active step
func (e *Editor) UpdateActiveStep(patch StepPatch) error {
	if e.committed {
		return ErrCommitted
	}
	if e.selected == noSelection {
		return ErrNoStepSelected
	}
	if err := patch.validate(); err != nil {
		return err
	}
	patch.apply(&e.draft[e.selected])
	return nil
}

// UpdateStep merges patch into the step with the given id without touching the
// selection. It fails with ErrStepNotFound once that step has been deleted.
func (e *Editor) UpdateStep(id string, patch StepPatch) error {
	if e.committed {
		return ErrCommitted
	}
	index, err := e.indexOf(id)
	if err != nil {
		return err
	}
	if err := patch.validate(); err != nil {
		return err
	}
	patch.apply(&e.draft[index])
	return nil
}

// InsertDescriptionText replaces description[start:end] of the active step with text.
// Offsets are in runes and clamped to the description.
func (e *Editor) InsertDescriptionText(start, end int, text string) error {
	if e.committed {
		return ErrCommitted
	}
	if e.selected == noSelection {
		return ErrNoStepSelected
	}
	desc := []rune(e.draft[e.selected].Description)
	start = clamp(start, 0, len(desc))
	end = clamp(end, start, len(desc))
	e.draft[e.selected].Description = string(desc[:start]) + text + string(desc[end:])
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
