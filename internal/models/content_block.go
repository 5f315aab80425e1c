package models

import (
	"errors"
	"fmt"
)

// BlockType is the kind of a rich content block inside a step
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockAlert BlockType = "alert"
	BlockQuiz  BlockType = "quiz"
)

// Valid reports whether t is a known block type
func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockAlert, BlockQuiz:
		return true
	}
	return false
}

// AlertVariant controls how an alert block is styled
type AlertVariant string

const (
	AlertInfo    AlertVariant = "info"
	AlertWarning AlertVariant = "warning"
	AlertSuccess AlertVariant = "success"
	AlertDanger  AlertVariant = "danger"
)

// Valid reports whether v is a known alert variant
func (v AlertVariant) Valid() bool {
	switch v {
	case AlertInfo, AlertWarning, AlertSuccess, AlertDanger:
		return true
	}
	return false
}

// ContentBlock is the atomic unit of step content. Blocks belong to exactly one step.
type ContentBlock struct {
	ID   string    `json:"id"`   // unique within the parent step
	Type BlockType `json:"type"` // text, alert or quiz

	Content      string       `json:"content,omitempty"`      // text & alert body
	AlertVariant AlertVariant `json:"alertVariant,omitempty"` // alert only

	// quiz only
	QuizQuestion     string   `json:"quizQuestion,omitempty"`
	QuizOptions      []string `json:"quizOptions,omitempty"`
	QuizCorrectIndex *int     `json:"quizCorrectIndex,omitempty"`
}

var (
	ErrBlockID          = errors.New("block id is required")
	ErrBlockType        = errors.New("unknown block type")
	ErrQuizOptions      = errors.New("quiz needs at least one option")
	ErrQuizCorrectIndex = errors.New("quiz correct index out of range")
	ErrAlertVariant     = errors.New("unknown alert variant")
)

// Validate checks the block invariants without changing anything
func (b ContentBlock) Validate() error {
	if b.ID == "" {
		return ErrBlockID
	}
	if !b.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrBlockType, b.Type)
	}
	switch b.Type {
	case BlockAlert:
		if b.AlertVariant != "" && !b.AlertVariant.Valid() {
			return fmt.Errorf("%w: %q", ErrAlertVariant, b.AlertVariant)
		}
	case BlockQuiz:
		if len(b.QuizOptions) == 0 {
			return ErrQuizOptions
		}
		idx := b.CorrectIndex()
		if idx < 0 || idx >= len(b.QuizOptions) {
			return fmt.Errorf("%w: %d of %d", ErrQuizCorrectIndex, idx, len(b.QuizOptions))
		}
	}
	return nil
}

// CorrectIndex returns the quiz answer index, 0 when unset
func (b ContentBlock) CorrectIndex() int {
	if b.QuizCorrectIndex == nil {
		return 0
	}
	return *b.QuizCorrectIndex
}

// Variant returns the alert variant with the info default applied
func (b ContentBlock) Variant() AlertVariant {
	if b.AlertVariant == "" || !b.AlertVariant.Valid() {
		return AlertInfo
	}
	return b.AlertVariant
}

// Clone returns a deep copy so drafts never share option slices
func (b ContentBlock) Clone() ContentBlock {
	out := b
	if b.QuizOptions != nil {
		out.QuizOptions = append([]string(nil), b.QuizOptions...)
	}
	if b.QuizCorrectIndex != nil {
		idx := *b.QuizCorrectIndex
		out.QuizCorrectIndex = &idx
	}
	return out
}

// Placeholder texts used for new blocks and for repairing invalid quizzes
const (
	PlaceholderAlertContent = "Important: read this carefully before continuing."
	PlaceholderQuizQuestion = "What is the right answer?"
	PlaceholderQuizOption1  = "Option 1"
	PlaceholderQuizOption2  = "Option 2"
)

// NewBlock builds a block of the given type with type-appropriate defaults
func NewBlock(id string, t BlockType) ContentBlock {
	b := ContentBlock{ID: id, Type: t}
	switch t {
	case BlockAlert:
		b.AlertVariant = AlertWarning
		b.Content = PlaceholderAlertContent
	case BlockQuiz:
		b.QuizQuestion = PlaceholderQuizQuestion
		b.QuizOptions = []string{PlaceholderQuizOption1, PlaceholderQuizOption2}
		b.QuizCorrectIndex = IntPtr(0)
	}
	return b
}

// NormalizeBlock repairs a block so it satisfies Validate. Missing ids come from newID.
// Unknown types degrade to text so no authored content is lost.
func NormalizeBlock(b ContentBlock, newID func() string) ContentBlock {
	out := b.Clone()
	if out.ID == "" {
		out.ID = newID()
	}
	if !out.Type.Valid() {
		out.Type = BlockText
	}
	switch out.Type {
	case BlockAlert:
		out.AlertVariant = out.Variant()
	case BlockQuiz:
		if len(out.QuizOptions) == 0 {
			out.QuizOptions = []string{PlaceholderQuizOption1, PlaceholderQuizOption2}
		}
		idx := out.CorrectIndex()
		if idx < 0 || idx >= len(out.QuizOptions) {
			idx = 0
		}
		out.QuizCorrectIndex = IntPtr(idx)
	}
	return out
}

// IntPtr is a small helper for optional integer fields
func IntPtr(v int) *int { return &v }
