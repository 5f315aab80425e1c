package editor

import (
	"fmt"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

// AddBlock appends a new block of type t to the active step
func (e *Editor) AddBlock(t models.BlockType) (models.ContentBlock, error) {
	if e.committed {
		return models.ContentBlock{}, ErrCommitted
	}
	if e.selected == noSelection {
		return models.ContentBlock{}, ErrNoStepSelected
	}
	if !t.Valid() {
		return models.ContentBlock{}, fmt.Errorf("%w: block type %q", ErrInvalidValue, t)
	}
	b := models.NewBlock(e.newBlockID(), t)
	step := &e.draft[e.selected]
	step.ContentBlocks = append(step.ContentBlocks, b)
	return b.Clone(), nil
}

// UpdateBlockField merges value into one field of a block of the active step
func (e *Editor) UpdateBlockField(blockID, field string, value any) error {
	patch, err := decodeField[BlockPatch](field, value)
	if err != nil {
		return err
	}
	return e.UpdateBlock(blockID, patch)
}

// UpdateBlock merges patch into a block of the active step
func (e *Editor) UpdateBlock(blockID string, patch BlockPatch) error {
	b, err := e.findBlock(blockID)
	if err != nil {
		return err
	}
	if err := patch.validate(); err != nil {
		return err
	}
	patch.apply(b)
	return nil
}

// RemoveBlock deletes a block of the active step
func (e *Editor) RemoveBlock(blockID string) error {
	if _, err := e.findBlock(blockID); err != nil {
		return err
	}
	step := &e.draft[e.selected]
	kept := step.ContentBlocks[:0]
	for _, b := range step.ContentBlocks {
		if b.ID != blockID {
			kept = append(kept, b)
		}
	}
	step.ContentBlocks = kept
	return nil
}

func (e *Editor) findBlock(blockID string) (*models.ContentBlock, error) {
	if e.committed {
		return nil, ErrCommitted
	}
	if e.selected == noSelection {
		return nil, ErrNoStepSelected
	}
	blocks := e.draft[e.selected].ContentBlocks
	for i := range blocks {
		if blocks[i].ID == blockID {
			return &blocks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
}
