package player

import (
	"context"
	"fmt"
	"math"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

// LinkView describes where a link step leads
type LinkView struct {
	CourseID   string `json:"courseId"`
	CourseName string `json:"courseName,omitempty"`
	Dead       bool   `json:"dead"`
}

// Snapshot is what a client needs to render the player
type Snapshot struct {
	CourseID         string                `json:"courseId"`
	CourseName       string                `json:"courseName"`
	State            string                `json:"state"`
	StepIndex        int                   `json:"stepIndex"`
	TargetIndex      *int                  `json:"targetIndex,omitempty"`
	StepCount        int                   `json:"stepCount"`
	StepLabel        string                `json:"stepLabel,omitempty"`
	ProgressPercent  int                   `json:"progressPercent"`
	Step             *models.Step          `json:"step,omitempty"`
	Blocks           []models.ContentBlock `json:"blocks,omitempty"`
	PlayableURL      string                `json:"playableUrl,omitempty"`
	Link             *LinkView             `json:"link,omitempty"`
	CompletedStepIDs []string              `json:"completedStepIds"`
	HardGated        bool                  `json:"hardGated"`
	CanAdvance       bool                  `json:"canAdvance"`
}

// Snapshot captures the current view. Link targets are resolved so a deleted course
// shows up as a dead link.
func (p *Player) Snapshot(ctx context.Context) Snapshot {
	p.mu.Lock()
	snap := Snapshot{
		CourseID:         p.course.ID,
		CourseName:       p.course.Name,
		State:            p.state.String(),
		StepIndex:        p.index,
		StepCount:        len(p.course.Steps),
		CompletedStepIDs: make([]string, 0, len(p.completed)),
	}
	for _, s := range p.course.Steps {
		if p.completed[s.ID] {
			snap.CompletedStepIDs = append(snap.CompletedStepIDs, s.ID)
		}
	}
	if p.state == Transitioning {
		target := p.target
		snap.TargetIndex = &target
	}

	var link *models.LinkBody
	if p.state != ReviewGate && p.index < len(p.course.Steps) {
		step := p.course.Steps[p.index]
		snap.Step = &step
		snap.Blocks = models.EffectiveContentBlocks(step)
		snap.StepLabel = fmt.Sprintf("Step %d of %d", p.index+1, len(p.course.Steps))
		snap.ProgressPercent = int(math.Round(float64(p.index+1) / float64(len(p.course.Steps)) * 100))
		snap.HardGated = p.gates[step.Type()]
		snap.CanAdvance = p.state == Viewing && (!snap.HardGated || p.interacted[step.ID] || p.completed[step.ID])

		switch body := step.Body.(type) {
		case models.VideoBody:
			snap.PlayableURL = body.PlayableURL()
		case models.LinkBody:
			link = &body
		}
	}
	if p.state == ReviewGate {
		snap.ProgressPercent = 100
	}
	p.mu.Unlock()

	if link != nil {
		view := &LinkView{CourseID: link.CourseID, Dead: true}
		if c, ok := p.resolve(ctx, link.CourseID); ok {
			view.CourseName = c.Name
			view.Dead = false
		}
		snap.Link = view
	}
	return snap
}
