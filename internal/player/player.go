// Package player drives a learner through one course: the current step pointer, the
// short transition between steps, completion tracking and the review gate at the end.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

var (
	ErrNotViewing      = errors.New("player is not viewing a step")
	ErrNotAtReviewGate = errors.New("player is not at the review gate")
	ErrDeadLink        = errors.New("linked course not found")
	ErrNotLinkStep     = errors.New("current step is not a link step")
	ErrStepIncomplete  = errors.New("step must be interacted with before advancing")
)

// State is the player's position in its state machine
type State int

const (
	Viewing State = iota
	Transitioning
	ReviewGate
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Transitioning:
		return "transitioning"
	case ReviewGate:
		return "review_gate"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProgressRecorder is the part of the progress tracker the player writes through
type ProgressRecorder interface {
	Visit(ctx context.Context, userID, courseID string) (models.UserProgress, error)
	RecordCompletion(ctx context.Context, userID, courseID, stepID string) (models.UserProgress, error)
	GetProgress(ctx context.Context, userID, courseID string) (*models.UserProgress, error)
}

// CourseResolver looks up link targets
type CourseResolver interface {
	Find(ctx context.Context, id string) (models.Course, bool, error)
}

// AfterFunc runs f once after d. The transition timer is never cancelled.
type AfterFunc func(d time.Duration, f func())

func timeAfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Config holds the behaviour switches
type Config struct {
	TransitionDelay time.Duration
	// HardGates lists step types that need MarkInteracted before Advance
	HardGates []models.StepType
	// ResumeAtFirstIncomplete starts at the first step not yet completed instead of step 0
	ResumeAtFirstIncomplete bool
}

// Deps are the collaborators a player needs
type Deps struct {
	Progress ProgressRecorder
	Courses  CourseResolver
	Log      *logger.Logger
	After    AfterFunc // nil uses time.AfterFunc
}

// Player is safe for concurrent use; the transition timer fires on its own goroutine.
type Player struct {
	mu sync.Mutex

	userID string
	course models.Course
	cfg    Config
	gates  map[models.StepType]bool

	progress ProgressRecorder
	courses  CourseResolver
	log      *logger.Logger
	after    AfterFunc

	state      State
	index      int
	target     int
	completed  map[string]bool
	interacted map[string]bool
	epoch      int // bumped on every restart so stale timer callbacks are dropped
}

// New starts a player on course at its initial step
func New(ctx context.Context, course models.Course, userID string, deps Deps, cfg Config) *Player {
	p := &Player{
		userID:   userID,
		cfg:      cfg,
		gates:    make(map[models.StepType]bool, len(cfg.HardGates)),
		progress: deps.Progress,
		courses:  deps.Courses,
		log:      deps.Log,
		after:    deps.After,
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	p.log = p.log.With("component", "Player")
	if p.after == nil {
		p.after = timeAfterFunc
	}
	for _, t := range cfg.HardGates {
		p.gates[t] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.restart(ctx, course)
	return p
}

// restart reinitialises against course with progress reloaded. Caller holds mu.
func (p *Player) restart(ctx context.Context, course models.Course) {
	p.course = course.Clone()
	p.epoch++
	p.state = Viewing
	p.target = 0
	p.completed = map[string]bool{}
	p.interacted = map[string]bool{}

	if p.progress != nil {
		if _, err := p.progress.Visit(ctx, p.userID, p.course.ID); err != nil {
			p.log.Warn("Failed to record course visit", "course_id", p.course.ID, "error", err)
		}
		rec, err := p.progress.GetProgress(ctx, p.userID, p.course.ID)
		if err != nil {
			p.log.Warn("Failed to load progress", "course_id", p.course.ID, "error", err)
		} else if rec != nil {
			for _, id := range rec.CompletedStepIDs {
				p.completed[id] = true
			}
		}
	}

	p.index = 0
	if p.cfg.ResumeAtFirstIncomplete {
		for i, s := range p.course.Steps {
			if !p.completed[s.ID] {
				p.index = i
				break
			}
		}
	}
}

// State returns the current state and step index
func (p *Player) State() (State, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.index
}

// Course returns the course being played
func (p *Player) Course() models.Course {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.course.Clone()
}

// UserID is the learner this player records progress for
func (p *Player) UserID() string { return p.userID }

// CurrentStep returns the step being viewed
func (p *Player) CurrentStep() (models.Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == ReviewGate || p.index >= len(p.course.Steps) {
		return models.Step{}, false
	}
	return p.course.Steps[p.index], true
}

// MarkInteracted records that the learner watched or checked the current step.
// Only matters for hard-gated step types.
func (p *Player) MarkInteracted() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Viewing || p.index >= len(p.course.Steps) {
		return ErrNotViewing
	}
	p.interacted[p.course.Steps[p.index].ID] = true
	return nil
}

// Advance completes the current step and moves on. The last step leads to the review
// gate. Calling Advance while a transition is running does nothing.
func (p *Player) Advance(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Transitioning:
		return nil
	case ReviewGate:
		return ErrNotViewing
	}

	if len(p.course.Steps) == 0 {
		p.state = ReviewGate
		return nil
	}

	step := p.course.Steps[p.index]
	if p.gates[step.Type()] && !p.interacted[step.ID] && !p.completed[step.ID] {
		return fmt.Errorf("%w: %s step %q", ErrStepIncomplete, step.Type(), step.ID)
	}
	p.complete(ctx, step.ID)

	if p.index == len(p.course.Steps)-1 {
		p.state = ReviewGate
		return nil
	}

	p.state = Transitioning
	p.target = p.index + 1
	if p.cfg.TransitionDelay <= 0 {
		p.finish()
		return nil
	}
	epoch := p.epoch
	p.after(p.cfg.TransitionDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.epoch != epoch || p.state != Transitioning {
			return
		}
		p.finish()
	})
	return nil
}

func (p *Player) finish() {
	p.state = Viewing
	p.index = p.target
}

// complete records the step. Tracker failures are logged and do not stop navigation.
func (p *Player) complete(ctx context.Context, stepID string) {
	p.completed[stepID] = true
	if p.progress == nil {
		return
	}
	if _, err := p.progress.RecordCompletion(ctx, p.userID, p.course.ID, stepID); err != nil {
		p.log.Error("Failed to record step completion", "course_id", p.course.ID, "step_id", stepID, "error", err)
	}
}

// FollowLink completes the current link step and restarts the player on the linked
// course. An empty target uses the step's own linkedCourseId. The step counts as
// completed even when the target no longer exists; that case returns ErrDeadLink
// and leaves the player on the link step.
func (p *Player) FollowLink(ctx context.Context, target string) (models.Course, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Viewing || p.index >= len(p.course.Steps) {
		return models.Course{}, ErrNotViewing
	}
	step := p.course.Steps[p.index]
	if target == "" {
		link, ok := step.Body.(models.LinkBody)
		if !ok {
			return models.Course{}, ErrNotLinkStep
		}
		target = link.CourseID
	}

	p.complete(ctx, step.ID)
	next, ok := p.resolve(ctx, target)
	if !ok {
		return models.Course{}, fmt.Errorf("%w: %q", ErrDeadLink, target)
	}

	p.log.Info("Following course link", "from", p.course.ID, "to", next.ID)
	p.restart(ctx, next)
	return p.course.Clone(), nil
}

// ResetAfterReview leaves the review gate and starts the same course over
func (p *Player) ResetAfterReview(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ReviewGate {
		return ErrNotAtReviewGate
	}
	p.restart(ctx, p.course)
	return nil
}

func (p *Player) resolve(ctx context.Context, id string) (models.Course, bool) {
	if id == "" || p.courses == nil {
		return models.Course{}, false
	}
	c, ok, err := p.courses.Find(ctx, id)
	if err != nil {
		p.log.Warn("Failed to resolve linked course", "course_id", id, "error", err)
		return models.Course{}, false
	}
	return c, ok
}
