package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/NeroQue/onboarding-flow-backend/internal/editor"
	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/pkg/session"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
)

// EditorSession guards one editor; editors are single-owner state machines
type EditorSession struct {
	mu     sync.Mutex
	editor *editor.Editor
}

// EditorView is the state returned after every editor operation
type EditorView struct {
	SessionID   string              `json:"sessionId"`
	CourseID    string              `json:"courseId,omitempty"`
	IsNew       bool                `json:"isNew"`
	Name        string              `json:"name"`
	Steps       []models.StepRecord `json:"steps"`
	Selected    *int                `json:"selected"` // null when no step is selected
	LinkTargets []CourseRef         `json:"linkTargets"`
}

// CourseRef is a course as shown in a link-target picker
type CourseRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CommitResult is returned when an editor is saved
type CommitResult struct {
	Course  models.Course `json:"course"`
	Created bool          `json:"created"`
}

// EditorService owns the open editor sessions
type EditorService struct {
	Store    *storage.CourseStore
	Sessions *session.Store[*EditorSession]
	Tasks    *task.Manager
	Gateway  generation.Gateway

	log     *logger.Logger
	options editor.Options
}

func NewEditorService(store *storage.CourseStore, sessions *session.Store[*EditorSession], tasks *task.Manager, gw generation.Gateway, log *logger.Logger) *EditorService {
	return &EditorService{
		Store:    store,
		Sessions: sessions,
		Tasks:    tasks,
		Gateway:  gw,
		log:      log.With("component", "EditorService"),
	}
}

// Open starts editing an existing course, or a new one when courseID is empty
func (s *EditorService) Open(ctx context.Context, courseID string) (EditorView, error) {
	var initial *models.Course
	if courseID != "" {
		c, ok, err := s.Store.Find(ctx, courseID)
		if err != nil {
			return EditorView{}, fmt.Errorf("failed to load course: %w", err)
		}
		if !ok {
			return EditorView{}, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
		}
		initial = &c
	}

	sess := &EditorSession{editor: editor.New(initial, s.options)}
	id := s.Sessions.Create(sess)
	s.log.Info("Editor opened", "session_id", id, "course_id", courseID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(ctx, id, sess.editor), nil
}

// View returns the current state of an editor
func (s *EditorService) View(ctx context.Context, id string) (EditorView, error) {
	return s.do(ctx, id, func(*editor.Editor) error { return nil })
}

func (s *EditorService) SetName(ctx context.Context, id, name string) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.SetName(name) })
}

func (s *EditorService) AddStep(ctx context.Context, id string) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error {
		_, err := e.AddStep()
		return err
	})
}

func (s *EditorService) SelectStep(ctx context.Context, id string, index int) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.SelectStep(index) })
}

func (s *EditorService) DeleteStep(ctx context.Context, id string, index int) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.DeleteStep(index) })
}

func (s *EditorService) ReorderStep(ctx context.Context, id string, from, to int) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.ReorderStep(from, to) })
}

// PatchActiveStep merges a JSON object of step fields into the active step
func (s *EditorService) PatchActiveStep(ctx context.Context, id string, raw []byte) (EditorView, error) {
	patch, err := editor.DecodeStepPatch(raw)
	if err != nil {
		return EditorView{}, err
	}
	return s.do(ctx, id, func(e *editor.Editor) error { return e.UpdateActiveStep(patch) })
}

// InsertText splices text into the active step's description
func (s *EditorService) InsertText(ctx context.Context, id string, start, end int, text string) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.InsertDescriptionText(start, end, text) })
}

func (s *EditorService) AddBlock(ctx context.Context, id string, t models.BlockType) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error {
		_, err := e.AddBlock(t)
		return err
	})
}

// PatchBlock merges a JSON object of block fields into a block of the active step
func (s *EditorService) PatchBlock(ctx context.Context, id, blockID string, raw []byte) (EditorView, error) {
	patch, err := editor.DecodeBlockPatch(raw)
	if err != nil {
		return EditorView{}, err
	}
	return s.do(ctx, id, func(e *editor.Editor) error { return e.UpdateBlock(blockID, patch) })
}

func (s *EditorService) RemoveBlock(ctx context.Context, id, blockID string) (EditorView, error) {
	return s.do(ctx, id, func(e *editor.Editor) error { return e.RemoveBlock(blockID) })
}

// Commit normalizes the draft, persists it and closes the session
func (s *EditorService) Commit(ctx context.Context, id string) (CommitResult, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return CommitResult{}, err
	}

	// The lock spans the save so a failed write leaves the draft open for a retry
	sess.mu.Lock()
	defer sess.mu.Unlock()
	course, err := sess.editor.Build()
	if err != nil {
		return CommitResult{}, err
	}

	created, err := s.Store.Upsert(ctx, course)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to save course: %w", err)
	}
	sess.editor.MarkCommitted(course)
	s.Sessions.Delete(id)
	s.log.Info("Editor committed", "session_id", id, "course_id", course.ID, "created", created)
	return CommitResult{Course: course, Created: created}, nil
}

// Discard closes an editor without saving
func (s *EditorService) Discard(id string) error {
	if !s.Sessions.Delete(id) {
		return session.ErrNotFound
	}
	return nil
}

func (s *EditorService) do(ctx context.Context, id string, fn func(e *editor.Editor) error) (EditorView, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return EditorView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess.editor); err != nil {
		return EditorView{}, err
	}
	return s.view(ctx, id, sess.editor), nil
}

// view snapshots the editor. Caller holds the session lock.
func (s *EditorService) view(ctx context.Context, id string, e *editor.Editor) EditorView {
	v := EditorView{
		SessionID:   id,
		CourseID:    e.CourseID(),
		IsNew:       e.IsNew(),
		Name:        e.Name(),
		Steps:       e.Steps(),
		LinkTargets: []CourseRef{},
	}
	if idx, ok := e.Selected(); ok {
		v.Selected = &idx
	}

	courses, err := s.Store.Load(ctx)
	if err != nil {
		s.log.Warn("Failed to load link targets", "error", err)
		return v
	}
	for _, c := range e.LinkTargets(courses) {
		v.LinkTargets = append(v.LinkTargets, CourseRef{ID: c.ID, Name: c.Name})
	}
	return v
}

// Generation actions an editor can run
const (
	ActionStructure = "structure"
	ActionEnhance   = "enhance"
	ActionSOP       = "sop"
	ActionImage     = "image"
	ActionVideo     = "video"
)

// TaskTypeGenerate is the task type of editor generation jobs
const TaskTypeGenerate = "generate"

// GenerateRequest carries the inputs of a generation action
type GenerateRequest struct {
	Topic       string                 `json:"topic,omitempty"`  // structure, sop
	Prompt      string                 `json:"prompt,omitempty"` // image, video
	AspectRatio generation.AspectRatio `json:"aspectRatio,omitempty"`
}

// Generate starts a generation task for the editor. Only one task per editor and action
// runs at a time. The result is merged into the draft when the task completes; a failed
// task leaves the draft untouched.
func (s *EditorService) Generate(ctx context.Context, id, action string, req GenerateRequest) (string, error) {
	if !generation.Configured(s.Gateway) {
		return "", generation.ErrNotConfigured
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return "", err
	}

	job, err := s.prepare(sess, action, req)
	if err != nil {
		return "", err
	}

	taskID, err := s.Tasks.CreateKeyedTask(TaskTypeGenerate+":"+action, id+":"+action)
	if errors.Is(err, task.ErrInFlight) {
		return taskID, fmt.Errorf("%w: %s", generation.ErrInFlight, action)
	} else if err != nil {
		return "", err
	}

	s.Tasks.SetTaskMessage(taskID, "Generating "+action)
	s.Tasks.Run(context.WithoutCancel(ctx), taskID, func(ctx context.Context) (interface{}, error) {
		result, err := job(ctx)
		if err != nil {
			s.log.Warn("Generation failed", "session_id", id, "action", action, "error", err)
			return nil, err
		}
		return result, nil
	})
	return taskID, nil
}

type generationJob func(ctx context.Context) (interface{}, error)

// prepare captures what the job needs from the editor now and returns a job that
// applies its result under the session lock later
func (s *EditorService) prepare(sess *EditorSession, action string, req GenerateRequest) (generationJob, error) {
	switch action {
	case ActionStructure, ActionEnhance, ActionSOP, ActionImage, ActionVideo:
	default:
		return nil, fmt.Errorf("%w: unknown generation action %q", ErrInvalidInput, action)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	e := sess.editor

	if action == ActionStructure {
		topic := strings.TrimSpace(req.Topic)
		if topic == "" {
			topic = strings.TrimSpace(e.Name())
		}
		if topic == "" {
			return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
		}
		return func(ctx context.Context) (interface{}, error) {
			steps, err := s.Gateway.GenerateStructure(ctx, topic)
			if err != nil {
				return nil, err
			}
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if e.Name() == "" {
				_ = e.SetName(topic)
			}
			if err := e.ApplyGenerated(steps); err != nil {
				return nil, err
			}
			return map[string]int{"steps": len(steps)}, nil
		}, nil
	}

	step, ok := e.ActiveStep()
	if !ok {
		return nil, editor.ErrNoStepSelected
	}

	// apply merges into the step that was active when the job started, wherever it
	// sits in the list by then
	apply := func(patch editor.StepPatch) error {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return e.UpdateStep(step.ID, patch)
	}

	switch action {
	case ActionEnhance:
		if strings.TrimSpace(step.Description) == "" {
			return nil, fmt.Errorf("%w: step has no description", ErrInvalidInput)
		}
		return func(ctx context.Context) (interface{}, error) {
			text, err := s.Gateway.EnhanceText(ctx, step.Description)
			if err != nil {
				return nil, err
			}
			return map[string]string{"description": text}, apply(editor.StepPatch{Description: &text})
		}, nil

	case ActionSOP:
		topic := strings.TrimSpace(req.Topic)
		if topic == "" {
			topic = strings.TrimSpace(step.Title)
		}
		if topic == "" {
			return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
		}
		return func(ctx context.Context) (interface{}, error) {
			doc, err := s.Gateway.GenerateSOPDocument(ctx, topic)
			if err != nil {
				return nil, err
			}
			kind := models.StepSOP
			return map[string]int{"length": len(doc)}, apply(editor.StepPatch{Type: &kind, SOPContent: &doc})
		}, nil

	case ActionImage:
		prompt := promptOrTitle(req.Prompt, step)
		if prompt == "" {
			return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
		}
		return func(ctx context.Context) (interface{}, error) {
			uri, err := s.Gateway.GenerateImage(ctx, prompt)
			if err != nil {
				return nil, err
			}
			if uri == "" {
				return nil, errors.New("no image was generated")
			}
			kind, media := models.StepImage, models.MediaGeneratedImage
			return map[string]bool{"image": true}, apply(editor.StepPatch{Type: &kind, MediaType: &media, ImageURL: &uri})
		}, nil

	case ActionVideo:
		prompt := promptOrTitle(req.Prompt, step)
		if prompt == "" {
			return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
		}
		ratio := req.AspectRatio
		if ratio == "" {
			ratio = generation.Landscape
		}
		if !ratio.Valid() {
			return nil, fmt.Errorf("%w: aspect ratio %q", ErrInvalidInput, ratio)
		}
		return func(ctx context.Context) (interface{}, error) {
			uri, err := s.Gateway.GenerateVideo(ctx, prompt, ratio)
			if err != nil {
				return nil, err
			}
			if uri == "" {
				return nil, errors.New("no video was generated")
			}
			kind, media := models.StepVideo, models.MediaGeneratedVideo
			return map[string]string{"videoUrl": uri}, apply(editor.StepPatch{Type: &kind, MediaType: &media, VideoURL: &uri})
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown generation action %q", ErrInvalidInput, action)
}

func promptOrTitle(prompt string, step models.StepRecord) string {
	if p := strings.TrimSpace(prompt); p != "" {
		return p
	}
	return strings.TrimSpace(step.Title)
}
