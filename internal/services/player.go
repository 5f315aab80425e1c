package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/player"
	"github.com/NeroQue/onboarding-flow-backend/internal/progress"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/pkg/session"
)

// PlayerSession is one learner walking through a course
type PlayerSession struct {
	Player *player.Player

	mu      sync.Mutex
	history []models.ChatMessage
}

// History returns a copy of the concierge conversation
func (s *PlayerSession) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

// PlayerView is the player snapshot plus the session context around it
type PlayerView struct {
	player.Snapshot
	SessionID     string `json:"sessionId"`
	UserID        string `json:"userId"`
	DocumentTitle string `json:"documentTitle"`
}

// ChatReply is the concierge answer together with the running conversation
type ChatReply struct {
	Reply   string               `json:"reply"`
	History []models.ChatMessage `json:"history"`
}

// PlayerService owns the running player sessions
type PlayerService struct {
	Store    *storage.CourseStore
	Identity *storage.DeviceIdentity
	Tracker  *progress.Tracker
	Reviews  *storage.ReviewLog
	Sessions *session.Store[*PlayerSession]
	Gateway  generation.Gateway
	Config   player.Config

	log   *logger.Logger
	after player.AfterFunc
	now   func() time.Time
}

func NewPlayerService(store *storage.CourseStore, identity *storage.DeviceIdentity, tracker *progress.Tracker, reviews *storage.ReviewLog,
	sessions *session.Store[*PlayerSession], gw generation.Gateway, cfg player.Config, log *logger.Logger) *PlayerService {
	return &PlayerService{
		Store:    store,
		Identity: identity,
		Tracker:  tracker,
		Reviews:  reviews,
		Sessions: sessions,
		Gateway:  gw,
		Config:   cfg,
		log:      log.With("component", "PlayerService"),
		now:      time.Now,
	}
}

// Start opens a player on a course. An empty userID plays as the device user.
func (s *PlayerService) Start(ctx context.Context, courseID, userID string) (PlayerView, error) {
	course, ok, err := s.Store.Find(ctx, courseID)
	if err != nil {
		return PlayerView{}, fmt.Errorf("failed to load course: %w", err)
	}
	if !ok {
		return PlayerView{}, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		if userID, err = s.Identity.UserID(ctx); err != nil {
			return PlayerView{}, fmt.Errorf("failed to resolve device user id: %w", err)
		}
	}

	p := player.New(ctx, course, userID, player.Deps{
		Progress: s.Tracker,
		Courses:  s.Store,
		Log:      s.log,
		After:    s.after,
	}, s.Config)
	sess := &PlayerSession{Player: p}
	id := s.Sessions.Create(sess)
	s.log.Info("Player started", "session_id", id, "course_id", courseID, "user_id", userID)
	return s.view(ctx, id, sess), nil
}

// Get returns the current view of a player
func (s *PlayerService) Get(ctx context.Context, id string) (PlayerView, error) {
	return s.do(ctx, id, func(*player.Player) error { return nil })
}

func (s *PlayerService) Advance(ctx context.Context, id string) (PlayerView, error) {
	return s.do(ctx, id, func(p *player.Player) error { return p.Advance(ctx) })
}

// Interact marks the current step as watched or checked
func (s *PlayerService) Interact(ctx context.Context, id string) (PlayerView, error) {
	return s.do(ctx, id, func(p *player.Player) error { return p.MarkInteracted() })
}

// FollowLink switches the session to the course the current link step points at
func (s *PlayerService) FollowLink(ctx context.Context, id, target string) (PlayerView, error) {
	return s.do(ctx, id, func(p *player.Player) error {
		_, err := p.FollowLink(ctx, target)
		return err
	})
}

// Reset starts the course over from the review gate
func (s *PlayerService) Reset(ctx context.Context, id string) (PlayerView, error) {
	return s.do(ctx, id, func(p *player.Player) error { return p.ResetAfterReview(ctx) })
}

// SubmitReview records the learner's rating. Only allowed at the review gate.
func (s *PlayerService) SubmitReview(ctx context.Context, id string, rating int, feedback string) (models.Review, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return models.Review{}, err
	}
	if state, _ := sess.Player.State(); state != player.ReviewGate {
		return models.Review{}, player.ErrNotAtReviewGate
	}

	dest, err := models.RouteReview(rating)
	if err != nil {
		return models.Review{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	review := models.Review{
		UserID:      sess.Player.UserID(),
		CourseID:    sess.Player.Course().ID,
		Rating:      rating,
		Feedback:    strings.TrimSpace(feedback),
		Destination: dest,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.Reviews.Append(ctx, review); err != nil {
		return models.Review{}, fmt.Errorf("failed to save review: %w", err)
	}
	s.log.Info("Review submitted", "session_id", id, "course_id", review.CourseID, "rating", rating, "destination", dest)
	return review, nil
}

// Chat asks the concierge about the current step. The step title and description are
// sent as context along with the conversation so far.
func (s *PlayerService) Chat(ctx context.Context, id, message string) (ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{}, generation.ErrEmptyPrompt
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return ChatReply{}, err
	}

	var stepContext string
	if step, ok := sess.Player.CurrentStep(); ok {
		stepContext = step.Title + ": " + step.Description
	}

	// one question at a time per session keeps the history ordered
	sess.mu.Lock()
	defer sess.mu.Unlock()

	reply, err := s.Gateway.Chat(ctx, message, stepContext, append([]models.ChatMessage(nil), sess.history...))
	if err != nil {
		return ChatReply{}, err
	}
	sess.history = append(sess.history,
		models.ChatMessage{Role: models.ChatUser, Text: message},
		models.ChatMessage{Role: models.ChatModel, Text: reply},
	)
	return ChatReply{Reply: reply, History: append([]models.ChatMessage(nil), sess.history...)}, nil
}

// Close ends a player session
func (s *PlayerService) Close(id string) error {
	if !s.Sessions.Delete(id) {
		return session.ErrNotFound
	}
	return nil
}

// Progress returns the record of one user in one course, nil when there is none
func (s *PlayerService) Progress(ctx context.Context, userID, courseID string) (*models.UserProgress, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("%w: userId and courseId are required", ErrInvalidInput)
	}
	return s.Tracker.GetProgress(ctx, userID, courseID)
}

// Analytics summarises every progress record against the current courses
func (s *PlayerService) Analytics(ctx context.Context) (models.Analytics, error) {
	courses, err := s.Store.Load(ctx)
	if err != nil {
		return models.Analytics{}, fmt.Errorf("failed to load courses: %w", err)
	}
	all, err := s.Tracker.All(ctx)
	if err != nil {
		return models.Analytics{}, fmt.Errorf("failed to load progress: %w", err)
	}
	return progress.Summarize(courses, all), nil
}

func (s *PlayerService) do(ctx context.Context, id string, fn func(p *player.Player) error) (PlayerView, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return PlayerView{}, err
	}
	if err := fn(sess.Player); err != nil {
		return PlayerView{}, err
	}
	return s.view(ctx, id, sess), nil
}

func (s *PlayerService) view(ctx context.Context, id string, sess *PlayerSession) PlayerView {
	snap := sess.Player.Snapshot(ctx)
	v := PlayerView{Snapshot: snap, SessionID: id, UserID: sess.Player.UserID()}

	settings, err := s.Store.LoadSettings(ctx)
	if err != nil {
		s.log.Warn("Failed to load settings", "error", err)
		settings = models.DefaultSettings()
	}
	v.DocumentTitle = settings.DocumentTitle(snap.CourseName)
	return v
}

// IsPlayerConflict reports errors caused by acting in the wrong player state
func IsPlayerConflict(err error) bool {
	return errors.Is(err, player.ErrNotViewing) ||
		errors.Is(err, player.ErrNotAtReviewGate) ||
		errors.Is(err, player.ErrStepIncomplete) ||
		errors.Is(err, player.ErrNotLinkStep)
}
