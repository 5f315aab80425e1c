// Package progress records which steps each user has completed per course.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
)

// Tracker keeps one UserProgress record per (user, course) pair in a single JSON log
type Tracker struct {
	kv  kv.Store
	log *logger.Logger
	now func() time.Time
	mu  sync.Mutex
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source used for lastUpdated
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store kv.Store, log *logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{kv: store, log: log.With("component", "ProgressTracker"), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// All returns every progress record. A malformed log reads as empty.
func (t *Tracker) All(ctx context.Context) ([]models.UserProgress, error) {
	data, err := t.kv.Get(ctx, storage.KeyProgress)
	if errors.Is(err, kv.ErrNotFound) {
		return []models.UserProgress{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var all []models.UserProgress
	if err := json.Unmarshal(data, &all); err != nil {
		t.log.Warn("Stored progress is malformed, treating as empty", "error", err)
		return []models.UserProgress{}, nil
	}
	if all == nil {
		all = []models.UserProgress{}
	}
	return all, nil
}

// GetProgress returns the record for the pair, or nil when the user never visited the course
func (t *Tracker) GetProgress(ctx context.Context, userID, courseID string) (*models.UserProgress, error) {
	all, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(all, userID, courseID); i >= 0 {
		p := all[i].Clone()
		return &p, nil
	}
	return nil, nil
}

// Visit creates an empty record for the pair if none exists yet
func (t *Tracker) Visit(ctx context.Context, userID, courseID string) (models.UserProgress, error) {
	return t.update(ctx, userID, courseID, func(p *models.UserProgress, created bool) bool {
		if created {
			p.Touch(t.now())
		}
		return created
	})
}

// RecordCompletion adds stepID to the completed set and always refreshes lastUpdated
func (t *Tracker) RecordCompletion(ctx context.Context, userID, courseID, stepID string) (models.UserProgress, error) {
	return t.update(ctx, userID, courseID, func(p *models.UserProgress, _ bool) bool {
		p.Complete(stepID)
		p.Touch(t.now())
		return true
	})
}

// update runs fn against the pair's record under the tracker lock and saves when fn reports a change
func (t *Tracker) update(ctx context.Context, userID, courseID string, fn func(p *models.UserProgress, created bool) bool) (models.UserProgress, error) {
	if userID == "" || courseID == "" {
		return models.UserProgress{}, fmt.Errorf("user id and course id are required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.All(ctx)
	if err != nil {
		return models.UserProgress{}, err
	}

	created := false
	i := indexOf(all, userID, courseID)
	if i < 0 {
		all = append(all, models.UserProgress{UserID: userID, CourseID: courseID, CompletedStepIDs: []string{}})
		i = len(all) - 1
		created = true
	}
	if !fn(&all[i], created) {
		return all[i].Clone(), nil
	}

	data, err := json.Marshal(all)
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("encode progress: %w", err)
	}
	if err := t.kv.Set(ctx, storage.KeyProgress, data); err != nil {
		return models.UserProgress{}, fmt.Errorf("save progress: %w", err)
	}
	t.log.Debug("Progress updated", "user_id", userID, "course_id", courseID, "completed", len(all[i].CompletedStepIDs))
	return all[i].Clone(), nil
}

func indexOf(all []models.UserProgress, userID, courseID string) int {
	for i, p := range all {
		if p.UserID == userID && p.CourseID == courseID {
			return i
		}
	}
	return -1
}
