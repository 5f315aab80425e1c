package services

import (
	"context"
	"fmt"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/progress"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
	"github.com/NeroQue/onboarding-flow-backend/pkg/session"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
)

// AdminService handles administrative operations like factory reset
type AdminService struct {
	Namespace *kv.Namespace
	Store     *storage.CourseStore
	Tracker   *progress.Tracker
	Reviews   *storage.ReviewLog
	Editors   *session.Store[*EditorSession]
	Players   *session.Store[*PlayerSession]
	Tasks     *task.Manager

	log *logger.Logger
}

// NewAdminService creates admin service with its dependencies
func NewAdminService(ns *kv.Namespace, store *storage.CourseStore, tracker *progress.Tracker, reviews *storage.ReviewLog,
	editors *session.Store[*EditorSession], players *session.Store[*PlayerSession], tasks *task.Manager, log *logger.Logger) *AdminService {
	return &AdminService{
		Namespace: ns,
		Store:     store,
		Tracker:   tracker,
		Reviews:   reviews,
		Editors:   editors,
		Players:   players,
		Tasks:     tasks,
		log:       log.With("component", "AdminService"),
	}
}

// ResetResult says how much a factory reset removed
type ResetResult struct {
	Keys     int `json:"keys"`
	Sessions int `json:"sessions"`
	Tasks    int `json:"tasks"`
}

// FactoryReset clears every key in the namespace plus all sessions and tasks.
// The next course load falls back to the seed course.
func (s *AdminService) FactoryReset(ctx context.Context) (ResetResult, error) {
	s.log.Warn("Starting factory reset", "namespace", s.Namespace.Name())

	keys, err := s.Namespace.Clear(ctx)
	if err != nil {
		return ResetResult{}, fmt.Errorf("failed to clear store: %w", err)
	}

	// sessions point at data that no longer exists
	res := ResetResult{Keys: keys}
	res.Sessions = s.Editors.Clear() + s.Players.Clear()
	res.Tasks = s.Tasks.Clear()

	s.log.Info("Factory reset completed", "keys", res.Keys, "sessions", res.Sessions, "tasks", res.Tasks)
	return res, nil
}

// Stats returns basic counts about what is stored and running
func (s *AdminService) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	courses, err := s.Store.Load(ctx)
	if err != nil {
		s.log.Warn("Couldn't count courses", "error", err)
		stats["courses"] = -1
	} else {
		stats["courses"] = len(courses)
	}

	records, err := s.Tracker.All(ctx)
	if err != nil {
		s.log.Warn("Couldn't count progress records", "error", err)
		stats["progress_records"] = -1
	} else {
		stats["progress_records"] = len(records)
	}

	reviews, err := s.Reviews.All(ctx)
	if err != nil {
		s.log.Warn("Couldn't count reviews", "error", err)
		stats["reviews"] = -1
	} else {
		stats["reviews"] = len(reviews)
	}

	stats["editor_sessions"] = s.Editors.Len()
	stats["player_sessions"] = s.Players.Len()
	for status, n := range s.Tasks.Counts() {
		stats["tasks_"+string(status)] = n
	}
	return stats, nil
}
