package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInFlight is returned when a keyed task is already pending or running
var ErrInFlight = errors.New("task already in flight")

// Status shows what state a task is in
type Status string

const (
	StatusPending    Status = "pending"    // waiting to start
	StatusProcessing Status = "processing" // currently running
	StatusCompleted  Status = "completed"  // finished successfully
	StatusFailed     Status = "failed"     // something went wrong
)

// Done reports whether the status is final
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task represents a background job that might take a while
type Task struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`                    // what kind of task
	Key          string      `json:"key,omitempty"`           // at most one unfinished task per key
	Status       Status      `json:"status"`                  // current state
	Progress     float32     `json:"progress"`                // 0-100 percent done
	CreatedAt    time.Time   `json:"created_at"`              // when it was queued
	StartedAt    time.Time   `json:"started_at,omitempty"`    // when processing began
	CompletedAt  time.Time   `json:"completed_at,omitempty"`  // when it finished
	Message      string      `json:"message,omitempty"`       // status updates
	ErrorMessage string      `json:"error_message,omitempty"` // what went wrong
	Result       interface{} `json:"result,omitempty"`        // final results
}

// Manager keeps track of all tasks
type Manager struct {
	tasks    map[string]*Task
	inFlight map[string]string // key -> task id
	mu       sync.RWMutex
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		tasks:    make(map[string]*Task),
		inFlight: make(map[string]string),
		now:      time.Now,
	}
}

// CreateTask makes a new task and returns its ID
func (m *Manager) CreateTask(taskType string) string {
	id, _ := m.CreateKeyedTask(taskType, "")
	return id
}

// CreateKeyedTask makes a new task unless another unfinished task holds key.
// An empty key is never guarded.
func (m *Manager) CreateKeyedTask(taskType, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key != "" {
		if id, busy := m.inFlight[key]; busy {
			return id, ErrInFlight
		}
	}

	taskID := uuid.New().String()
	m.tasks[taskID] = &Task{
		ID:        taskID,
		Type:      taskType,
		Key:       key,
		Status:    StatusPending,
		CreatedAt: m.now(),
	}
	if key != "" {
		m.inFlight[key] = taskID
	}
	return taskID, nil
}

// GetTask returns a copy of the task
func (m *Manager) GetTask(taskID string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.tasks[taskID]
	if !exists {
		return Task{}, false
	}
	return *t, true
}

// InFlight reports the unfinished task holding key, if any
func (m *Manager) InFlight(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.inFlight[key]
	return id, ok
}

// UpdateTaskStatus changes the task status
func (m *Manager) UpdateTaskStatus(taskID string, status Status) {
	m.with(taskID, func(t *Task) {
		t.Status = status
		if status == StatusProcessing && t.StartedAt.IsZero() {
			t.StartedAt = m.now()
		}
		if status.Done() {
			m.finish(t)
		}
	})
}

// UpdateTaskProgress updates how much of the task is done
func (m *Manager) UpdateTaskProgress(taskID string, progress float32, message string) {
	m.with(taskID, func(t *Task) {
		t.Progress = progress
		t.Message = message
	})
}

// SetTaskMessage updates the status message
func (m *Manager) SetTaskMessage(taskID string, message string) {
	m.with(taskID, func(t *Task) { t.Message = message })
}

// SetTaskError marks task as failed with error message
func (m *Manager) SetTaskError(taskID string, errorMessage string) {
	m.with(taskID, func(t *Task) {
		t.Status = StatusFailed
		t.ErrorMessage = errorMessage
		m.finish(t)
	})
}

// CompleteTask marks task as done with optional result data
func (m *Manager) CompleteTask(taskID string, result interface{}) {
	m.with(taskID, func(t *Task) {
		t.Status = StatusCompleted
		t.Progress = 100
		t.Result = result
		m.finish(t)
	})
}

// Run executes fn in its own goroutine and records the outcome on the task
func (m *Manager) Run(ctx context.Context, taskID string, fn func(ctx context.Context) (interface{}, error)) {
	m.UpdateTaskStatus(taskID, StatusProcessing)
	go func() {
		result, err := fn(ctx)
		if err != nil {
			m.SetTaskError(taskID, err.Error())
			return
		}
		m.CompleteTask(taskID, result)
	}()
}

// CleanupOldTasks removes finished tasks older than maxAge
func (m *Manager) CleanupOldTasks(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	cleaned := 0
	for taskID, t := range m.tasks {
		// only clean up completed or failed tasks
		if t.Status.Done() && !t.CompletedAt.IsZero() && t.CompletedAt.Before(cutoff) {
			delete(m.tasks, taskID)
			cleaned++
		}
	}
	return cleaned
}

// Clear drops every task. Running goroutines finish against missing ids harmlessly.
func (m *Manager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.tasks)
	m.tasks = make(map[string]*Task)
	m.inFlight = make(map[string]string)
	return n
}

// Counts returns the number of tasks per status
func (m *Manager) Counts() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Status]int)
	for _, t := range m.tasks {
		out[t.Status]++
	}
	return out
}

// CleanupRoutine runs cleanup on a schedule until ctx is done. onClean is called when
// something was removed.
func (m *Manager) CleanupRoutine(ctx context.Context, interval, maxAge time.Duration, onClean func(n int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cleaned := m.CleanupOldTasks(maxAge); cleaned > 0 && onClean != nil {
				onClean(cleaned)
			}
		}
	}
}

func (m *Manager) with(taskID string, fn func(t *Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, exists := m.tasks[taskID]; exists {
		fn(t)
	}
}

// finish stamps completion and releases the key. Caller holds mu.
func (m *Manager) finish(t *Task) {
	t.CompletedAt = m.now()
	if t.Key != "" && m.inFlight[t.Key] == t.ID {
		delete(m.inFlight, t.Key)
	}
}
