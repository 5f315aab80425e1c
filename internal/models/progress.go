package models

import "time"

// UserProgress is the completion record of one user in one course
type UserProgress struct {
	UserID           string   `json:"userId"`           // device generated id
	CourseID         string   `json:"courseId"`         // which course
	CompletedStepIDs []string `json:"completedStepIds"` // set semantics, order irrelevant
	LastUpdated      int64    `json:"lastUpdated"`      // epoch milliseconds
}

// HasCompleted reports whether the step id is in the completed set
func (p UserProgress) HasCompleted(stepID string) bool {
	for _, id := range p.CompletedStepIDs {
		if id == stepID {
			return true
		}
	}
	return false
}

// Complete adds the step id if absent and returns whether it was added
func (p *UserProgress) Complete(stepID string) bool {
	if p.HasCompleted(stepID) {
		return false
	}
	p.CompletedStepIDs = append(p.CompletedStepIDs, stepID)
	return true
}

// Touch refreshes the last update time
func (p *UserProgress) Touch(now time.Time) {
	p.LastUpdated = now.UnixMilli()
}

// UpdatedAt returns LastUpdated as a time
func (p UserProgress) UpdatedAt() time.Time {
	return time.UnixMilli(p.LastUpdated)
}

// Clone copies the record so the completed set is not shared
func (p UserProgress) Clone() UserProgress {
	out := p
	out.CompletedStepIDs = append([]string{}, p.CompletedStepIDs...)
	return out
}

// CourseStats is the per-course aggregate shown on the analytics view
type CourseStats struct {
	CourseID              string `json:"courseId"`
	CourseName            string `json:"courseName"`
	StepCount             int    `json:"stepCount"`
	ActiveUserCount       int    `json:"activeUserCount"`
	CompletionRatePercent int    `json:"completionRatePercent"`
}

// ActivityEntry is one row of the recent activity log
type ActivityEntry struct {
	UserID         string    `json:"userId"`
	CourseID       string    `json:"courseId"`
	CourseName     string    `json:"courseName"`
	CompletedSteps int       `json:"completedSteps"`
	TotalSteps     int       `json:"totalSteps"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Analytics summarises all progress records against the current course collection
type Analytics struct {
	TotalUsers     int             `json:"totalUsers"`
	TotalSessions  int             `json:"totalSessions"`
	Courses        []CourseStats   `json:"courses"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
}
