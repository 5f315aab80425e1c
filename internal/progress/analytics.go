package progress

import (
	"math"
	"sort"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

// DeletedCourseName labels activity for a course that no longer exists
const DeletedCourseName = "Deleted Course"

// Aggregate is the per-course summary of all sessions
type Aggregate struct {
	ActiveUserCount       int `json:"activeUserCount"`
	CompletionRatePercent int `json:"completionRatePercent"`
}

// AggregateForCourse counts the sessions for the course and the share of them that
// completed as many steps as the course has. Zero sessions yield a 0% rate.
func AggregateForCourse(course models.Course, all []models.UserProgress) Aggregate {
	sessions, full := 0, 0
	for _, p := range all {
		if p.CourseID != course.ID {
			continue
		}
		sessions++
		if len(p.CompletedStepIDs) == len(course.Steps) {
			full++
		}
	}
	if sessions == 0 {
		return Aggregate{}
	}
	return Aggregate{
		ActiveUserCount:       sessions,
		CompletionRatePercent: int(math.Round(100 * float64(full) / float64(sessions))),
	}
}

// Summarize builds the analytics view over the current course collection
func Summarize(courses []models.Course, all []models.UserProgress) models.Analytics {
	users := make(map[string]struct{}, len(all))
	for _, p := range all {
		users[p.UserID] = struct{}{}
	}

	stats := make([]models.CourseStats, 0, len(courses))
	for _, c := range courses {
		agg := AggregateForCourse(c, all)
		stats = append(stats, models.CourseStats{
			CourseID:              c.ID,
			CourseName:            c.Name,
			StepCount:             len(c.Steps),
			ActiveUserCount:       agg.ActiveUserCount,
			CompletionRatePercent: agg.CompletionRatePercent,
		})
	}

	activity := make([]models.ActivityEntry, 0, len(all))
	for _, p := range all {
		entry := models.ActivityEntry{
			UserID:         p.UserID,
			CourseID:       p.CourseID,
			CourseName:     DeletedCourseName,
			CompletedSteps: len(p.CompletedStepIDs),
			LastUpdated:    p.UpdatedAt(),
		}
		if c, ok := models.FindCourse(courses, p.CourseID); ok {
			entry.CourseName = c.Name
			entry.TotalSteps = len(c.Steps)
		}
		activity = append(activity, entry)
	}
	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].LastUpdated.After(activity[j].LastUpdated)
	})

	return models.Analytics{
		TotalUsers:     len(users),
		TotalSessions:  len(all),
		Courses:        stats,
		RecentActivity: activity,
	}
}
