// Package storage persists the course collection, global settings, device identity
// and reviews into a namespaced kv.Store.
package storage

// Keys inside the namespace. Values are JSON in the browser client's legacy shape.
const (
	KeyCourses  = "courses"
	KeySettings = "settings"
	KeyProgress = "user_progress"
	KeyUserID   = "user_id"
	KeyReviews  = "reviews"
)
