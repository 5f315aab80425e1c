package models

import (
	"fmt"
	"time"
)

// ChatRole is who wrote a concierge chat message
type ChatRole string

const (
	ChatUser  ChatRole = "user"
	ChatModel ChatRole = "model"
)

// ChatMessage is one turn of the AI concierge conversation
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// ReviewDestination is where a submitted review is routed
type ReviewDestination string

const (
	ReviewPublic   ReviewDestination = "public"   // high scores go to the public review page
	ReviewInternal ReviewDestination = "internal" // everything else stays internal feedback
)

// PublicReviewThreshold is the lowest rating routed to the public review page
const PublicReviewThreshold = 4

// Review is the feedback collected at the review gate
type Review struct {
	UserID      string            `json:"userId"`
	CourseID    string            `json:"courseId"`
	Rating      int               `json:"rating"` // 1-5 stars
	Feedback    string            `json:"feedback,omitempty"`
	Destination ReviewDestination `json:"destination"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// RouteReview validates the rating and picks the destination
func RouteReview(rating int) (ReviewDestination, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	if rating >= PublicReviewThreshold {
		return ReviewPublic, nil
	}
	return ReviewInternal, nil
}
