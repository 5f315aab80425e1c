// Package generation is the boundary to the hosted generative AI service used for
// course structure, text, documents, images and videos.
package generation

import (
	"context"
	"errors"
	"io"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

var (
	ErrNotConfigured = errors.New("generation gateway is not configured")
	ErrInFlight      = errors.New("a generation request of this kind is already running")
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrForeignURI    = errors.New("uri is not served by the generation service")
)

// Media is a downloaded asset. The caller closes Body.
type Media struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
}

// AspectRatio of a generated video
type AspectRatio string

const (
	Landscape AspectRatio = "16:9"
	Portrait  AspectRatio = "9:16"
)

// Valid reports whether r is a supported aspect ratio
func (r AspectRatio) Valid() bool {
	return r == Landscape || r == Portrait
}

// Gateway is the request/response contract of the generation service.
// Calls are not retried; failures come back as errors and leave callers' content alone.
type Gateway interface {
	// GenerateStructure drafts 4-6 steps of mixed types for a topic
	GenerateStructure(ctx context.Context, topic string) ([]models.StepRecord, error)
	// EnhanceText rewrites text as short, lightly formatted markdown
	EnhanceText(ctx context.Context, text string) (string, error)
	// Chat answers a learner with the current step as context
	Chat(ctx context.Context, message, stepContext string, history []models.ChatMessage) (string, error)
	// GenerateSOPDocument writes a markdown SOP for a topic
	GenerateSOPDocument(ctx context.Context, topic string) (string, error)
	// GenerateImage returns a data URI, or "" when the model produced no image
	GenerateImage(ctx context.Context, prompt string) (string, error)
	// GenerateVideo returns a playable URI, or "" when the model produced no video
	GenerateVideo(ctx context.Context, prompt string, ratio AspectRatio) (string, error)
	// OpenVideo downloads a URI returned by GenerateVideo
	OpenVideo(ctx context.Context, uri string) (*Media, error)
}

// Configured reports whether gw talks to a real service
func Configured(gw Gateway) bool {
	if gw == nil {
		return false
	}
	_, off := gw.(Unavailable)
	return !off
}

// Unavailable is used when no API key is configured. Every call fails with ErrNotConfigured.
type Unavailable struct{}

func (Unavailable) GenerateStructure(context.Context, string) ([]models.StepRecord, error) {
	return nil, ErrNotConfigured
}
func (Unavailable) EnhanceText(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
func (Unavailable) Chat(context.Context, string, string, []models.ChatMessage) (string, error) {
	return "", ErrNotConfigured
}
func (Unavailable) GenerateSOPDocument(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
func (Unavailable) GenerateImage(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
func (Unavailable) GenerateVideo(context.Context, string, AspectRatio) (string, error) {
	return "", ErrNotConfigured
}
func (Unavailable) OpenVideo(context.Context, string) (*Media, error) {
	return nil, ErrNotConfigured
}
