package models

import (
	"encoding/json"
	"net/url"
)

// StepType is the kind of screen a step renders as
type StepType string

const (
	StepVideo    StepType = "video"
	StepImage    StepType = "image"
	StepSOP      StepType = "sop"
	StepAction   StepType = "action"
	StepDownload StepType = "download"
	StepEmbedded StepType = "embedded"
	StepLink     StepType = "link"
)

// StepTypes lists every step kind in display order
var StepTypes = []StepType{StepVideo, StepImage, StepSOP, StepAction, StepDownload, StepEmbedded, StepLink}

// Valid reports whether t is a known step type
func (t StepType) Valid() bool {
	for _, known := range StepTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MediaType says where a video or image asset comes from
type MediaType string

const (
	MediaYouTube        MediaType = "youtube"
	MediaGeneratedVideo MediaType = "generated-video"
	MediaGeneratedImage MediaType = "generated-image"
	MediaUpload         MediaType = "upload"
)

// StepRecord is the flat shape steps are persisted in. Every kind-specific field lives on
// one record, so it also serves as the editor's partial draft.
type StepRecord struct {
	ID             string         `json:"id,omitempty"`
	Title          string         `json:"title,omitempty"`
	Description    string         `json:"description"`
	ContentBlocks  []ContentBlock `json:"contentBlocks,omitempty"`
	Type           StepType       `json:"type,omitempty"`
	SOPContent     string         `json:"sopContent,omitempty"`
	MediaType      MediaType      `json:"mediaType,omitempty"`
	VideoURL       string         `json:"videoUrl,omitempty"` // YouTube id or generated video URI
	ImageURL       string         `json:"imageUrl,omitempty"` // data URI or URL
	EmbedURL       string         `json:"embedUrl,omitempty"`
	ActionLabel    string         `json:"actionLabel,omitempty"`
	FileURL        string         `json:"fileUrl,omitempty"`
	FileName       string         `json:"fileName,omitempty"`
	LinkedCourseID string         `json:"linkedCourseId,omitempty"`
	IsCompleted    *bool          `json:"isCompleted,omitempty"` // authoring placeholder only
}

// Clone deep-copies the record including its blocks
func (r StepRecord) Clone() StepRecord {
	out := r
	if r.ContentBlocks != nil {
		out.ContentBlocks = make([]ContentBlock, len(r.ContentBlocks))
		for i, b := range r.ContentBlocks {
			out.ContentBlocks[i] = b.Clone()
		}
	}
	if r.IsCompleted != nil {
		v := *r.IsCompleted
		out.IsCompleted = &v
	}
	return out
}

// StepBody holds the fields that are only meaningful for one step kind
type StepBody interface {
	Kind() StepType
	flatten(r *StepRecord)
}

type VideoBody struct {
	MediaType MediaType
	VideoURL  string
}

type ImageBody struct {
	MediaType MediaType
	ImageURL  string
}

type SOPBody struct {
	Content string
}

type ActionBody struct {
	Label string
}

type DownloadBody struct {
	FileURL  string
	FileName string
}

type EmbeddedBody struct {
	URL string
}

type LinkBody struct {
	CourseID string
}

func (VideoBody) Kind() StepType    { return StepVideo }
func (ImageBody) Kind() StepType    { return StepImage }
func (SOPBody) Kind() StepType      { return StepSOP }
func (ActionBody) Kind() StepType   { return StepAction }
func (DownloadBody) Kind() StepType { return StepDownload }
func (EmbeddedBody) Kind() StepType { return StepEmbedded }
func (LinkBody) Kind() StepType     { return StepLink }

func (b VideoBody) flatten(r *StepRecord) { r.MediaType, r.VideoURL = b.MediaType, b.VideoURL }
func (b ImageBody) flatten(r *StepRecord) { r.MediaType, r.ImageURL = b.MediaType, b.ImageURL }
func (b SOPBody) flatten(r *StepRecord)   { r.SOPContent = b.Content }
func (b ActionBody) flatten(r *StepRecord) {
	r.ActionLabel = b.Label
}
func (b DownloadBody) flatten(r *StepRecord) { r.FileURL, r.FileName = b.FileURL, b.FileName }
func (b EmbeddedBody) flatten(r *StepRecord) { r.EmbedURL = b.URL }
func (b LinkBody) flatten(r *StepRecord)     { r.LinkedCourseID = b.CourseID }

// VideoProxyPath serves generated videos, which need the service's API key to download
const VideoProxyPath = "/api/media/video"

// PlayableURL returns the URL a player should load for the video
func (b VideoBody) PlayableURL() string {
	if b.VideoURL == "" {
		return ""
	}
	switch b.MediaType {
	case MediaGeneratedVideo:
		return VideoProxyPath + "?uri=" + url.QueryEscape(b.VideoURL)
	case MediaUpload:
		return b.VideoURL
	}
	return "https://www.youtube.com/embed/" + url.PathEscape(b.VideoURL) + "?autoplay=1&controls=0&modestbranding=1&rel=0"
}

// Step is one screen of a course. Body carries the kind-specific fields.
type Step struct {
	ID            string
	Title         string
	Description   string // legacy fallback text
	ContentBlocks []ContentBlock
	Body          StepBody
	IsCompleted   bool
}

// Type returns the step kind, action when no body is set
func (s Step) Type() StepType {
	if s.Body == nil {
		return StepAction
	}
	return s.Body.Kind()
}

// Record flattens the step into its persisted shape. Only the active kind's fields are set.
func (s Step) Record() StepRecord {
	done := s.IsCompleted
	r := StepRecord{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Type:        s.Type(),
		IsCompleted: &done,
	}
	if len(s.ContentBlocks) > 0 {
		r.ContentBlocks = make([]ContentBlock, len(s.ContentBlocks))
		for i, b := range s.ContentBlocks {
			r.ContentBlocks[i] = b.Clone()
		}
	}
	if s.Body != nil {
		s.Body.flatten(&r)
	}
	return r
}

// BodyFromRecord picks the fields of r that belong to its type. Unknown types become action.
func BodyFromRecord(r StepRecord) StepBody {
	switch r.Type {
	case StepVideo:
		return VideoBody{MediaType: r.MediaType, VideoURL: r.VideoURL}
	case StepImage:
		return ImageBody{MediaType: r.MediaType, ImageURL: r.ImageURL}
	case StepSOP:
		return SOPBody{Content: r.SOPContent}
	case StepDownload:
		return DownloadBody{FileURL: r.FileURL, FileName: r.FileName}
	case StepEmbedded:
		return EmbeddedBody{URL: r.EmbedURL}
	case StepLink:
		return LinkBody{CourseID: r.LinkedCourseID}
	default:
		return ActionBody{Label: r.ActionLabel}
	}
}

// StepFromRecord decodes a legacy flat record. Fields of inactive kinds are dropped.
func StepFromRecord(r StepRecord) Step {
	s := Step{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Body:        BodyFromRecord(r),
	}
	if r.IsCompleted != nil {
		s.IsCompleted = *r.IsCompleted
	}
	if len(r.ContentBlocks) > 0 {
		s.ContentBlocks = make([]ContentBlock, len(r.ContentBlocks))
		for i, b := range r.ContentBlocks {
			s.ContentBlocks[i] = b.Clone()
		}
	}
	return s
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var r StepRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*s = StepFromRecord(r)
	return nil
}

// EffectiveContentBlocks returns what a renderer should show for the step body. Steps
// without blocks get a single text block wrapping the description.
func EffectiveContentBlocks(s Step) []ContentBlock {
	if len(s.ContentBlocks) > 0 {
		return s.ContentBlocks
	}
	return []ContentBlock{{
		ID:      s.ID + "-description",
		Type:    BlockText,
		Content: s.Description,
	}}
}
