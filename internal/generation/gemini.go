package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

// maxResponseBytes caps a response body; inline images are base64 encoded
const maxResponseBytes = 32 << 20

// GeminiConfig configures the REST client
type GeminiConfig struct {
	APIKey            string
	BaseURL           string
	TextModel         string
	DocModel          string
	ImageModel        string
	VideoModel        string
	VideoPollInterval time.Duration
	Timeout           time.Duration
	// PlatformName is looked up on every chat call so branding changes apply
	// without a restart. Nil means the default name.
	PlatformName func(ctx context.Context) string
}

// Gemini talks to the Generative Language REST API
type Gemini struct {
	cfg        GeminiConfig
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time
}

func NewGemini(cfg GeminiConfig, log *logger.Logger) (*Gemini, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("gemini: base url required")
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.PlatformName == nil {
		cfg.PlatformName = func(context.Context) string { return "" }
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Gemini{
		cfg:        cfg,
		httpClient: &http.Client{Transport: tr},
		log:        log.With("component", "Gemini"),
		now:        time.Now,
	}, nil
}

// NewGeminiWithHTTPClient is used by tests to point the client at a fake server
func NewGeminiWithHTTPClient(cfg GeminiConfig, log *logger.Logger, httpClient *http.Client) (*Gemini, error) {
	g, err := NewGemini(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		g.httpClient = httpClient
	}
	return g, nil
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	ResponseSchema   any    `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

func userContent(text string) content {
	return content{Role: string(models.ChatUser), Parts: []part{{Text: text}}}
}

func (g *Gemini) GenerateStructure(ctx context.Context, topic string) ([]models.StepRecord, error) {
	const op = "generateStructure"
	if strings.TrimSpace(topic) == "" {
		return nil, &Error{Op: op, Err: ErrEmptyPrompt}
	}
	raw, err := g.generate(ctx, op, g.cfg.TextModel, generateRequest{
		Contents: []content{userContent(structurePrompt(topic))},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   structureSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	text := stripCodeFence(responseText(raw))
	if text == "" {
		text = "[]"
	}
	var steps []models.StepRecord
	if err := json.Unmarshal([]byte(text), &steps); err != nil {
		return nil, &Error{Op: op, Message: "model returned malformed steps", Err: err}
	}

	now := g.now()
	for i := range steps {
		steps[i].ID = util.GeneratedStepID(now, i)
		steps[i].IsCompleted = nil
		if steps[i].Type == models.StepVideo && steps[i].VideoURL != "" && steps[i].MediaType == "" {
			steps[i].MediaType = models.MediaYouTube
		}
	}
	return steps, nil
}

func (g *Gemini) EnhanceText(ctx context.Context, text string) (string, error) {
	const op = "enhanceText"
	if strings.TrimSpace(text) == "" {
		return "", &Error{Op: op, Err: ErrEmptyPrompt}
	}
	raw, err := g.generate(ctx, op, g.cfg.TextModel, generateRequest{
		Contents: []content{userContent(enhancePrompt(text))},
	})
	if err != nil {
		return "", err
	}
	if out := responseText(raw); out != "" {
		return out, nil
	}
	return text, nil
}

func (g *Gemini) Chat(ctx context.Context, message, stepContext string, history []models.ChatMessage) (string, error) {
	const op = "chat"
	if strings.TrimSpace(message) == "" {
		return "", &Error{Op: op, Err: ErrEmptyPrompt}
	}
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, content{Role: string(m.Role), Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, userContent(message))

	raw, err := g.generate(ctx, op, g.cfg.TextModel, generateRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: conciergeInstruction(g.platformName(ctx), stepContext)}}},
	})
	if err != nil {
		return "", err
	}
	if out := responseText(raw); out != "" {
		return out, nil
	}
	return ChatFallback, nil
}

func (g *Gemini) GenerateSOPDocument(ctx context.Context, topic string) (string, error) {
	const op = "generateSopDocument"
	if strings.TrimSpace(topic) == "" {
		return "", &Error{Op: op, Err: ErrEmptyPrompt}
	}
	raw, err := g.generate(ctx, op, g.cfg.DocModel, generateRequest{
		Contents: []content{userContent(sopPrompt(topic))},
	})
	if err != nil {
		return "", err
	}
	return responseText(raw), nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	const op = "generateImage"
	if strings.TrimSpace(prompt) == "" {
		return "", &Error{Op: op, Err: ErrEmptyPrompt}
	}
	raw, err := g.generate(ctx, op, g.cfg.ImageModel, generateRequest{
		Contents: []content{userContent(prompt)},
	})
	if err != nil {
		return "", err
	}

	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts").Array() {
		data := p.Get("inlineData.data").String()
		if data == "" {
			continue
		}
		mime := p.Get("inlineData.mimeType").String()
		if mime == "" {
			mime = "image/png"
		}
		return "data:" + mime + ";base64," + data, nil
	}
	return "", nil
}

func (g *Gemini) GenerateVideo(ctx context.Context, prompt string, ratio AspectRatio) (string, error) {
	const op = "generateVideo"
	if strings.TrimSpace(prompt) == "" {
		return "", &Error{Op: op, Err: ErrEmptyPrompt}
	}
	if !ratio.Valid() {
		ratio = Landscape
	}

	body := map[string]any{
		"instances": []map[string]any{{"prompt": prompt}},
		"parameters": map[string]any{
			"aspectRatio": string(ratio),
			"resolution":  "1080p",
		},
	}
	raw, err := g.doJSON(ctx, op, http.MethodPost, "/models/"+g.cfg.VideoModel+":predictLongRunning", body)
	if err != nil {
		return "", err
	}
	name := gjson.GetBytes(raw, "name").String()
	if name == "" {
		return "", &Error{Op: op, Message: "no operation name in response"}
	}
	g.log.Info("Video generation started", "operation", name)

	for {
		if gjson.GetBytes(raw, "done").Bool() {
			break
		}
		select {
		case <-ctx.Done():
			return "", &Error{Op: op, Err: ctx.Err()}
		case <-time.After(g.cfg.VideoPollInterval):
		}
		raw, err = g.doJSON(ctx, op, http.MethodGet, "/"+strings.TrimPrefix(name, "/"), nil)
		if err != nil {
			return "", err
		}
	}

	if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
		return "", &Error{Op: op, Message: msg}
	}
	return gjson.GetBytes(raw, "response.generateVideoResponse.generatedSamples.0.video.uri").String(), nil
}

// OpenVideo streams a generated video. Only URIs on the API host are fetched so
// the key is never sent elsewhere.
func (g *Gemini) OpenVideo(ctx context.Context, uri string) (*Media, error) {
	const op = "openVideo"
	target, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, &Error{Op: op, Err: ErrForeignURI}
	}
	base, err := url.Parse(g.cfg.BaseURL)
	if err != nil || target.Scheme != base.Scheme || target.Host != base.Host {
		return nil, &Error{Op: op, Err: ErrForeignURI}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, parseHTTPError(op, resp.StatusCode, raw)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return &Media{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}

func (g *Gemini) platformName(ctx context.Context) string {
	if name := strings.TrimSpace(g.cfg.PlatformName(ctx)); name != "" {
		return name
	}
	return models.DefaultSettings().PlatformName
}

func (g *Gemini) generate(ctx context.Context, op, model string, req generateRequest) ([]byte, error) {
	raw, err := g.doJSON(ctx, op, http.MethodPost, "/models/"+model+":generateContent", req)
	if err != nil {
		return nil, err
	}
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
		return nil, &Error{Op: op, Message: "prompt blocked: " + reason}
	}
	return raw, nil
}

func (g *Gemini) doJSON(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := g.now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	g.log.Debug("Gemini call finished", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(op, resp.StatusCode, raw)
	}
	return raw, nil
}

// responseText joins the text parts of the first candidate
func responseText(raw []byte) string {
	var sb strings.Builder
	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(p.String())
	}
	return strings.TrimSpace(sb.String())
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
