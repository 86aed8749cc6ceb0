package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// GeminiModel is a Model backed by the Gemini API.
// Every call waits on a shared rate limiter and is bounded by a timeout, so a
// stalled upstream surfaces as an error instead of hanging the session.
type GeminiModel struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// GeminiConfig holds the settings for NewGeminiModel.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// RPS is the sustained request rate; burst is 1.
	RPS float64
}

// NewGeminiModel creates a Gemini-backed Model.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generator.NewGeminiModel: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator.NewGeminiModel: create client: %w", err)
	}

	return &GeminiModel{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Generate sends p to Gemini and returns the text of the first candidate.
func (g *GeminiModel) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generator.GeminiModel.Generate: rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(p.Turns))
	for _, t := range p.Turns {
		var role genai.Role = genai.RoleUser
		if t.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generator.GeminiModel.Generate: %w: %v", domain.ErrGenerationFailure, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generator.GeminiModel.Generate: %w: empty response", domain.ErrGenerationFailure)
	}
	return text, nil
}
