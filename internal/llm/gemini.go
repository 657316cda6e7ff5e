package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiBackend generates text through Google's Gemini API.
type geminiBackend struct {
	cfg    Config
	client *genai.Client
}

func newGeminiBackend(ctx context.Context, cfg Config) (*geminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiBackend{cfg: cfg, client: client}, nil
}

func (b *geminiBackend) call(ctx context.Context, req GenerateRequest) (string, string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(b.cfg.Temperature)),
	}
	if b.cfg.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(b.cfg.MaxTokens)
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := b.client.Models.GenerateContent(ctx, b.cfg.Model, genai.Text(req.UserPrompt), gc)
	if err != nil {
		return "", "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", "", fmt.Errorf("%w: no candidates returned", ErrInvalidOutput)
	}
	model := result.ModelVersion
	if model == "" {
		model = b.cfg.Model
	}
	return text, model, nil
}
