package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// cohereBackend calls Cohere's v2 chat endpoint.
type cohereBackend struct {
	cfg  Config
	http *http.Client
}

func newCohereBackend(cfg Config) *cohereBackend {
	return &cohereBackend{cfg: cfg, http: newHTTPClient()}
}

type cohereMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cohereRequest struct {
	Model       string          `json:"model"`
	Messages    []cohereMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type cohereContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cohereResponse struct {
	ID      string `json:"id"`
	Message struct {
		Role    string          `json:"role"`
		Content []cohereContent `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func (b *cohereBackend) call(ctx context.Context, req GenerateRequest) (string, string, error) {
	var msgs []cohereMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, cohereMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, cohereMessage{Role: "user", Content: req.UserPrompt})

	body := cohereRequest{
		Model:       b.cfg.Model,
		Messages:    msgs,
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + b.cfg.APIKey,
		"Accept":        "application/json",
	}

	var resp cohereResponse
	url := strings.TrimRight(b.cfg.Endpoint, "/") + "/v2/chat"
	if err := postJSON(ctx, b.http, url, headers, body, &resp); err != nil {
		return "", "", err
	}

	var sb strings.Builder
	for _, c := range resp.Message.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", "", fmt.Errorf("%w: no text content (finish_reason=%s)", ErrInvalidOutput, resp.FinishReason)
	}
	return sb.String(), b.cfg.Model, nil
}
