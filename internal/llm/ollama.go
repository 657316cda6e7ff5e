package llm

import (
	"context"
	"net/http"
	"strings"
)

// ollamaBackend talks to a local Ollama instance.
type ollamaBackend struct {
	cfg  Config
	http *http.Client
}

func newOllamaBackend(cfg Config) *ollamaBackend {
	return &ollamaBackend{cfg: cfg, http: newHTTPClient()}
}

// ollamaRequest is the JSON body sent to POST /api/generate.
type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaResponse is the JSON body returned by POST /api/generate (non-streaming).
type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func (b *ollamaBackend) call(ctx context.Context, req GenerateRequest) (string, string, error) {
	body := ollamaRequest{
		Model:  b.cfg.Model,
		System: req.SystemPrompt,
		Prompt: req.UserPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: b.cfg.Temperature,
			NumPredict:  b.cfg.MaxTokens,
		},
	}
	var resp ollamaResponse
	url := strings.TrimRight(b.cfg.Endpoint, "/") + "/api/generate"
	if err := postJSON(ctx, b.http, url, nil, body, &resp); err != nil {
		return "", "", err
	}
	return resp.Response, resp.Model, nil
}
