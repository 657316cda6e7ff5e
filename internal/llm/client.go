package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/versegrid/versegrid/internal/retry"
)

// TaskPoem labels poem generation calls in observer events.
const TaskPoem = "poem"

// GenerateRequest holds the parameters for one generation call.
type GenerateRequest struct {
	Task         string
	SystemPrompt string
	UserPrompt   string
}

// GenerateResponse is the single success shape every provider returns.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// backend is one provider's wire call. It returns the raw text and the model
// that produced it.
type backend interface {
	call(ctx context.Context, req GenerateRequest) (text, model string, err error)
}

// client wraps a backend with per-attempt timeouts, bounded retries, error
// classification and observer events.
type client struct {
	cfg      Config
	backend  backend
	observer Observer
	sleeper  retry.Sleeper
}

// New builds the Client for cfg.Provider.
func New(ctx context.Context, cfg Config, observer Observer) (Client, error) {
	cfg = cfg.WithProviderDefaults()
	var b backend
	switch cfg.Provider {
	case ProviderOllama:
		b = newOllamaBackend(cfg)
	case ProviderCohere:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("cohere: API key is required")
		}
		b = newCohereBackend(cfg)
	case ProviderGemini:
		gb, err := newGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b = gb
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return newClient(cfg, b, observer), nil
}

func newClient(cfg Config, b backend, observer Observer) *client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &client{cfg: cfg, backend: b, observer: observer, sleeper: retry.WallSleeper{}}
}

func (c *client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	if req.Task == "" {
		req.Task = TaskPoem
	}

	type result struct{ text, model string }
	policy := retry.Policy{Attempts: 1 + c.cfg.MaxRetries}
	res, err := retry.Value(ctx, policy, retry.Options{Sleeper: c.sleeper}, func(int) (result, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()

		text, model, err := c.backend.call(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrRejected) {
				return result{}, retry.Permanent(err)
			}
			if attemptCtx.Err() != nil {
				return result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return result{}, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return result{}, fmt.Errorf("%w: empty response", ErrInvalidOutput)
		}
		return result{text: text, model: model}, nil
	})

	latency := time.Since(start).Milliseconds()
	if err == nil {
		if res.model == "" {
			res.model = c.cfg.Model
		}
		c.observer.OnCallComplete(CallEvent{
			Task:      req.Task,
			Provider:  c.cfg.Provider,
			Model:     res.model,
			LatencyMs: latency,
			Success:   true,
		})
		return &GenerateResponse{Text: res.text, Model: res.model, LatencyMs: latency}, nil
	}

	err = classify(ctx, err)
	c.observer.OnCallComplete(CallEvent{
		Task:      req.Task,
		Provider:  c.cfg.Provider,
		Model:     c.cfg.Model,
		LatencyMs: latency,
		Success:   false,
		ErrorCode: errorCode(err),
	})
	return nil, err
}

// classify maps the last attempt's failure onto the package sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case errors.Is(err, ErrRejected), errors.Is(err, ErrInvalidOutput):
		return err
	case errors.Is(err, ErrTimeout):
		return ErrTimeout
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}
