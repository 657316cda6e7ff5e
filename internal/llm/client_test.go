package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Provider = ProviderOllama
	cfg.Endpoint = endpoint
	cfg.Model = "llama3.2"
	cfg.TimeoutMs = 2000
	return cfg
}

func newTestClient(t *testing.T, cfg Config, obs Observer) Client {
	t.Helper()
	c, err := New(context.Background(), cfg, obs)
	require.NoError(t, err)
	return c
}

func TestOllama_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "system prompt", req.System)
		assert.Equal(t, "user prompt", req.Prompt)
		assert.Equal(t, 300, req.Options.NumPredict)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "  Title: Rain\n\nfalls  "})
	}))
	defer srv.Close()

	client := newTestClient(t, ollamaConfig(srv.URL), NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{
		SystemPrompt: "system prompt",
		UserPrompt:   "user prompt",
	})

	require.NoError(t, err)
	assert.Equal(t, "Title: Rain\n\nfalls", resp.Text)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestOllama_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.TimeoutMs = 50
	cfg.MaxRetries = 0

	var captured CallEvent
	client := newTestClient(t, cfg, &captureObserver{fn: func(e CallEvent) { captured = e }})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, captured.Success)
	assert.Equal(t, "TIMEOUT", captured.ErrorCode)
}

func TestOllama_Generate_Unavailable(t *testing.T) {
	cfg := ollamaConfig("http://127.0.0.1:1") // nothing listening
	cfg.MaxRetries = 0

	client := newTestClient(t, cfg, NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllama_Generate_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "ok"})
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.MaxRetries = 1

	client := newTestClient(t, cfg, NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllama_Generate_RetryAfterTimeout(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "ok"})
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.MaxRetries = 1
	cfg.TimeoutMs = 80

	client := newTestClient(t, cfg, NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllama_Generate_ServerErrorExhausts(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.MaxRetries = 2

	client := newTestClient(t, cfg, NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestOllama_Generate_BadRequestNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.MaxRetries = 3

	client := newTestClient(t, cfg, NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllama_Generate_EmptyResponseIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "   "})
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.MaxRetries = 0

	client := newTestClient(t, cfg, NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestCohere_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req cohereRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "command-r-plus-08-2024", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "write", req.Messages[0].Content)
		assert.InDelta(t, 0.8, req.Temperature, 1e-9)

		w.Write([]byte(`{"id":"x","finish_reason":"COMPLETE","message":{"role":"assistant","content":[{"type":"text","text":"Title: Dawn\n\nlight"}]}}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "secret"

	client := newTestClient(t, cfg, NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "write"})

	require.NoError(t, err)
	assert.Equal(t, "Title: Dawn\n\nlight", resp.Text)
	assert.Equal(t, "command-r-plus-08-2024", resp.Model)
}

func TestCohere_Generate_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "wrong"

	var captured CallEvent
	client := newTestClient(t, cfg, &captureObserver{fn: func(e CallEvent) { captured = e }})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "write"})

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "REJECTED", captured.ErrorCode)
	assert.Equal(t, ProviderCohere, captured.Provider)
}

func TestNew_RequiresKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Provider = ProviderGemini
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Provider = "bard"
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestObserverCalledOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "ok"})
	}))
	defer srv.Close()

	var captured CallEvent
	client := newTestClient(t, ollamaConfig(srv.URL), &captureObserver{fn: func(e CallEvent) { captured = e }})
	_, err := client.Generate(context.Background(), GenerateRequest{UserPrompt: "test"})

	require.NoError(t, err)
	assert.Equal(t, TaskPoem, captured.Task)
	assert.Equal(t, ProviderOllama, captured.Provider)
	assert.Equal(t, "llama3.2", captured.Model)
	assert.True(t, captured.Success)
}

func TestStripCodeFences(t *testing.T) {
	in := "```markdown\nTitle: Fog\n\nlow hills\n```"
	assert.Equal(t, "Title: Fog\n\nlow hills", StripCodeFences(in))
	assert.Equal(t, "plain", StripCodeFences("plain"))
}

type captureObserver struct {
	fn func(CallEvent)
}

func (o *captureObserver) OnCallComplete(e CallEvent) { o.fn(e) }
