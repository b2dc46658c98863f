package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyglot-chat/internal/config"
)

// httpClient 调用 Ollama 的 /api/generate 接口（非流式）。
type httpClient struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPClient 创建一个基于 Ollama REST 接口的模型客户端。
func NewHTTPClient(cfg config.ModelConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Name,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *httpClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		reqBytes, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
		if err != nil {
			return "", fmt.Errorf("failed to marshal generate request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(reqBytes))
		if err != nil {
			return "", fmt.Errorf("failed to create generate request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to call generate api: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read generate response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", &Error{Diagnostic: fmt.Sprintf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))}
		}

		var out generateResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("failed to decode generate response: %w", err)
		}
		if out.Error != "" {
			return "", &Error{Diagnostic: out.Error}
		}
		return strings.TrimSpace(out.Response), nil
	})
}
