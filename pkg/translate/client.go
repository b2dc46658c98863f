// Package translate 提供语言检测与文本翻译的客户端。
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyglot-chat/internal/config"
	"polyglot-chat/pkg/log"
)

var (
	// ErrUnrecognized 表示无法识别文本的语言。
	ErrUnrecognized = errors.New("language could not be recognized")
	// ErrUnsupportedPair 表示翻译服务不支持该语言对。
	ErrUnsupportedPair = errors.New("language pair is not supported")
)

// Detector 定义了语言检测能力。
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Client 定义了翻译网关的接口。
type Client interface {
	Detector
	// Translate 将 text 从 source 翻译为 target。source 与 target 相同时调用方应直接跳过。
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SameLanguage 判断两个语言代码是否相同（忽略大小写）。
func SameLanguage(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NewClient 根据配置创建翻译客户端。
func NewClient(ctx context.Context, cfg config.TranslationConfig) (Client, error) {
	httpClient := NewHTTPClient(cfg)
	switch cfg.Provider {
	case "", "http":
		return httpClient, nil
	case "lambda":
		return NewLambdaClient(ctx, cfg.Lambda, httpClient)
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}

// httpClient 对接 LibreTranslate 兼容的 REST 接口。
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient 创建一个 LibreTranslate 兼容的翻译客户端。
func NewHTTPClient(cfg config.TranslationConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Q      string `json:"q"`
	APIKey string `json:"api_key,omitempty"`
}

type detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Detect 调用 /detect 接口，返回置信度最高的语言代码。
func (c *httpClient) Detect(ctx context.Context, text string) (string, error) {
	var detections []detection
	status, body, err := c.post(ctx, "/detect", detectRequest{Q: text, APIKey: c.apiKey})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("detect api returned status %d: %s", status, string(body))
	}
	if err := json.Unmarshal(body, &detections); err != nil {
		return "", fmt.Errorf("failed to decode detect response: %w", err)
	}

	best := detection{}
	for _, d := range detections {
		if d.Language != "" && d.Confidence >= best.Confidence {
			best = d
		}
	}
	if best.Language == "" {
		return "", ErrUnrecognized
	}
	return strings.ToLower(best.Language), nil
}

// Translate 调用 /translate 接口。
func (c *httpClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	status, body, err := c.post(ctx, "/translate", translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", err
	}

	var resp translateResponse
	_ = json.Unmarshal(body, &resp)
	if status == http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s→%s: %s", ErrUnsupportedPair, source, target, resp.Error)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("translate api returned status %d: %s", status, string(body))
	}
	return resp.TranslatedText, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[TranslateClient] 调用翻译服务失败, path: %s, error: %v", path, err)
		return 0, nil, fmt.Errorf("failed to call translation service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read translation response: %w", err)
	}
	return resp.StatusCode, body, nil
}
