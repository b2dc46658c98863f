// Package llm provides clients for the locally running language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polyglot-chat/internal/config"
)

// Client defines the interface for a model gateway.
type Client interface {
	// Complete 以阻塞方式获取 prompt 的完整回复，超时或失败时返回 *Error。
	Complete(ctx context.Context, prompt string) (string, error)
}

// Error 携带上游模型进程的诊断信息。
type Error struct {
	Diagnostic string
	Timeout    bool
	Err        error
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("model timed out: %s", e.Diagnostic)
	}
	return fmt.Sprintf("model failed: %s", e.Diagnostic)
}

func (e *Error) Unwrap() error { return e.Err }

// NewClient creates a new model client based on the provider in the config.
func NewClient(cfg config.ModelConfig) (Client, error) {
	switch cfg.Provider {
	case "", "cli":
		return NewCLIClient(cfg), nil
	case "http":
		return NewHTTPClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// withTimeout 为单次调用设置超时，并在超时后把错误统一转换为 *Error。
func withTimeout(ctx context.Context, timeout time.Duration, call func(ctx context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := call(callCtx)
	if err == nil {
		return out, nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", &Error{
			Diagnostic: fmt.Sprintf("no completion within %s", timeout),
			Timeout:    true,
			Err:        context.DeadlineExceeded,
		}
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return "", llmErr
	}
	return "", &Error{Diagnostic: err.Error(), Err: err}
}
