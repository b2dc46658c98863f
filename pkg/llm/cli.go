package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"polyglot-chat/internal/config"
	"polyglot-chat/pkg/log"
)

// cliClient 通过 `ollama run <model> <prompt>` 子进程调用本地模型。
type cliClient struct {
	command string
	model   string
	timeout time.Duration
}

// NewCLIClient 创建一个基于命令行子进程的模型客户端。
func NewCLIClient(cfg config.ModelConfig) Client {
	command := cfg.Command
	if command == "" {
		command = "ollama"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &cliClient{command: command, model: cfg.Name, timeout: timeout}
}

func (c *cliClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		start := time.Now()
		cmd := exec.CommandContext(ctx, c.command, "run", c.model, prompt)
		// 子进程被杀死后最多再等待 1 秒以回收输出管道
		cmd.WaitDelay = time.Second

		var stdout bytes.Buffer
		var stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		if runErr != nil {
			diagnostic := strings.TrimSpace(stderr.String())
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) && diagnostic == "" {
				diagnostic = fmt.Sprintf("exit status %d", exitErr.ExitCode())
			}
			if diagnostic == "" {
				diagnostic = runErr.Error()
			}
			log.Warnw("[ModelCLI] 模型进程执行失败", "model", c.model, "error", runErr, "stderr", diagnostic)
			return "", &Error{Diagnostic: diagnostic, Err: runErr}
		}

		log.Infow("[ModelCLI] 模型调用完成", "model", c.model, "latency", time.Since(start).String(), "outputLen", stdout.Len())
		return strings.TrimSpace(stdout.String()), nil
	})
}
