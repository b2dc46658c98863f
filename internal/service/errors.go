package service

import (
	"errors"
	"fmt"

	"polyglot-chat/pkg/translate"
)

// ValidationError 表示请求参数不合法，此时不会产生任何副作用。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// 翻译阶段
const (
	PhaseDetect       = "detect"
	PhaseTranslateIn  = "translate-in"
	PhaseTranslateOut = "translate-out"
)

// TranslationError 表示语言检测或翻译失败。
type TranslationError struct {
	Phase string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed (%s): %v", e.Phase, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Unrecognized 表示失败原因是无法识别的语言或不支持的语言对，而非服务不可用。
func (e *TranslationError) Unrecognized() bool {
	return errors.Is(e.Err, translate.ErrUnrecognized) || errors.Is(e.Err, translate.ErrUnsupportedPair)
}

// UpstreamError 表示模型进程失败、崩溃或超时。
type UpstreamError struct {
	Diagnostic string
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return "model timed out: " + e.Diagnostic
	}
	return "model error: " + e.Diagnostic
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError 表示数据库或文件存储不可用，写入失败会如实上报。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrSearchDisabled 表示未配置检索索引。
var ErrSearchDisabled = errors.New("transcript search is not enabled")
