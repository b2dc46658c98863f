// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"polyglot-chat/internal/model"
	"polyglot-chat/internal/repository"
	"polyglot-chat/pkg/llm"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/translate"
)

// ChatReply 是一次成功对话的返回结果。
type ChatReply struct {
	Reply     string
	Language  string
	Timestamp time.Time
}

// ChatService 定义了对话操作的接口。
type ChatService interface {
	HandleChat(ctx context.Context, message string) (*ChatReply, error)
}

type chatService struct {
	translator    translate.Client
	llmClient     llm.Client
	turnRepo      repository.TurnRepository
	publisher     TurnPublisher
	pivotLanguage string
}

// NewChatService 创建一个新的 ChatService 实例。publisher 可以为 nil。
func NewChatService(translator translate.Client, llmClient llm.Client, turnRepo repository.TurnRepository, publisher TurnPublisher, pivotLanguage string) ChatService {
	return &chatService{
		translator:    translator,
		llmClient:     llmClient,
		turnRepo:      turnRepo,
		publisher:     publisher,
		pivotLanguage: pivotLanguage,
	}
}

// HandleChat 完成一轮对话：检测语言 → 翻译为中间语言 → 调用模型 → 翻译回原语言 → 落库。
// 用户消息在调用模型之前写入；模型或回译失败时只保留用户消息，不写入助手消息。
func (s *chatService) HandleChat(ctx context.Context, message string) (*ChatReply, error) {
	// 1. 校验输入，失败时不产生任何副作用
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Message: "Please enter a message"}
	}

	// 2. 检测语言，检测失败直接终止
	lang, err := s.translator.Detect(ctx, message)
	if err != nil {
		log.Warnf("[Chat] 语言检测失败: %v", err)
		return nil, &TranslationError{Phase: PhaseDetect, Err: err}
	}
	needsPivot := !translate.SameLanguage(lang, s.pivotLanguage)

	// 3. 翻译为中间语言，并保存原始消息
	prompt := message
	if needsPivot {
		prompt, err = s.translator.Translate(ctx, message, lang, s.pivotLanguage)
		if err != nil {
			log.Warnf("[Chat] 翻译为中间语言失败, lang: %s, error: %v", lang, err)
			return nil, &TranslationError{Phase: PhaseTranslateIn, Err: err}
		}
	}
	userTurn := &model.ChatTurn{Role: model.RoleUser, Language: lang, Message: message}
	if err := recordTurn(ctx, s.turnRepo, s.publisher, userTurn); err != nil {
		return nil, err
	}

	// 4. 调用模型，超时由模型客户端控制
	answer, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		log.Errorw("[Chat] 模型调用失败", "turnID", userTurn.ID, "error", err)
		upstream := &UpstreamError{Diagnostic: err.Error(), Err: err}
		var llmErr *llm.Error
		if errors.As(err, &llmErr) {
			upstream.Diagnostic = llmErr.Diagnostic
			upstream.Timeout = llmErr.Timeout
		}
		return nil, upstream
	}

	// 5. 翻译回用户语言并保存助手消息
	reply := answer
	if needsPivot {
		reply, err = s.translator.Translate(ctx, answer, s.pivotLanguage, lang)
		if err != nil {
			log.Warnf("[Chat] 回译失败, lang: %s, error: %v", lang, err)
			return nil, &TranslationError{Phase: PhaseTranslateOut, Err: err}
		}
	}
	assistantTurn := &model.ChatTurn{Role: model.RoleAssistant, Language: lang, Message: reply}
	if err := recordTurn(ctx, s.turnRepo, s.publisher, assistantTurn); err != nil {
		return nil, err
	}

	log.Infow("[Chat] 对话完成", "language", lang, "pivot", needsPivot, "userTurnID", userTurn.ID, "assistantTurnID", assistantTurn.ID)
	return &ChatReply{
		Reply:     reply,
		Language:  lang,
		Timestamp: assistantTurn.CreatedAt,
	}, nil
}
