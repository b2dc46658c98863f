package handler

import (
	"context"
	"net/http"
	"time"

	"polyglot-chat/internal/service"
	"polyglot-chat/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理对话请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat 处理 POST /chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"response": "Invalid request body"})
		return
	}

	// 客户端断开不应中止已经开始的一轮对话，只由模型超时约束
	ctx := context.WithoutCancel(c.Request.Context())
	reply, err := h.chatService.HandleChat(ctx, req.Message)
	if err != nil {
		status := statusFor(err)
		log.Warnw("[ChatHandler] 对话失败", "status", status, "error", err)
		c.JSON(status, gin.H{"response": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  reply.Reply,
		"language":  reply.Language,
		"timestamp": reply.Timestamp.Format(time.RFC3339),
	})
}
