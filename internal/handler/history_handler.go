package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"polyglot-chat/internal/service"
	"polyglot-chat/pkg/log"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 负责对话历史的查询、清空、检索和导出。
type HistoryHandler struct {
	historyService service.HistoryService
	exportService  service.ExportService
}

// NewHistoryHandler 创建一个新的 HistoryHandler 实例。
func NewHistoryHandler(historyService service.HistoryService, exportService service.ExportService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService, exportService: exportService}
}

// List 处理 GET /history，返回完整的对话记录。
func (h *HistoryHandler) List(c *gin.Context) {
	turns, err := h.historyService.List(c.Request.Context())
	if err != nil {
		log.Error("[HistoryHandler] 获取对话记录失败", err)
		c.JSON(statusFor(err), gin.H{"response": err.Error()})
		return
	}
	c.JSON(http.StatusOK, turns)
}

// Clear 处理 POST /clear-history。
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.historyService.Clear(c.Request.Context()); err != nil {
		log.Error("[HistoryHandler] 清空对话记录失败", err)
		c.JSON(statusFor(err), gin.H{"response": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// Search 处理 GET /history/search?q=&size=。
func (h *HistoryHandler) Search(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil {
		size = 0
	}
	hits, err := h.historyService.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"response": err.Error()})
		return
	}
	c.JSON(http.StatusOK, hits)
}

// DownloadPDF 处理 GET /download-pdf。先渲染到内存，失败时仍可返回 JSON 错误。
func (h *HistoryHandler) DownloadPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.exportService.RenderPDF(c.Request.Context(), &buf); err != nil {
		log.Error("[HistoryHandler] 导出 PDF 失败", err)
		c.JSON(statusFor(err), gin.H{"response": err.Error()})
		return
	}
	fileName := h.exportService.FileName(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
