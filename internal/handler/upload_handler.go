package handler

import (
	"net/http"

	"polyglot-chat/internal/service"
	"polyglot-chat/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理文件上传请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 处理 POST /upload，表单字段名为 file。
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"response": "No file received"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"response": "Invalid file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("[UploadHandler] 打开上传文件失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	reply, err := h.uploadService.Upload(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"response": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}
