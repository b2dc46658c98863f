package handler

import (
	"net/http"

	"polyglot-chat/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 注册全部路由。
func NewRouter(chat *ChatHandler, history *HistoryHandler, upload *UploadHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.Default())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Backend running"})
	})
	r.POST("/chat", chat.Chat)
	r.GET("/history", history.List)
	r.GET("/history/search", history.Search)
	r.POST("/clear-history", history.Clear)
	r.GET("/download-pdf", history.DownloadPDF)
	r.POST("/upload", upload.Upload)
	return r
}
