// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polyglot-chat/internal/config"
	"polyglot-chat/internal/handler"
	"polyglot-chat/internal/pipeline"
	"polyglot-chat/internal/repository"
	"polyglot-chat/internal/service"
	"polyglot-chat/pkg/database"
	"polyglot-chat/pkg/es"
	"polyglot-chat/pkg/kafka"
	"polyglot-chat/pkg/llm"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/storage"
	"polyglot-chat/pkg/translate"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 1. 加载 .env（可缺省）并初始化配置
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
	}
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL)
	defer database.CloseMySQL()
	database.InitRedis(cfg.Database.Redis)

	turnRepo := repository.NewTurnRepository(database.DB)
	if err := turnRepo.EnsureSchema(rootCtx); err != nil {
		log.Fatal("初始化 history 表失败", err)
	}

	// 4. 初始化外部网关
	baseTranslator, err := translate.NewClient(rootCtx, cfg.Translation)
	if err != nil {
		log.Fatal("初始化翻译客户端失败", err)
	}
	translator := translate.NewCachedClient(baseTranslator, database.RDB, cfg.Translation.CacheTTL)

	llmClient, err := llm.NewClient(cfg.Model)
	if err != nil {
		log.Fatal("初始化模型客户端失败", err)
	}

	fileStore, err := storage.NewFileStore(rootCtx, cfg.Upload, cfg.MinIO)
	if err != nil {
		log.Fatal("初始化文件存储失败", err)
	}

	// 5. 可选的检索索引与消息队列
	var (
		publisher service.TurnPublisher
		index     service.SearchIndex
	)
	if cfg.Elasticsearch.Addresses != "" {
		turnIndex, err := es.NewTurnIndex(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("es 初始化失败", err)
		}
		index = turnIndex
		processor := pipeline.NewProcessor(turnIndex)
		if cfg.Kafka.Brokers != "" {
			producer := kafka.NewProducer(cfg.Kafka)
			defer producer.Close()
			publisher = producer
			// 启动后台 Kafka 消费者
			go kafka.StartConsumer(rootCtx, cfg.Kafka, processor, database.RDB)
		} else {
			publisher = processor
		}
	} else if cfg.Kafka.Brokers != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
	}

	// 6. 初始化 Service (依赖注入)
	chatService := service.NewChatService(translator, llmClient, turnRepo, publisher, cfg.Chat.PivotLanguage)
	historyService := service.NewHistoryService(turnRepo, index)
	uploadService := service.NewUploadService(fileStore, turnRepo, publisher, cfg.Chat.PivotLanguage, cfg.Upload.MaxFileSize)
	exportService := service.NewExportService(turnRepo, service.ExportOptions{
		Title:    cfg.Export.Title,
		FontPath: cfg.Export.FontPath,
		Compress: true,
	})

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(
		handler.NewChatHandler(chatService),
		handler.NewHistoryHandler(historyService, exportService),
		handler.NewUploadHandler(uploadService),
	)
	r.MaxMultipartMemory = cfg.Upload.MaxFileSize

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")
	stop()

	// 模型调用可能持续到超时，关机等待时间需覆盖它
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Model.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
