package database

import (
	"context"

	"polyglot-chat/internal/config"
	"polyglot-chat/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 为 nil 表示未启用 Redis。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接，地址为空时跳过。
func InitRedis(cfg config.RedisConfig) {
	if cfg.Addr == "" {
		log.Info("未配置 Redis，翻译缓存与重试计数已禁用")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := RDB.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
