package translate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"polyglot-chat/pkg/log"

	"github.com/go-redis/redis/v8"
)

// cachedClient 在 Redis 中缓存翻译成功的结果，语言检测不缓存。
type cachedClient struct {
	Client
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedClient 为 inner 包装一层 Redis 缓存；rdb 为 nil 时直接返回 inner。
func NewCachedClient(inner Client, rdb *redis.Client, ttl time.Duration) Client {
	if rdb == nil {
		return inner
	}
	return &cachedClient{Client: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(text, source, target string) string {
	sum := sha1.Sum([]byte(text))
	return "translate:" + strings.ToLower(source) + ":" + strings.ToLower(target) + ":" + hex.EncodeToString(sum[:])
}

func (c *cachedClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)
	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		log.Warnf("[TranslateCache] 读取缓存失败, key: %s, error: %v", key, err)
	}

	translated, err := c.Client.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, translated, c.ttl).Err(); err != nil {
		log.Warnf("[TranslateCache] 写入缓存失败, key: %s, error: %v", key, err)
	}
	return translated, nil
}
