// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"polyglot-chat/internal/config"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单条消息的最大处理次数，达到后提交 offset 放弃重试。
const maxAttempts = 3

// TaskProcessor 定义了处理对话记录索引任务的接口，使消费者与具体的 pipeline 实现解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.TurnIndexTask) error
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer 将已落库的对话记录异步发送到 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。写入为异步模式，发送失败只记录日志。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokerList(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("发送 Kafka 消息失败, count: %d, error: %v", len(messages), err)
			}
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishTurn 发送一个对话记录索引任务到 Kafka。
func (p *Producer) PublishTurn(ctx context.Context, task tasks.TurnIndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", task.TurnID)),
		Value: taskBytes,
	})
}

// Close 刷新缓冲区中的消息并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// 重试与拉取失败时的等待间隔，测试中可调小。
var (
	retryBackoff = time.Second
	fetchBackoff = 2 * time.Second
)

// StartConsumer 启动一个 Kafka 消费者来处理对话记录索引任务，只在 ctx 取消后退出。
// rdb 用于跨重启累计失败次数；为 nil 时只在本进程内计数。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor, rdb)
}

// messageReader 是 *kafka.Reader 中消费循环用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// consume 是消费主循环。拉取失败时等待后重试，只在 ctx 取消后返回。
func consume(ctx context.Context, r messageReader, processor TaskProcessor, rdb *redis.Client) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败，稍后重试", err)
			if !sleepCtx(ctx, fetchBackoff) {
				return
			}
			continue
		}

		// 未处理完（ctx 取消）的消息不提交，重启后重新投递
		if handleMessage(ctx, processor, rdb, m.Value) {
			commit(ctx, r, m)
		}
	}
}

// handleMessage 解析并处理一条消息。失败时在原地重试，直到成功或累计失败达到 maxAttempts，
// 这样在提交更新的 offset 之前，当前消息不会被跳过。返回 false 表示 ctx 已取消。
func handleMessage(ctx context.Context, processor TaskProcessor, rdb *redis.Client, value []byte) bool {
	var task tasks.TurnIndexTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	for local := 1; ; local++ {
		err := processor.Process(ctx, task)
		if err == nil {
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey(task.TurnID)).Err()
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		attempts := countFailure(ctx, rdb, task.TurnID, local)
		log.Errorf("处理索引任务失败: turnID=%d, attempts=%d, Error: %v", task.TurnID, attempts, err)
		if attempts >= maxAttempts {
			log.Errorf("索引任务多次失败(>=%d)，提交 offset 放弃重试: turnID=%d", maxAttempts, task.TurnID)
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey(task.TurnID)).Err()
			}
			return true
		}
		if !sleepCtx(ctx, time.Duration(attempts)*retryBackoff) {
			return false
		}
	}
}

func attemptsKey(turnID uint) string {
	return fmt.Sprintf("kafka:attempts:turn:%d", turnID)
}

// countFailure 返回该任务累计的失败次数。Redis 中的计数在重启后仍然有效；
// Redis 不可用时退回到本进程内的计数 local。
func countFailure(ctx context.Context, rdb *redis.Client, turnID uint, local int) int {
	if rdb == nil {
		return local
	}
	key := attemptsKey(turnID)
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Warnf("Redis 计数失败, key: %s, error: %v", key, err)
		return local
	}
	_ = rdb.Expire(ctx, key, 24*time.Hour).Err()
	if int(n) < local {
		return local
	}
	return int(n)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
