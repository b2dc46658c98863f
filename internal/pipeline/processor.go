// Package pipeline 定义了对话记录从落库到检索索引的处理流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/tasks"
)

// TurnIndexer 是写入检索索引的最小接口。
type TurnIndexer interface {
	IndexTurn(ctx context.Context, task tasks.TurnIndexTask) error
}

// Processor 封装了索引任务的处理逻辑。
type Processor struct {
	indexer TurnIndexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(indexer TurnIndexer) *Processor {
	return &Processor{indexer: indexer}
}

// Process 校验任务并写入索引。由 Kafka 消费者调用，也可以在未启用 Kafka 时直接调用。
func (p *Processor) Process(ctx context.Context, task tasks.TurnIndexTask) error {
	if task.TurnID == 0 {
		return errors.New("索引任务缺少 turn_id")
	}
	if task.Message == "" {
		log.Warnf("[Processor] 对话记录正文为空, 跳过索引, turnID: %d", task.TurnID)
		return nil
	}
	if err := p.indexer.IndexTurn(ctx, task); err != nil {
		return fmt.Errorf("写入检索索引失败: %w", err)
	}
	log.Infof("[Processor] 对话记录已索引, turnID: %d, role: %s", task.TurnID, task.Role)
	return nil
}

// PublishTurn 让 Processor 在没有 Kafka 时直接充当发布者，同步写入索引。
func (p *Processor) PublishTurn(ctx context.Context, task tasks.TurnIndexTask) error {
	return p.Process(ctx, task)
}
