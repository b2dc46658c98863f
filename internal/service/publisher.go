package service

import (
	"context"
	"time"

	"polyglot-chat/internal/model"
	"polyglot-chat/internal/repository"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/tasks"
)

// TurnPublisher 接收已落库的对话记录，用于下游索引。
type TurnPublisher interface {
	PublishTurn(ctx context.Context, task tasks.TurnIndexTask) error
}

// publishTimeout 限制单次发布的等待时间，发布端阻塞时不拖住对话流程。
var publishTimeout = 3 * time.Second

// recordTurn 写入一条记录并尽力发布；发布失败只记录日志，不影响调用方。
func recordTurn(ctx context.Context, repo repository.TurnRepository, publisher TurnPublisher, turn *model.ChatTurn) error {
	if err := repo.Append(ctx, turn); err != nil {
		log.Errorw("[History] 写入对话记录失败", "role", turn.Role, "error", err)
		return &StorageError{Op: "append", Err: err}
	}
	if publisher == nil {
		return nil
	}
	task := tasks.TurnIndexTask{
		TurnID:    turn.ID,
		Role:      string(turn.Role),
		Language:  turn.Language,
		Message:   turn.Message,
		CreatedAt: turn.CreatedAt,
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := publisher.PublishTurn(publishCtx, task); err != nil {
		log.Warnf("[History] 发布对话记录失败, turnID: %d, error: %v", turn.ID, err)
	}
	return nil
}
