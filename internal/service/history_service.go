package service

import (
	"context"
	"strings"

	"polyglot-chat/internal/model"
	"polyglot-chat/internal/repository"
	"polyglot-chat/pkg/log"
)

// SearchIndex 定义了对话记录检索索引的操作。
type SearchIndex interface {
	SearchTurns(ctx context.Context, query string, size int) ([]model.TurnSearchHit, error)
	ClearTurns(ctx context.Context) error
}

// HistoryService 定义了对话历史的业务操作。
type HistoryService interface {
	List(ctx context.Context) ([]model.TurnDTO, error)
	Clear(ctx context.Context) error
	Search(ctx context.Context, query string, size int) ([]model.TurnSearchHit, error)
}

type historyService struct {
	turnRepo repository.TurnRepository
	index    SearchIndex
}

// NewHistoryService 创建一个新的 HistoryService。index 为 nil 表示未启用检索。
func NewHistoryService(turnRepo repository.TurnRepository, index SearchIndex) HistoryService {
	return &historyService{turnRepo: turnRepo, index: index}
}

// List 按插入顺序返回完整的对话记录。
func (s *historyService) List(ctx context.Context) ([]model.TurnDTO, error) {
	turns, err := s.turnRepo.ListAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	dtos := make([]model.TurnDTO, 0, len(turns))
	for _, t := range turns {
		dtos = append(dtos, t.ToDTO())
	}
	return dtos, nil
}

// Clear 删除全部对话记录。检索索引的清理是尽力而为的。
func (s *historyService) Clear(ctx context.Context) error {
	if err := s.turnRepo.ClearAll(ctx); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	log.Info("[History] 对话记录已清空")
	if s.index != nil {
		if err := s.index.ClearTurns(ctx); err != nil {
			log.Warnf("[History] 清理检索索引失败: %v", err)
		}
	}
	return nil
}

// Search 在检索索引中全文搜索对话记录。
func (s *historyService) Search(ctx context.Context, query string, size int) ([]model.TurnSearchHit, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Message: "query is required"}
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	hits, err := s.index.SearchTurns(ctx, query, size)
	if err != nil {
		return nil, &StorageError{Op: "search", Err: err}
	}
	return hits, nil
}
