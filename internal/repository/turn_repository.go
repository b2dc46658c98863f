// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"
	"time"

	"polyglot-chat/internal/model"

	"gorm.io/gorm"
)

// TurnRepository 定义了对话记录的持久化操作。
// 记录只能追加或整体清空，不存在更新操作。
type TurnRepository interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, turn *model.ChatTurn) error
	ListAll(ctx context.Context) ([]model.ChatTurn, error)
	ClearAll(ctx context.Context) error
}

type turnRepository struct {
	db *gorm.DB
}

// NewTurnRepository 创建一个新的 TurnRepository 实例。
func NewTurnRepository(db *gorm.DB) TurnRepository {
	return &turnRepository{db: db}
}

// EnsureSchema 在表不存在时创建 history 表。
// 多个实例并发启动时，建表冲突的一方重新检查表是否已存在。
func (r *turnRepository) EnsureSchema(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&model.ChatTurn{}); err != nil {
		if db.Migrator().HasTable(&model.ChatTurn{}) {
			return nil
		}
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Append 插入一条记录，并读回数据库写入的时间戳。
func (r *turnRepository) Append(ctx context.Context, turn *model.ChatTurn) error {
	turn.CreatedAt = time.Time{}
	db := r.db.WithContext(ctx)
	if err := db.Create(turn).Error; err != nil {
		return err
	}
	return db.Model(&model.ChatTurn{}).Select("created_at").Where("id = ?", turn.ID).Scan(&turn.CreatedAt).Error
}

// ListAll 按插入顺序返回全部记录。
func (r *turnRepository) ListAll(ctx context.Context) ([]model.ChatTurn, error) {
	turns := make([]model.ChatTurn, 0)
	err := r.db.WithContext(ctx).Order("id asc").Find(&turns).Error
	return turns, err
}

// ClearAll 无条件删除全部记录。
func (r *turnRepository) ClearAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.ChatTurn{}).Error
}
