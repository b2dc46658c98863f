// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Role 表示一条对话记录的发言方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// LanguageFile 是上传文件事件使用的语言占位符。
const LanguageFile = "file"

// ChatTurn 对应于数据库中的 history 表，是一条只追加、不可修改的对话记录。
// 记录之间没有会话关联，插入顺序（ID 递增）即为唯一的排序依据。
// CreatedAt 由数据库在插入时写入，多个实例共用同一个时钟。
type ChatTurn struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	Language  string    `gorm:"type:varchar(16);not null" json:"language"`
	Message   string    `gorm:"type:longtext;not null" json:"message"`
	CreatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP;autoCreateTime:false" json:"timestamp"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatTurn) TableName() string {
	return "history"
}

// TurnDTO 定义了 /history 接口返回给前端的结构。
type TurnDTO struct {
	Role      Role      `json:"role"`
	Language  string    `json:"language"`
	Message   string    `json:"message"`
	Timestamp LocalTime `json:"timestamp"`
}

// ToDTO 将数据库记录转换为接口返回结构。
func (t ChatTurn) ToDTO() TurnDTO {
	return TurnDTO{
		Role:      t.Role,
		Language:  t.Language,
		Message:   t.Message,
		Timestamp: LocalTime(t.CreatedAt),
	}
}

// TurnSearchHit 是全文检索返回的单条结果。
type TurnSearchHit struct {
	TurnDTO
	Score float64 `json:"score"`
}
