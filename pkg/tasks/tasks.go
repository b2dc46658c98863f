// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// TurnIndexTask 描述一条已落库的对话记录，由生产者发送、消费者写入检索索引。
type TurnIndexTask struct {
	TurnID    uint      `json:"turn_id"`
	Role      string    `json:"role"`
	Language  string    `json:"language"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
