package model

import (
	"time"
)

// SendStatus 发送记录的终态, 记录创建后不再变更
type SendStatus string

const (
	SendStatusSuccess SendStatus = "success"
	SendStatusFailed  SendStatus = "failed"
)

// SendRecord 一次短信发送尝试的持久化日志
// Message 保存实际发出的文本 (已完成变量替换和短链接改写)
type SendRecord struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	PhoneNumber  string     `gorm:"size:20;not null;index" json:"phone_number"`
	Message      string     `gorm:"type:text;not null" json:"message"`
	Status       SendStatus `gorm:"size:10;not null;index" json:"status"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	ContactID    *uint      `gorm:"index" json:"contact_id,omitempty"`
	CampaignID   *uint      `gorm:"index" json:"campaign_id,omitempty"`
	SentAt       time.Time  `gorm:"autoCreateTime;index" json:"sent_at"`
}

// TableName 指定表名
func (SendRecord) TableName() string {
	return "send_records"
}
