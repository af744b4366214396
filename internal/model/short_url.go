package model

import (
	"time"
)

// ShortURL 短链接模型
// Code 全局唯一且创建后不可变; SendRecordID 仅在对应短信发送成功后回填,
// 发送失败的短链接保持可解析但没有归因信息
type ShortURL struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Code         string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	OriginalURL  string    `gorm:"type:text;not null" json:"original_url"`
	SendRecordID *uint     `gorm:"index" json:"send_record_id,omitempty"`
	ContactID    *uint     `gorm:"index" json:"contact_id,omitempty"`
	CampaignID   *uint     `gorm:"index" json:"campaign_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (ShortURL) TableName() string {
	return "short_urls"
}
