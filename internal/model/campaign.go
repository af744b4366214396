package model

import (
	"time"
)

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusScheduled CampaignStatus = "scheduled"
)

// Campaign 营销活动
// 创建时为 draft; 真实 (非 dry-run) 批量发送启动的那一刻置为 sent 并记录 SentAt
type Campaign struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	MessageTemplate string         `gorm:"type:text;not null" json:"message_template"`
	Status          CampaignStatus `gorm:"size:10;not null;default:'draft';index" json:"status"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}
