package model

import (
	"time"
)

// ClickEvent 点击事件, 只追加不更新
type ClickEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ShortURLID uint      `gorm:"not null;index" json:"short_url_id"`
	UserAgent  *string   `gorm:"type:text" json:"user_agent,omitempty"`
	IPAddress  *string   `gorm:"size:45" json:"ip_address,omitempty"`
	ClickedAt  time.Time `gorm:"autoCreateTime;index" json:"clicked_at"`
}

// TableName 指定表名
func (ClickEvent) TableName() string {
	return "click_events"
}
