package shorturl

import (
	"sms-campaign-platform/internal/model"

	"gorm.io/gorm"
)

// ClickRecorder 追加点击事件
type ClickRecorder struct {
	db *gorm.DB
}

// NewClickRecorder 创建点击记录器
func NewClickRecorder(db *gorm.DB) *ClickRecorder {
	return &ClickRecorder{db: db}
}

// Record 为指定短链接追加一条点击事件
// 调用方 (重定向处理器) 负责吞掉这里的错误, 点击记录永远不能拖慢或阻断重定向
func (c *ClickRecorder) Record(shortURLID uint, userAgent, ipAddress *string) error {
	event := model.ClickEvent{
		ShortURLID: shortURLID,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}
	return c.db.Create(&event).Error
}
