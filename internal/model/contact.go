package model

import (
	"time"
)

// Contact 联系人
// PhoneNumber 全局唯一, 批量导入时重复号码会被跳过而不是整批拒绝
type Contact struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	PhoneNumber string     `gorm:"size:20;uniqueIndex;not null" json:"phone_number"`
	Name        *string    `gorm:"size:100" json:"name,omitempty"`
	Tags        []string   `gorm:"serializer:json" json:"tags"`
	OptedOut    bool       `gorm:"default:false;index" json:"opted_out"`
	OptedOutAt  *time.Time `json:"opted_out_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}

// HasTag 判断联系人是否带有指定标签
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
