package handler

import (
	"net/http"
	"strconv"

	"sms-campaign-platform/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultLogLimit = 100

// LogHandler 发送记录查询
type LogHandler struct {
	db *gorm.DB
}

// NewLogHandler 创建日志处理器
func NewLogHandler(db *gorm.DB) *LogHandler {
	return &LogHandler{db: db}
}

// ListLogs godoc
// @Summary 发送记录列表
// @Description 按发送时间倒序返回最近的发送记录
// @Tags Log
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "返回条数上限, 默认 100"
// @Success 200 {object} gin.H
// @Router /api/logs [get]
func (h *LogHandler) ListLogs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 limit 参数"})
			return
		}
		limit = parsed
	}

	var records []model.SendRecord
	if err := h.db.Order("sent_at DESC").Limit(limit).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "发送记录获取失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": records})
}
