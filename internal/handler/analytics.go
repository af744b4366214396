package handler

import (
	"errors"
	"net/http"
	"strconv"

	"sms-campaign-platform/internal/analytics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalyticsHandler 统计视图入口
type AnalyticsHandler struct {
	aggregator *analytics.Aggregator
	logger     *zap.SugaredLogger
}

// NewAnalyticsHandler 创建统计处理器
func NewAnalyticsHandler(aggregator *analytics.Aggregator, logger *zap.SugaredLogger) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator, logger: logger.Named("analytics_handler")}
}

// GetAnalytics godoc
// @Summary 获取统计数据
// @Description 不带 campaign_id 返回全部已发送活动的概览, 带上则返回该活动的详情与按联系人的点击归因
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce json
// @Param campaign_id query int false "活动 ID"
// @Success 200 {object} analytics.OverallReport
// @Failure 404 {object} gin.H "活动不存在"
// @Router /api/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	campaignParam := c.Query("campaign_id")
	if campaignParam == "" {
		report, err := h.aggregator.Overall()
		if err != nil {
			h.logger.Errorf("概览统计计算失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "统计数据获取失败"})
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	campaignID, err := strconv.ParseUint(campaignParam, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动 ID"})
		return
	}

	report, err := h.aggregator.CampaignDetail(uint(campaignID))
	if err != nil {
		if errors.Is(err, analytics.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
			return
		}
		h.logger.Errorf("活动统计计算失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计数据获取失败"})
		return
	}

	c.JSON(http.StatusOK, report)
}
