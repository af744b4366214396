package handler

import (
	"errors"
	"net/http"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/send"
	"sms-campaign-platform/internal/template"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendHandler 批量发送入口
type SendHandler struct {
	db           *gorm.DB
	orchestrator *send.Orchestrator
	logger       *zap.SugaredLogger
}

// NewSendHandler 创建发送处理器
func NewSendHandler(db *gorm.DB, orchestrator *send.Orchestrator, logger *zap.SugaredLogger) *SendHandler {
	return &SendHandler{db: db, orchestrator: orchestrator, logger: logger.Named("send_handler")}
}

// SendBatchRequest 批量发送请求
type SendBatchRequest struct {
	Recipients []send.Recipient `json:"recipients" binding:"required"`
	DryRun     bool             `json:"dry_run"`
	CampaignID *uint            `json:"campaign_id"`
}

// SendBatch godoc
// @Summary 批量发送短信
// @Description 逐个处理收件人并返回逐条结果与汇总; dry_run 时不产生任何副作用
// @Tags Send
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param batch body SendBatchRequest true "发送批次"
// @Success 200 {object} send.BatchResult
// @Failure 400 {object} gin.H "请求无效"
// @Router /api/send-sms [post]
func (h *SendHandler) SendBatch(c *gin.Context) {
	var req SendBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	// 指定了活动时, 没带消息文本的收件人用活动模板渲染
	if req.CampaignID != nil {
		if err := h.renderFromCampaign(req.Recipients, *req.CampaignID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
			return
		}
	}

	result, err := h.orchestrator.SendBatch(c.Request.Context(), req.Recipients, req.DryRun, req.CampaignID)
	if err != nil {
		if errors.Is(err, send.ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "没有指定任何收件人"})
			return
		}
		h.logger.Errorf("批量发送失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "短信发送过程中发生错误"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// renderFromCampaign 为消息为空但带联系人的收件人渲染活动模板
// 联系人不存在或号码缺失的收件人保持原样, 由编排器按空消息判失败
func (h *SendHandler) renderFromCampaign(recipients []send.Recipient, campaignID uint) error {
	var campaign model.Campaign
	if err := h.db.First(&campaign, campaignID).Error; err != nil {
		return err
	}

	for i := range recipients {
		if recipients[i].Message != "" || recipients[i].ContactID == nil {
			continue
		}

		var contact model.Contact
		if err := h.db.First(&contact, *recipients[i].ContactID).Error; err != nil {
			continue
		}

		variables := map[string]string{"phone_number": contact.PhoneNumber}
		if contact.Name != nil {
			variables["name"] = *contact.Name
		}
		recipients[i].Message = template.ReplaceVariables(campaign.MessageTemplate, variables)
		if recipients[i].Phone == "" {
			recipients[i].Phone = contact.PhoneNumber
		}
	}
	return nil
}
