package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/template"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CampaignHandler 活动管理
type CampaignHandler struct {
	db *gorm.DB
}

// NewCampaignHandler 创建活动处理器
func NewCampaignHandler(db *gorm.DB) *CampaignHandler {
	return &CampaignHandler{db: db}
}

// CreateCampaignRequest 创建活动的请求
type CreateCampaignRequest struct {
	Name            string `json:"name" binding:"required"`
	MessageTemplate string `json:"message_template" binding:"required"`
	Status          string `json:"status"`
}

// UpdateCampaignRequest 更新活动的请求, 均为可选字段
type UpdateCampaignRequest struct {
	Name            *string `json:"name"`
	MessageTemplate *string `json:"message_template"`
	Status          *string `json:"status"`
}

// parseCampaignStatus 将请求中的状态字符串转换为封闭的枚举值
func parseCampaignStatus(raw string) (model.CampaignStatus, bool) {
	switch model.CampaignStatus(raw) {
	case model.CampaignStatusDraft, model.CampaignStatusSent, model.CampaignStatusScheduled:
		return model.CampaignStatus(raw), true
	default:
		return "", false
	}
}

// ListCampaigns godoc
// @Summary 活动列表
// @Tags Campaign
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "按状态过滤 (draft/sent/scheduled)"
// @Success 200 {object} gin.H
// @Router /api/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	query := h.db.Order("created_at DESC")
	if raw := c.Query("status"); raw != "" {
		status, ok := parseCampaignStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动状态: " + raw})
			return
		}
		query = query.Where("status = ?", status)
	}

	var campaigns []model.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "活动列表获取失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// CreateCampaign godoc
// @Summary 创建活动
// @Tags Campaign
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param campaign body CreateCampaignRequest true "活动信息"
// @Success 201 {object} gin.H
// @Failure 400 {object} gin.H "请求无效"
// @Router /api/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "活动名称和消息模板是必填项"})
		return
	}

	status := model.CampaignStatusDraft
	if req.Status != "" {
		parsed, ok := parseCampaignStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动状态: " + req.Status})
			return
		}
		status = parsed
	}

	campaign := model.Campaign{
		Name:            req.Name,
		MessageTemplate: req.MessageTemplate,
		Status:          status,
	}
	if err := h.db.Create(&campaign).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "活动创建失败"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": campaign})
}

// UpdateCampaign godoc
// @Summary 更新活动
// @Tags Campaign
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "活动 ID"
// @Param campaign body UpdateCampaignRequest true "更新字段"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "活动不存在"
// @Router /api/campaigns/{id} [patch]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	campaignID, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	var campaign model.Campaign
	if err := h.db.First(&campaign, campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "活动获取失败"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.MessageTemplate != nil {
		updates["message_template"] = *req.MessageTemplate
	}
	if req.Status != nil {
		status, ok := parseCampaignStatus(*req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动状态: " + *req.Status})
			return
		}
		updates["status"] = status
		if status == model.CampaignStatusSent && campaign.SentAt == nil {
			updates["sent_at"] = time.Now()
		}
	}

	if len(updates) > 0 {
		if err := h.db.Model(&campaign).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "活动更新失败"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"campaign": campaign})
}

// DeleteCampaign godoc
// @Summary 删除活动
// @Tags Campaign
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "活动 ID"
// @Success 200 {object} gin.H
// @Router /api/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	campaignID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.db.Delete(&model.Campaign{}, campaignID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "活动删除失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// PreviewCampaign godoc
// @Summary 活动消息预览
// @Description 用指定联系人的资料渲染活动模板, 返回替换后的消息和模板引用的变量
// @Tags Campaign
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "活动 ID"
// @Param contact_id query int true "联系人 ID"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "活动或联系人不存在"
// @Router /api/campaigns/{id}/preview [get]
func (h *CampaignHandler) PreviewCampaign(c *gin.Context) {
	campaignID, ok := pathID(c)
	if !ok {
		return
	}

	contactID, err := strconv.ParseUint(c.Query("contact_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的联系人 ID"})
		return
	}

	var campaign model.Campaign
	if err := h.db.First(&campaign, campaignID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
		return
	}

	var contact model.Contact
	if err := h.db.First(&contact, contactID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "联系人不存在"})
		return
	}

	variables := map[string]string{
		"phone_number": contact.PhoneNumber,
	}
	if contact.Name != nil {
		variables["name"] = *contact.Name
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   template.ReplaceVariables(campaign.MessageTemplate, variables),
		"variables": template.ExtractVariables(campaign.MessageTemplate),
	})
}

// pathID 解析路径中的 :id 参数, 解析失败时直接响应 400
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 ID"})
		return 0, false
	}
	return uint(id), true
}
