package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/template"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContactHandler 联系人管理
type ContactHandler struct {
	db *gorm.DB
}

// NewContactHandler 创建联系人处理器
func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

// ContactInput 导入用的联系人数据
type ContactInput struct {
	PhoneNumber string   `json:"phone_number"`
	Name        *string  `json:"name"`
	Tags        []string `json:"tags"`
}

// ImportContactsRequest 批量导入请求
type ImportContactsRequest struct {
	Contacts []ContactInput `json:"contacts" binding:"required"`
}

// ImportCsvRequest CSV 导入请求
type ImportCsvRequest struct {
	Csv string `json:"csv" binding:"required"`
}

// UpdateContactRequest 更新联系人的请求
type UpdateContactRequest struct {
	Name     *string   `json:"name"`
	Tags     *[]string `json:"tags"`
	OptedOut *bool     `json:"opted_out"`
}

// ListContacts godoc
// @Summary 联系人列表
// @Tags Contact
// @Security ApiKeyAuth
// @Produce json
// @Param tag query string false "按标签过滤"
// @Param include_opted_out query bool false "是否包含已退订的联系人"
// @Success 200 {object} gin.H
// @Router /api/contacts [get]
func (h *ContactHandler) ListContacts(c *gin.Context) {
	query := h.db.Order("created_at DESC")
	if c.Query("include_opted_out") != "true" {
		query = query.Where("opted_out = ?", false)
	}

	var contacts []model.Contact
	if err := query.Find(&contacts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人获取失败"})
		return
	}

	// 标签存储为 JSON 序列化字段, 过滤在内存中完成
	if tag := c.Query("tag"); tag != "" {
		filtered := make([]model.Contact, 0, len(contacts))
		for _, contact := range contacts {
			if contact.HasTag(tag) {
				filtered = append(filtered, contact)
			}
		}
		contacts = filtered
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// ImportContacts godoc
// @Summary 批量导入联系人
// @Description 电话号码重复的条目会被跳过而不是整批拒绝
// @Tags Contact
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param contacts body ImportContactsRequest true "联系人列表"
// @Success 200 {object} gin.H
// @Failure 400 {object} gin.H "请求无效"
// @Router /api/contacts [post]
func (h *ContactHandler) ImportContacts(c *gin.Context) {
	var req ImportContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "联系人数据是必填项"})
		return
	}
	h.importContacts(c, req.Contacts)
}

// ImportContactsCsv godoc
// @Summary 从 CSV 导入联系人
// @Description 第一行是表头, 需要 phone_number 列; tags 列用分号分隔
// @Tags Contact
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param csv body ImportCsvRequest true "CSV 文本"
// @Success 200 {object} gin.H
// @Failure 400 {object} gin.H "请求无效"
// @Router /api/contacts/import [post]
func (h *ContactHandler) ImportContactsCsv(c *gin.Context) {
	var req ImportCsvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV 文本是必填项"})
		return
	}

	parsed := template.ParseCsv(req.Csv)
	inputs := make([]ContactInput, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		input := ContactInput{PhoneNumber: row["phone_number"]}
		if name := row["name"]; name != "" {
			input.Name = &name
		}
		if tags := row["tags"]; tags != "" {
			for _, tag := range strings.Split(tags, ";") {
				if tag = strings.TrimSpace(tag); tag != "" {
					input.Tags = append(input.Tags, tag)
				}
			}
		}
		inputs = append(inputs, input)
	}
	h.importContacts(c, inputs)
}

// importContacts 跳过重复号码后写入其余条目
func (h *ContactHandler) importContacts(c *gin.Context, inputs []ContactInput) {
	if len(inputs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有可导入的联系人"})
		return
	}

	phones := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if input.PhoneNumber != "" {
			phones = append(phones, input.PhoneNumber)
		}
	}

	var existing []model.Contact
	if len(phones) > 0 {
		if err := h.db.Where("phone_number IN ?", phones).Find(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人导入失败"})
			return
		}
	}
	existingPhones := make(map[string]struct{}, len(existing))
	for _, contact := range existing {
		existingPhones[contact.PhoneNumber] = struct{}{}
	}

	newContacts := make([]model.Contact, 0, len(inputs))
	for _, input := range inputs {
		if input.PhoneNumber == "" {
			continue
		}
		if _, dup := existingPhones[input.PhoneNumber]; dup {
			continue
		}
		// 同一批次内的重复也只保留第一条
		existingPhones[input.PhoneNumber] = struct{}{}
		tags := input.Tags
		if tags == nil {
			tags = []string{}
		}
		newContacts = append(newContacts, model.Contact{
			PhoneNumber: input.PhoneNumber,
			Name:        input.Name,
			Tags:        tags,
		})
	}

	if len(newContacts) > 0 {
		if err := h.db.Create(&newContacts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人导入失败"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"added":      len(newContacts),
		"duplicates": len(inputs) - len(newContacts),
		"total":      len(inputs),
	})
}

// UpdateContact godoc
// @Summary 更新联系人
// @Description 设置 opted_out 为 true 时会同时记录退订时间
// @Tags Contact
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "联系人 ID"
// @Param contact body UpdateContactRequest true "更新字段"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "联系人不存在"
// @Router /api/contacts/{id} [patch]
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	contactID, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	var contact model.Contact
	if err := h.db.First(&contact, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "联系人不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人获取失败"})
		return
	}

	if req.Name != nil {
		contact.Name = req.Name
	}
	if req.Tags != nil {
		contact.Tags = *req.Tags
	}
	if req.OptedOut != nil {
		contact.OptedOut = *req.OptedOut
		if *req.OptedOut {
			now := time.Now()
			contact.OptedOutAt = &now
		} else {
			contact.OptedOutAt = nil
		}
	}

	if err := h.db.Save(&contact).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人更新失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// DeleteContact godoc
// @Summary 删除联系人
// @Tags Contact
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "联系人 ID"
// @Success 200 {object} gin.H
// @Router /api/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	contactID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.db.Delete(&model.Contact{}, contactID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "联系人删除失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}
