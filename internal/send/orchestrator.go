package send

import (
	"context"
	"errors"
	"time"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/shorturl"
	"sms-campaign-platform/internal/sideeffect"
	"sms-campaign-platform/internal/sms"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEmptyBatch 表示请求中没有任何收件人
var ErrEmptyBatch = errors.New("送信先が指定されていません")

// Recipient 一个收件人及其已渲染的消息文本
type Recipient struct {
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	ContactID *uint  `json:"contact_id,omitempty"`
}

// RecipientResult 单个收件人的发送结果
type RecipientResult struct {
	Phone   string `json:"phone"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResult 整个批次的汇总
type BatchResult struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	DryRun  bool              `json:"dry_run"`
	Results []RecipientResult `json:"results"`
}

// Orchestrator 批量发送编排器
// 同一批次内按输入顺序逐个处理收件人, 结果顺序与输入顺序一致;
// 单个收件人的失败不会中断其余收件人的处理
type Orchestrator struct {
	db       *gorm.DB
	gateway  sms.Gateway
	rewriter *shorturl.Rewriter
	registry *shorturl.Registry
	logger   *zap.SugaredLogger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(db *gorm.DB, gateway sms.Gateway, rewriter *shorturl.Rewriter, registry *shorturl.Registry, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		db:       db,
		gateway:  gateway,
		rewriter: rewriter,
		registry: registry,
		logger:   logger.Named("send_orchestrator"),
	}
}

// SendBatch 处理一个发送批次
// dryRun 为 true 时只做校验并模拟成功, 不触发改写、网关调用或任何持久化写入
func (o *Orchestrator) SendBatch(ctx context.Context, recipients []Recipient, dryRun bool, campaignID *uint) (*BatchResult, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyBatch
	}

	// 真实发送启动的那一刻就把活动置为 sent, 而不是等全部发完
	if !dryRun && campaignID != nil {
		o.markCampaignSent(*campaignID)
	}

	result := &BatchResult{
		Total:   len(recipients),
		DryRun:  dryRun,
		Results: make([]RecipientResult, 0, len(recipients)),
	}

	for _, recipient := range recipients {
		outcome := o.processOne(ctx, recipient, dryRun, campaignID)
		if outcome.Success {
			result.Success++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, outcome)
	}

	return result, nil
}

// processOne 处理单个收件人, 永远返回一个确定的结果
func (o *Orchestrator) processOne(ctx context.Context, recipient Recipient, dryRun bool, campaignID *uint) RecipientResult {
	if recipient.Phone == "" || recipient.Message == "" {
		phone := recipient.Phone
		if phone == "" {
			phone = "不明"
		}
		return RecipientResult{Phone: phone, Success: false, Error: "电话号码或消息为空"}
	}

	if dryRun {
		return RecipientResult{Phone: recipient.Phone, Success: true}
	}

	// 先改写短链接再交给网关; 改写失败时 rewriter 内部会回退为原始消息
	processed, minted := o.rewriter.Rewrite(recipient.Message, recipient.ContactID, campaignID)

	sent := o.gateway.Send(ctx, recipient.Phone, processed)
	if sent.Success {
		o.logOutcome(recipient, processed, model.SendStatusSuccess, nil, campaignID, minted)
		return RecipientResult{Phone: recipient.Phone, Success: true}
	}

	reason := sent.Error
	o.logOutcome(recipient, processed, model.SendStatusFailed, &reason, campaignID, nil)
	return RecipientResult{Phone: recipient.Phone, Success: false, Error: reason}
}

// logOutcome 持久化发送记录并回填短链接归因, 全部尽力而为
// 旁路写入失败不改变已经算出的收件人结果
func (o *Orchestrator) logOutcome(recipient Recipient, message string, status model.SendStatus, errorMessage *string, campaignID *uint, minted []*model.ShortURL) {
	record := model.SendRecord{
		PhoneNumber:  recipient.Phone,
		Message:      message,
		Status:       status,
		ErrorMessage: errorMessage,
		ContactID:    recipient.ContactID,
		CampaignID:   campaignID,
	}

	if err := o.db.Create(&record).Error; err != nil {
		o.logger.Errorf("发送记录写入失败 (已忽略): %v", err)
		return
	}

	for _, link := range minted {
		link := link
		sideeffect.Run(o.logger, "短链接关联发送记录", func() error {
			return o.registry.LinkToSendRecord(link.ID, record.ID)
		})
	}
}

// markCampaignSent 将活动置为 sent 并记录时间戳
func (o *Orchestrator) markCampaignSent(campaignID uint) {
	now := time.Now()
	sideeffect.Run(o.logger, "活动状态更新", func() error {
		return o.db.Model(&model.Campaign{}).
			Where("id = ?", campaignID).
			Updates(map[string]interface{}{
				"status":  model.CampaignStatusSent,
				"sent_at": now,
			}).Error
	})
}
