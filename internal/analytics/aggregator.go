package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sms-campaign-platform/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrCampaignNotFound 表示请求的活动不存在
var ErrCampaignNotFound = errors.New("活动不存在")

// CampaignStats 单个活动的投递与点击统计
type CampaignStats struct {
	CampaignID       uint       `json:"campaign_id"`
	CampaignName     string     `json:"campaign_name"`
	SentAt           *time.Time `json:"sent_at"`
	TotalSent        int        `json:"total_sent"`
	SuccessCount     int        `json:"success_count"`
	FailedCount      int        `json:"failed_count"`
	ClickCount       int        `json:"click_count"`
	UniqueClickCount int        `json:"unique_click_count"`
	ClickRate        int        `json:"click_rate"`
}

// OverallStats 所有已发送活动的汇总
type OverallStats struct {
	TotalCampaigns   int `json:"total_campaigns"`
	TotalSent        int `json:"total_sent"`
	TotalSuccess     int `json:"total_success"`
	TotalFailed      int `json:"total_failed"`
	TotalClicks      int `json:"total_clicks"`
	OverallClickRate int `json:"overall_click_rate"`
}

// OverallReport 概览视图
type OverallReport struct {
	Overall   OverallStats    `json:"overall"`
	Campaigns []CampaignStats `json:"campaigns"`
}

// ContactClicks 按联系人聚合的点击归因
type ContactClicks struct {
	ContactID      *uint     `json:"contact_id"`
	PhoneNumber    string    `json:"phone_number"`
	ContactName    *string   `json:"contact_name"`
	ClickCount     int       `json:"click_count"`
	FirstClickedAt time.Time `json:"first_clicked_at"`
	LastClickedAt  time.Time `json:"last_clicked_at"`
}

// CampaignReport 单个活动的详情视图
type CampaignReport struct {
	Campaign        CampaignStats   `json:"campaign"`
	ClicksByContact []ContactClicks `json:"clicks_by_contact"`
}

// Aggregator 只读统计视图, 每次请求按需计算, 不做缓存或物化
type Aggregator struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewAggregator 创建统计聚合器
func NewAggregator(db *gorm.DB, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{db: db, logger: logger.Named("analytics")}
}

// clickRate 点击率 = 去重点击数 / 成功发送数, 取整百分比
// 成功数为 0 时返回 0, 避免除零
func clickRate(uniqueClicks, successCount int) int {
	if successCount <= 0 {
		return 0
	}
	return int(math.Round(float64(uniqueClicks) / float64(successCount) * 100))
}

// Overall 计算全部已发送活动的统计和总体汇总
func (a *Aggregator) Overall() (*OverallReport, error) {
	var campaigns []model.Campaign
	if err := a.db.Where("status = ?", model.CampaignStatusSent).
		Order("sent_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, err
	}

	report := &OverallReport{Campaigns: make([]CampaignStats, 0, len(campaigns))}
	if len(campaigns) == 0 {
		return report, nil
	}

	campaignIDs := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		campaignIDs = append(campaignIDs, c.ID)
	}

	var records []model.SendRecord
	if err := a.db.Where("campaign_id IN ?", campaignIDs).Find(&records).Error; err != nil {
		return nil, err
	}

	var shortURLs []model.ShortURL
	if err := a.db.Where("campaign_id IN ?", campaignIDs).Find(&shortURLs).Error; err != nil {
		return nil, err
	}

	clicks, err := a.clicksFor(shortURLs)
	if err != nil {
		return nil, err
	}

	// 每条短链接属于哪个活动
	campaignByShortURL := make(map[uint]uint, len(shortURLs))
	for _, s := range shortURLs {
		if s.CampaignID != nil {
			campaignByShortURL[s.ID] = *s.CampaignID
		}
	}

	totalUniqueClicks := 0
	var overall OverallStats
	for _, campaign := range campaigns {
		stats := CampaignStats{
			CampaignID:   campaign.ID,
			CampaignName: campaign.Name,
			SentAt:       campaign.SentAt,
		}

		for _, record := range records {
			if record.CampaignID == nil || *record.CampaignID != campaign.ID {
				continue
			}
			stats.TotalSent++
			switch record.Status {
			case model.SendStatusSuccess:
				stats.SuccessCount++
			case model.SendStatusFailed:
				stats.FailedCount++
			}
		}

		clickedShortURLs := make(map[uint]struct{})
		for _, click := range clicks {
			if campaignByShortURL[click.ShortURLID] != campaign.ID {
				continue
			}
			stats.ClickCount++
			clickedShortURLs[click.ShortURLID] = struct{}{}
		}
		stats.UniqueClickCount = len(clickedShortURLs)
		stats.ClickRate = clickRate(stats.UniqueClickCount, stats.SuccessCount)

		overall.TotalSent += stats.TotalSent
		overall.TotalSuccess += stats.SuccessCount
		overall.TotalFailed += stats.FailedCount
		overall.TotalClicks += stats.ClickCount
		totalUniqueClicks += stats.UniqueClickCount

		report.Campaigns = append(report.Campaigns, stats)
	}

	overall.TotalCampaigns = len(campaigns)
	// 总体点击率用各活动去重点击数之和除以成功数之和
	overall.OverallClickRate = clickRate(totalUniqueClicks, overall.TotalSuccess)
	report.Overall = overall

	return report, nil
}

// CampaignDetail 计算单个活动的统计及按联系人的点击归因
func (a *Aggregator) CampaignDetail(campaignID uint) (*CampaignReport, error) {
	var campaign model.Campaign
	if err := a.db.First(&campaign, campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	var records []model.SendRecord
	if err := a.db.Where("campaign_id = ?", campaignID).Find(&records).Error; err != nil {
		return nil, err
	}

	var shortURLs []model.ShortURL
	if err := a.db.Where("campaign_id = ?", campaignID).Find(&shortURLs).Error; err != nil {
		return nil, err
	}

	clicks, err := a.clicksFor(shortURLs)
	if err != nil {
		return nil, err
	}

	contacts, err := a.contactsFor(shortURLs)
	if err != nil {
		return nil, err
	}

	stats := CampaignStats{
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		SentAt:       campaign.SentAt,
		TotalSent:    len(records),
	}
	for _, record := range records {
		switch record.Status {
		case model.SendStatusSuccess:
			stats.SuccessCount++
		case model.SendStatusFailed:
			stats.FailedCount++
		}
	}

	// 先按短链接聚合点击
	type clickAgg struct {
		count int
		first time.Time
		last  time.Time
	}
	clicksByShortURL := make(map[uint]*clickAgg)
	for _, click := range clicks {
		agg, ok := clicksByShortURL[click.ShortURLID]
		if !ok {
			clicksByShortURL[click.ShortURLID] = &clickAgg{count: 1, first: click.ClickedAt, last: click.ClickedAt}
			continue
		}
		agg.count++
		agg.last = click.ClickedAt
	}

	stats.ClickCount = len(clicks)
	stats.UniqueClickCount = len(clicksByShortURL)
	stats.ClickRate = clickRate(stats.UniqueClickCount, stats.SuccessCount)

	// 再把短链接的点击归并到联系人; 没有联系人归属的短链接各自单列为 "不明"
	byContact := make(map[string]*ContactClicks)
	order := make([]string, 0)
	for _, shortURL := range shortURLs {
		agg, clicked := clicksByShortURL[shortURL.ID]
		if !clicked {
			continue
		}

		key := fmt.Sprintf("unknown_%d", shortURL.ID)
		if shortURL.ContactID != nil {
			key = fmt.Sprintf("contact_%d", *shortURL.ContactID)
		}

		entry, ok := byContact[key]
		if !ok {
			entry = &ContactClicks{
				ContactID:      shortURL.ContactID,
				PhoneNumber:    a.resolvePhone(shortURL.ContactID, contacts, records),
				ContactName:    contactName(shortURL.ContactID, contacts),
				ClickCount:     agg.count,
				FirstClickedAt: agg.first,
				LastClickedAt:  agg.last,
			}
			byContact[key] = entry
			order = append(order, key)
			continue
		}

		entry.ClickCount += agg.count
		if agg.first.Before(entry.FirstClickedAt) {
			entry.FirstClickedAt = agg.first
		}
		if agg.last.After(entry.LastClickedAt) {
			entry.LastClickedAt = agg.last
		}
	}

	report := &CampaignReport{
		Campaign:        stats,
		ClicksByContact: make([]ContactClicks, 0, len(order)),
	}
	for _, key := range order {
		report.ClicksByContact = append(report.ClicksByContact, *byContact[key])
	}
	return report, nil
}

// clicksFor 取出给定短链接的全部点击, 按时间升序
func (a *Aggregator) clicksFor(shortURLs []model.ShortURL) ([]model.ClickEvent, error) {
	if len(shortURLs) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(shortURLs))
	for _, s := range shortURLs {
		ids = append(ids, s.ID)
	}

	var clicks []model.ClickEvent
	if err := a.db.Where("short_url_id IN ?", ids).
		Order("clicked_at ASC").
		Find(&clicks).Error; err != nil {
		return nil, err
	}
	return clicks, nil
}

// contactsFor 取出短链接引用到的联系人
func (a *Aggregator) contactsFor(shortURLs []model.ShortURL) (map[uint]model.Contact, error) {
	ids := make([]uint, 0)
	seen := make(map[uint]struct{})
	for _, s := range shortURLs {
		if s.ContactID == nil {
			continue
		}
		if _, ok := seen[*s.ContactID]; ok {
			continue
		}
		seen[*s.ContactID] = struct{}{}
		ids = append(ids, *s.ContactID)
	}
	result := make(map[uint]model.Contact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var contacts []model.Contact
	if err := a.db.Where("id IN ?", ids).Find(&contacts).Error; err != nil {
		return nil, err
	}
	for _, c := range contacts {
		result[c.ID] = c
	}
	return result, nil
}

// resolvePhone 号码解析顺序: 联系人记录 → 发送记录 → "不明"
func (a *Aggregator) resolvePhone(contactID *uint, contacts map[uint]model.Contact, records []model.SendRecord) string {
	if contactID != nil {
		if contact, ok := contacts[*contactID]; ok {
			return contact.PhoneNumber
		}
		for _, record := range records {
			if record.ContactID != nil && *record.ContactID == *contactID {
				return record.PhoneNumber
			}
		}
	}
	return "不明"
}

func contactName(contactID *uint, contacts map[uint]model.Contact) *string {
	if contactID == nil {
		return nil
	}
	if contact, ok := contacts[*contactID]; ok {
		return contact.Name
	}
	return nil
}
