package analytics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sms-campaign-platform/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:analytics_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("无法连接到内存数据库: %v", err)
	}
	if err := db.AutoMigrate(&model.ShortURL{}, &model.ClickEvent{}, &model.SendRecord{}, &model.Campaign{}, &model.Contact{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newTestAggregator(t *testing.T) (*Aggregator, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	logger, _ := zap.NewDevelopment()
	return NewAggregator(db, logger.Sugar()), db
}

func sentCampaign(t *testing.T, db *gorm.DB, name string, sentAt time.Time) model.Campaign {
	t.Helper()
	campaign := model.Campaign{
		Name:            name,
		MessageTemplate: "hi",
		Status:          model.CampaignStatusSent,
		SentAt:          &sentAt,
	}
	require.NoError(t, db.Create(&campaign).Error)
	return campaign
}

func addRecord(t *testing.T, db *gorm.DB, campaignID uint, phone string, status model.SendStatus) model.SendRecord {
	t.Helper()
	record := model.SendRecord{PhoneNumber: phone, Message: "hi", Status: status, CampaignID: &campaignID}
	require.NoError(t, db.Create(&record).Error)
	return record
}

func addShortURL(t *testing.T, db *gorm.DB, campaignID uint, contactID *uint, code string) model.ShortURL {
	t.Helper()
	row := model.ShortURL{
		Code:        code,
		OriginalURL: "https://example.com/a",
		CampaignID:  &campaignID,
		ContactID:   contactID,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func addClicks(t *testing.T, db *gorm.DB, shortURLID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&model.ClickEvent{ShortURLID: shortURLID}).Error)
	}
}

func TestClickRate(t *testing.T) {
	// 成功数为 0 时点击率固定为 0
	assert.Zero(t, clickRate(5, 0))
	assert.Zero(t, clickRate(0, 10))
	assert.Equal(t, 50, clickRate(1, 2))
	// 3/8 = 37.5% 四舍五入到 38
	assert.Equal(t, 38, clickRate(3, 8))
	assert.Equal(t, 100, clickRate(10, 10))
}

func TestOverall_Empty(t *testing.T) {
	aggregator, _ := newTestAggregator(t)

	report, err := aggregator.Overall()
	require.NoError(t, err)
	assert.Zero(t, report.Overall.TotalCampaigns)
	assert.Empty(t, report.Campaigns)
}

func TestOverall_IgnoresUnsentCampaigns(t *testing.T) {
	aggregator, db := newTestAggregator(t)

	sentCampaign(t, db, "配信済み", time.Now())
	draft := model.Campaign{Name: "下書き", MessageTemplate: "hi", Status: model.CampaignStatusDraft}
	require.NoError(t, db.Create(&draft).Error)

	report, err := aggregator.Overall()
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 1)
	assert.Equal(t, "配信済み", report.Campaigns[0].CampaignName)
}

func TestOverall_CountsAndRates(t *testing.T) {
	aggregator, db := newTestAggregator(t)

	campaign := sentCampaign(t, db, "秋のセール", time.Now())

	// 10 条发送记录: 8 成功 2 失败
	for i := 0; i < 8; i++ {
		addRecord(t, db, campaign.ID, fmt.Sprintf("0901111%04d", i), model.SendStatusSuccess)
	}
	for i := 0; i < 2; i++ {
		addRecord(t, db, campaign.ID, fmt.Sprintf("0902222%04d", i), model.SendStatusFailed)
	}

	// 5 次点击分布在 3 条短链接上 → 去重点击 3, 点击率 round(3/8*100)=38
	linkA := addShortURL(t, db, campaign.ID, nil, "codeaaaa")
	linkB := addShortURL(t, db, campaign.ID, nil, "codebbbb")
	linkC := addShortURL(t, db, campaign.ID, nil, "codecccc")
	addShortURL(t, db, campaign.ID, nil, "codedddd") // 没有点击的链接不计入去重数
	addClicks(t, db, linkA.ID, 3)
	addClicks(t, db, linkB.ID, 1)
	addClicks(t, db, linkC.ID, 1)

	report, err := aggregator.Overall()
	require.NoError(t, err)

	require.Len(t, report.Campaigns, 1)
	stats := report.Campaigns[0]
	assert.Equal(t, 10, stats.TotalSent)
	assert.Equal(t, 8, stats.SuccessCount)
	assert.Equal(t, 2, stats.FailedCount)
	assert.Equal(t, 5, stats.ClickCount)
	assert.Equal(t, 3, stats.UniqueClickCount)
	assert.Equal(t, 38, stats.ClickRate)

	assert.Equal(t, 1, report.Overall.TotalCampaigns)
	assert.Equal(t, 10, report.Overall.TotalSent)
	assert.Equal(t, 8, report.Overall.TotalSuccess)
	assert.Equal(t, 2, report.Overall.TotalFailed)
	assert.Equal(t, 5, report.Overall.TotalClicks)
	assert.Equal(t, 38, report.Overall.OverallClickRate)
}

func TestOverall_SortedBySentAtDesc(t *testing.T) {
	aggregator, db := newTestAggregator(t)

	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now()
	sentCampaign(t, db, "先月号", older)
	sentCampaign(t, db, "今週号", newer)

	report, err := aggregator.Overall()
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 2)
	assert.Equal(t, "今週号", report.Campaigns[0].CampaignName)
	assert.Equal(t, "先月号", report.Campaigns[1].CampaignName)
}

func TestCampaignDetail_NotFound(t *testing.T) {
	aggregator, _ := newTestAggregator(t)

	_, err := aggregator.CampaignDetail(999)
	assert.True(t, errors.Is(err, ErrCampaignNotFound))
}

func TestCampaignDetail_ClicksByContact(t *testing.T) {
	aggregator, db := newTestAggregator(t)

	campaign := sentCampaign(t, db, "秋のセール", time.Now())

	name := "山田太郎"
	contact := model.Contact{PhoneNumber: "+819011112222", Name: &name}
	require.NoError(t, db.Create(&contact).Error)

	addRecord(t, db, campaign.ID, "+819011112222", model.SendStatusSuccess)
	addRecord(t, db, campaign.ID, "+818033334444", model.SendStatusSuccess)

	// 同一联系人的两条链接合并为一行, 无联系人归属的单列
	linkA := addShortURL(t, db, campaign.ID, &contact.ID, "codeaaaa")
	linkB := addShortURL(t, db, campaign.ID, &contact.ID, "codebbbb")
	linkC := addShortURL(t, db, campaign.ID, nil, "codecccc")
	addClicks(t, db, linkA.ID, 2)
	addClicks(t, db, linkB.ID, 1)
	addClicks(t, db, linkC.ID, 1)

	report, err := aggregator.CampaignDetail(campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Campaign.ClickCount)
	assert.Equal(t, 3, report.Campaign.UniqueClickCount)

	require.Len(t, report.ClicksByContact, 2)

	known := report.ClicksByContact[0]
	require.NotNil(t, known.ContactID)
	assert.Equal(t, contact.ID, *known.ContactID)
	assert.Equal(t, "+819011112222", known.PhoneNumber)
	require.NotNil(t, known.ContactName)
	assert.Equal(t, "山田太郎", *known.ContactName)
	assert.Equal(t, 3, known.ClickCount)
	assert.False(t, known.LastClickedAt.Before(known.FirstClickedAt))

	unknown := report.ClicksByContact[1]
	assert.Nil(t, unknown.ContactID)
	assert.Equal(t, "不明", unknown.PhoneNumber)
	assert.Equal(t, 1, unknown.ClickCount)
}

func TestCampaignDetail_PhoneFallbackToSendRecord(t *testing.T) {
	aggregator, db := newTestAggregator(t)

	campaign := sentCampaign(t, db, "再入荷通知", time.Now())

	// 联系人已被删除, 但发送记录保留了号码
	ghostContactID := uint(42)
	record := model.SendRecord{
		PhoneNumber: "+819055556666",
		Message:     "hi",
		Status:      model.SendStatusSuccess,
		CampaignID:  &campaign.ID,
		ContactID:   &ghostContactID,
	}
	require.NoError(t, db.Create(&record).Error)

	link := addShortURL(t, db, campaign.ID, &ghostContactID, "codeaaaa")
	addClicks(t, db, link.ID, 1)

	report, err := aggregator.CampaignDetail(campaign.ID)
	require.NoError(t, err)
	require.Len(t, report.ClicksByContact, 1)
	assert.Equal(t, "+819055556666", report.ClicksByContact[0].PhoneNumber)
	assert.Nil(t, report.ClicksByContact[0].ContactName)
}
