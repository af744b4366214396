package shorturl

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRewriter(t *testing.T, baseURL string) (*Rewriter, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	registry := NewRegistry(db, nil, shortcode.NewGenerator(), testLogger())
	return NewRewriter(registry, baseURL, testLogger()), db
}

func TestRewriter_NoURLs(t *testing.T) {
	rewriter, db := newTestRewriter(t, "")

	processed, minted := rewriter.Rewrite("こんにちは、今週のセールのお知らせです", nil, nil)
	assert.Equal(t, "こんにちは、今週のセールのお知らせです", processed)
	assert.Empty(t, minted)

	var count int64
	db.Model(&model.ShortURL{}).Count(&count)
	assert.Zero(t, count)
}

func TestRewriter_SingleURL(t *testing.T) {
	rewriter, db := newTestRewriter(t, "https://sms.example.jp")

	processed, minted := rewriter.Rewrite("Check this: https://example.com/a out", nil, nil)

	require.Len(t, minted, 1)
	assert.Equal(t, "https://example.com/a", minted[0].OriginalURL)

	// URL 以外的文本逐字节保持不变
	pattern := regexp.MustCompile(`^Check this: https://sms\.example\.jp/r/[A-Za-z0-9]{8} out$`)
	assert.Regexp(t, pattern, processed)

	var count int64
	db.Model(&model.ShortURL{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRewriter_RelativeBaseURL(t *testing.T) {
	rewriter, _ := newTestRewriter(t, "")

	processed, minted := rewriter.Rewrite("詳細は https://example.com/sale まで", nil, nil)
	require.Len(t, minted, 1)
	assert.Equal(t, fmt.Sprintf("詳細は /r/%s まで", minted[0].Code), processed)
}

func TestRewriter_RepeatedURLMintsSeparateCodes(t *testing.T) {
	rewriter, db := newTestRewriter(t, "")

	message := "first https://example.com/x second https://example.com/x"
	processed, minted := rewriter.Rewrite(message, nil, nil)

	// 同一 URL 的两次出现各自生成一行短链接
	require.Len(t, minted, 2)
	assert.NotEqual(t, minted[0].Code, minted[1].Code)

	assert.Equal(t,
		fmt.Sprintf("first /r/%s second /r/%s", minted[0].Code, minted[1].Code),
		processed)

	var count int64
	db.Model(&model.ShortURL{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestRewriter_AttributionCarried(t *testing.T) {
	rewriter, _ := newTestRewriter(t, "")

	contactID := uint(7)
	campaignID := uint(3)
	_, minted := rewriter.Rewrite("https://example.com/a", &contactID, &campaignID)
	require.Len(t, minted, 1)
	require.NotNil(t, minted[0].ContactID)
	require.NotNil(t, minted[0].CampaignID)
	assert.EqualValues(t, 7, *minted[0].ContactID)
	assert.EqualValues(t, 3, *minted[0].CampaignID)
}

func TestRewriter_FallbackOnStorageFailure(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db, nil, shortcode.NewGenerator(), testLogger())
	rewriter := NewRewriter(registry, "", testLogger())

	// 存储故障时放弃改写, 原样返回消息且不返回任何短链接
	require.NoError(t, db.Migrator().DropTable(&model.ShortURL{}))

	message := "see https://example.com/a and https://example.com/b"
	processed, minted := rewriter.Rewrite(message, nil, nil)
	assert.Equal(t, message, processed)
	assert.Empty(t, minted)
	assert.False(t, strings.Contains(processed, "/r/"))
}
