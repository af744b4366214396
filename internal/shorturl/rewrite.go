package shorturl

import (
	"strings"

	"sms-campaign-platform/internal/model"

	"go.uber.org/zap"
)

// Rewriter 将消息中的长 URL 替换为短链接
type Rewriter struct {
	registry *Registry
	baseURL  string
	logger   *zap.SugaredLogger
}

// NewRewriter 创建改写器, baseURL 为空时输出根相对路径 /r/{code}
func NewRewriter(registry *Registry, baseURL string, logger *zap.SugaredLogger) *Rewriter {
	return &Rewriter{
		registry: registry,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger.Named("url_rewriter"),
	}
}

// ShortForm 返回短码对外暴露的完整形式
func (w *Rewriter) ShortForm(code string) string {
	if w.baseURL != "" {
		return w.baseURL + "/r/" + code
	}
	return "/r/" + code
}

// Rewrite 提取消息中的每个 URL 出现, 逐个生成短链接并原位替换
// 同一 URL 出现多次时, 每次出现各自生成一行短链接
// 任意一个短链接创建失败时整体放弃改写, 返回原始消息和空的短链接列表,
// 保证发送不因短链接子系统故障而中断
func (w *Rewriter) Rewrite(message string, contactID, campaignID *uint) (string, []*model.ShortURL) {
	urls := ExtractURLs(message)
	if len(urls) == 0 {
		return message, nil
	}

	processed := message
	minted := make([]*model.ShortURL, 0, len(urls))

	for _, originalURL := range urls {
		row, err := w.registry.Create(originalURL, contactID, campaignID)
		if err != nil {
			w.logger.Errorf("短链接创建失败, 放弃改写并发送原始消息: %v", err)
			return message, nil
		}
		minted = append(minted, row)

		// 每次只替换最靠前的一次出现, 已替换的部分不会再被匹配到
		processed = strings.Replace(processed, originalURL, w.ShortForm(row.Code), 1)
	}

	return processed, minted
}
