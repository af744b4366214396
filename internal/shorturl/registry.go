package shorturl

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/shortcode"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound 表示短码不存在
var ErrNotFound = errors.New("短链接不存在")

const (
	// cacheKeyPrefix 解析结果的缓存键前缀
	cacheKeyPrefix = "shorturl:"
	// cacheTTL 短码创建后不可变, 可以放心缓存较长时间
	cacheTTL = 24 * time.Hour
	// maxCreateRetries 短码插入冲突时的最大重试次数
	maxCreateRetries = 3
)

// Registry 短链接注册表, 负责短码到目标 URL 映射的持久化与解析
type Registry struct {
	db        *gorm.DB
	redis     *redis.Client
	generator *shortcode.Generator
	logger    *zap.SugaredLogger
}

// NewRegistry 创建注册表实例, redisClient 可为 nil (不启用缓存)
func NewRegistry(db *gorm.DB, redisClient *redis.Client, generator *shortcode.Generator, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		db:        db,
		redis:     redisClient,
		generator: generator,
		logger:    logger.Named("shorturl_registry"),
	}
}

// Create 为目标 URL 生成短码并持久化
// 唯一索引冲突属于可重试错误, 换一个新码最多重试 maxCreateRetries 次
func (r *Registry) Create(originalURL string, contactID, campaignID *uint) (*model.ShortURL, error) {
	var lastErr error
	for i := 0; i <= maxCreateRetries; i++ {
		code, err := r.generator.Generate()
		if err != nil {
			return nil, err
		}

		row := model.ShortURL{
			Code:        code,
			OriginalURL: originalURL,
			ContactID:   contactID,
			CampaignID:  campaignID,
		}
		if err := r.db.Create(&row).Error; err != nil {
			lastErr = err
			r.logger.Warnf("短链接写入失败 (第 %d 次尝试): %v", i+1, err)
			continue
		}
		return &row, nil
	}
	return nil, lastErr
}

// LinkToSendRecord 将短链接关联到发送记录
// 只在发送成功后调用; 这里失败不应该影响已经完成的发送
func (r *Registry) LinkToSendRecord(shortURLID, sendRecordID uint) error {
	return r.db.Model(&model.ShortURL{}).
		Where("id = ?", shortURLID).
		Update("send_record_id", sendRecordID).Error
}

// Resolve 按短码精确查找短链接
// 命中缓存时不落库; 未找到返回 ErrNotFound
func (r *Registry) Resolve(code string) (*model.ShortURL, error) {
	if r.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if cached, err := r.redis.Get(ctx, cacheKeyPrefix+code).Result(); err == nil {
			var row model.ShortURL
			if json.Unmarshal([]byte(cached), &row) == nil {
				return &row, nil
			}
		}
	}

	var row model.ShortURL
	if err := r.db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if data, err := json.Marshal(row); err == nil {
			r.redis.Set(ctx, cacheKeyPrefix+code, data, cacheTTL)
		}
	}
	return &row, nil
}
