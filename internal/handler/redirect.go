package handler

import (
	"errors"
	"net/http"
	"strings"

	"sms-campaign-platform/internal/shorturl"
	"sms-campaign-platform/internal/sideeffect"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedirectHandler 短链接重定向的公开入口
type RedirectHandler struct {
	registry *shorturl.Registry
	recorder *shorturl.ClickRecorder
	logger   *zap.SugaredLogger
}

// NewRedirectHandler 创建重定向处理器
func NewRedirectHandler(registry *shorturl.Registry, recorder *shorturl.ClickRecorder, logger *zap.SugaredLogger) *RedirectHandler {
	return &RedirectHandler{
		registry: registry,
		recorder: recorder,
		logger:   logger.Named("redirect_handler"),
	}
}

// Redirect godoc
// @Summary 短链接重定向
// @Description 解析短码并以 307 跳转到目标地址, 同时尽力记录一次点击
// @Tags ShortURL
// @Produce json
// @Param code path string true "短码"
// @Success 307
// @Failure 404 {object} gin.H "短码不存在"
// @Router /r/{code} [get]
func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	row, err := h.registry.Resolve(code)
	if err != nil {
		if errors.Is(err, shorturl.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在"})
			return
		}
		h.logger.Errorf("短链接解析失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	// 点击记录失败绝不影响重定向响应
	userAgent := headerPtr(c.GetHeader("User-Agent"))
	ipAddress := clientIPFromForwarded(c.GetHeader("X-Forwarded-For"))
	sideeffect.Run(h.logger, "点击记录", func() error {
		return h.recorder.Record(row.ID, userAgent, ipAddress)
	})

	// 307: 目标地址将来可能变更或停用, 不允许缓存固化这个跳转
	c.Redirect(http.StatusTemporaryRedirect, row.OriginalURL)
}

func headerPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// clientIPFromForwarded 取 X-Forwarded-For 的第一跳作为客户端 IP
// 只是粗粒度的参考信息, 不作为可信的客户端身份
func clientIPFromForwarded(forwarded string) *string {
	if forwarded == "" {
		return nil
	}
	first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if first == "" {
		return nil
	}
	return &first
}
