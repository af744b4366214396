package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SendResult 单条短信的发送结果
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Gateway 运营商网关: 发一条消息, 拿到成功的 message_id 或失败原因
type Gateway interface {
	Send(ctx context.Context, to, body string) SendResult
}

// TwilioConfig Twilio REST 接口的凭据与参数
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBase    string
	Timeout    time.Duration
}

// TwilioGateway 通过 Twilio REST API 发送短信
type TwilioGateway struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilioGateway 创建网关客户端, 单条消息的超时由配置给定
func NewTwilioGateway(cfg TwilioConfig) *TwilioGateway {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &TwilioGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Send 发送一条短信
// 号码校验在本地完成, 不合法的号码直接返回失败, 不发起网络调用;
// 网络超时同样作为网关失败返回, 不会挂起整个批次
func (g *TwilioGateway) Send(ctx context.Context, to, body string) SendResult {
	if !ValidatePhoneNumber(to) {
		return SendResult{Success: false, Error: fmt.Sprintf("无效的电话番号形式: %s", to)}
	}
	normalized := NormalizePhoneNumber(to)

	form := url.Values{}
	form.Set("To", normalized)
	form.Set("From", g.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.cfg.APIBase, g.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}
	req.SetBasicAuth(g.cfg.AccountSID, g.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}

	var parsed twilioResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return SendResult{Success: false, Error: fmt.Sprintf("网关响应解析失败: %v", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SendResult{Success: true, MessageID: parsed.SID}
	}

	reason := parsed.Message
	if reason == "" {
		reason = fmt.Sprintf("网关返回状态码 %d", resp.StatusCode)
	}
	return SendResult{Success: false, Error: reason}
}
