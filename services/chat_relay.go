package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gsi-service/logger"
)

// SayOptions 聊天输出选项
type SayOptions struct {
	// Delay 延迟发送, 补偿直播画面延迟 (观众看到事件前不剧透)
	Delay time.Duration
	// MinTier 订阅等级门槛, 会话等级低于该值时跳过发送
	MinTier int
	// SessionTier 当前会话的订阅等级
	SessionTier int
}

// ChatNotifier 聊天输出抽象 (外部协作方, 命令解析和本地化在中继侧)
type ChatNotifier interface {
	Say(channel, text string, opts SayOptions) error
}

// ChatRelay 通过 webhook 把聊天消息转发给外部聊天服务
type ChatRelay struct {
	webhookURL string
	client     *http.Client
	enabled    bool
}

// NewChatRelay 创建聊天中继
func NewChatRelay(webhookURL string) *ChatRelay {
	enabled := webhookURL != ""
	if enabled {
		logger.Printf("[ChatRelay] Initialized with webhook")
	} else {
		logger.Printf("[ChatRelay] Disabled (no webhook URL)")
	}

	return &ChatRelay{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    enabled,
	}
}

// chatMessage webhook 消息结构
type chatMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	DelayMs int64  `json:"delay_ms,omitempty"`
}

// Say 实现 ChatNotifier 接口
// 等级门槛不满足时静默跳过; 延迟由中继侧执行, 这里只传递毫秒数
func (r *ChatRelay) Say(channel, text string, opts SayOptions) error {
	if !r.enabled {
		return nil
	}

	// 订阅等级门槛
	if opts.MinTier > 0 && opts.SessionTier < opts.MinTier {
		return nil
	}

	message := chatMessage{
		Channel: channel,
		Text:    text,
		DelayMs: opts.Delay.Milliseconds(),
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := r.client.Post(r.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
